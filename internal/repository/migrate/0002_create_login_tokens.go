package migrate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const LoginTokensVersion = "20250801000000_login_tokens_table"

type CreateLoginTokensTable struct {
	Name string
}

func (m *CreateLoginTokensTable) Version() string {
	return LoginTokensVersion
}

func (m *CreateLoginTokensTable) TableName() string {
	return m.Name
}

func (m *CreateLoginTokensTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("token"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("token"),
				KeyType:       types.KeyTypeHash,
			},
		},
		TableName:   aws.String(m.Name),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("LoginTokens"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	if err := waitForTable(ctx, client, m.Name); err != nil {
		return err
	}

	// Expired tokens are removed by DynamoDB itself
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(m.Name),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	})
	return err
}

func (m *CreateLoginTokensTable) Down(ctx context.Context, client *dynamodb.Client) error {
	return deleteTable(ctx, client, m.Name)
}
