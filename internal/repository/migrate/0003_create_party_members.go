package migrate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const PartyMembersVersion = "20250802000000_party_members_table"

type CreatePartyMembersTable struct {
	Name       string
	EmailIndex string
}

func (m *CreatePartyMembersTable) Version() string {
	return PartyMembersVersion
}

func (m *CreatePartyMembersTable) TableName() string {
	return m.Name
}

func (m *CreatePartyMembersTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("partyKey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("email"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("partyKey"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("email"),
				KeyType:       types.KeyTypeRange,
			},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(m.EmailIndex),
				KeySchema: []types.KeySchemaElement{
					{
						AttributeName: aws.String("email"),
						KeyType:       types.KeyTypeHash,
					},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
		TableName:   aws.String(m.Name),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("PartyMembership"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	return waitForTable(ctx, client, m.Name)
}

func (m *CreatePartyMembersTable) Down(ctx context.Context, client *dynamodb.Client) error {
	return deleteTable(ctx, client, m.Name)
}
