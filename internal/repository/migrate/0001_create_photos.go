package migrate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const PhotosVersion = "20250731000000_photos_table"

type CreatePhotosTable struct {
	Name string
}

func (m *CreatePhotosTable) Version() string {
	return PhotosVersion
}

func (m *CreatePhotosTable) TableName() string {
	return m.Name
}

func (m *CreatePhotosTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("partyKey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("photoKey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("partyKey"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
			{
				AttributeName: aws.String("photoKey"),
				KeyType:       types.KeyTypeRange, // Sort Key
			},
		},
		TableName:   aws.String(m.Name),
		BillingMode: types.BillingModePayPerRequest, // On-demand billing for variable workloads
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("PartyPhotos"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	return waitForTable(ctx, client, m.Name)
}

func (m *CreatePhotosTable) Down(ctx context.Context, client *dynamodb.Client) error {
	return deleteTable(ctx, client, m.Name)
}
