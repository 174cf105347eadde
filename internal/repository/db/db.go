package db

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/partyphoto/internal/repository/migrate"
)

// DynamoDBAPI is the subset of the DynamoDB client the repositories use.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type DynamoDb struct {
	Client *dynamodb.Client
}

func NewDatabase(awsConfig aws.Config) (*DynamoDb, error) {
	client := dynamodb.NewFromConfig(awsConfig)
	if client == nil {
		log.Fatal("Failed to create DynamoDB client")
	}

	return &DynamoDb{
		Client: client,
	}, nil
}

// MigrateDb creates any missing application tables.
func (d *DynamoDb) MigrateDb(ctx context.Context, tables migrate.Tables) error {
	return migrate.Up(ctx, d.Client, migrate.All(tables))
}

// MigrateDown drops the application tables.
func (d *DynamoDb) MigrateDown(ctx context.Context, tables migrate.Tables) error {
	return migrate.Down(ctx, d.Client, migrate.All(tables))
}
