package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
)

// PartyRepository reads the party membership table through its email index.
type PartyRepository struct {
	client    DynamoDBAPI
	tableName string
	indexName string
}

// NewPartyRepository initializes a new PartyRepository.
func NewPartyRepository(client DynamoDBAPI, tableName, indexName string) PartyRepository {
	return PartyRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
	}
}

// ListPartiesByEmail returns every membership for an email address. An
// address with no memberships yields an empty slice.
func (repo *PartyRepository) ListPartiesByEmail(ctx context.Context, email string) ([]domain.PartyMembership, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(repo.tableName),
		IndexName:              aws.String(repo.indexName),
		KeyConditionExpression: aws.String("#email = :email"),
		ExpressionAttributeNames: map[string]string{
			"#email": "email",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	}

	memberships := make([]domain.PartyMembership, 0)
	for {
		result, err := repo.client.Query(ctx, input)
		if err != nil {
			return nil, perrors.InfrastructureError("failed to query parties by email", err)
		}

		for _, item := range result.Items {
			var membership domain.PartyMembership
			if err := attributevalue.UnmarshalMap(item, &membership); err != nil {
				return nil, fmt.Errorf("failed to unmarshal party membership: %w", err)
			}
			memberships = append(memberships, membership)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return memberships, nil
}

// AddMember grants an email address access to a party.
func (repo *PartyRepository) AddMember(ctx context.Context, membership domain.PartyMembership) error {
	item, err := attributevalue.MarshalMap(membership)
	if err != nil {
		return fmt.Errorf("failed to marshal party membership: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}

	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return perrors.InfrastructureError("failed to add party member", err)
	}
	return nil
}
