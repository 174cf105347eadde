package db

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
)

// TokenRepository manages DynamoDB interactions for login tokens.
type TokenRepository struct {
	client    DynamoDBAPI
	tableName string
}

// NewTokenRepository initializes a new TokenRepository.
func NewTokenRepository(client DynamoDBAPI, tableName string) TokenRepository {
	return TokenRepository{
		client:    client,
		tableName: tableName,
	}
}

// CreateToken stores a new login token. Tokens are never overwritten.
func (repo *TokenRepository) CreateToken(ctx context.Context, token domain.LoginToken) error {
	item, err := attributevalue.MarshalMap(token)
	if err != nil {
		return fmt.Errorf("failed to marshal login token: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(repo.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#token)"),
		ExpressionAttributeNames: map[string]string{
			"#token": "token",
		},
	}

	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return perrors.InfrastructureError("failed to create login token", err)
	}
	return nil
}

// ConsumeToken atomically removes a token and returns it. Tokens that are
// absent or past their TTL both report ErrNotFound; DynamoDB deletes
// expired items lazily, so the TTL is checked here as well.
func (repo *TokenRepository) ConsumeToken(ctx context.Context, token string, now time.Time) (domain.LoginToken, error) {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"token": &types.AttributeValueMemberS{Value: token},
		},
		ReturnValues: types.ReturnValueAllOld,
	}

	result, err := repo.client.DeleteItem(ctx, input)
	if err != nil {
		return domain.LoginToken{}, perrors.InfrastructureError("failed to consume login token", err)
	}

	if len(result.Attributes) == 0 {
		return domain.LoginToken{}, perrors.ErrNotFound
	}

	var loginToken domain.LoginToken
	if err := attributevalue.UnmarshalMap(result.Attributes, &loginToken); err != nil {
		return domain.LoginToken{}, fmt.Errorf("failed to unmarshal login token: %w", err)
	}

	if loginToken.Expired(now) {
		return domain.LoginToken{}, perrors.ErrNotFound
	}

	return loginToken, nil
}
