package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
)

// PhotoRepository manages DynamoDB interactions for PhotoRecord.
type PhotoRepository struct {
	client    DynamoDBAPI
	tableName string
}

// NewPhotoRepository initializes a new PhotoRepository.
func NewPhotoRepository(client DynamoDBAPI, tableName string) PhotoRepository {
	return PhotoRepository{
		client:    client,
		tableName: tableName,
	}
}

// CreatePhoto stores a photo record.
func (repo *PhotoRepository) CreatePhoto(ctx context.Context, photo domain.PhotoRecord) (domain.PhotoRecord, error) {
	item, err := attributevalue.MarshalMap(photo)
	if err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("failed to marshal photo record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}

	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return domain.PhotoRecord{}, perrors.InfrastructureError("failed to create photo record", err)
	}

	return photo, nil
}

// ListPhotos reads one page of a party's photos, newest first. The cursor is
// the photoKey of the last record of the previous page and is exclusive.
// Soft-deleted records are returned; filtering is the caller's concern.
func (repo *PhotoRepository) ListPhotos(ctx context.Context, partyKey, cursor string, limit int32) (domain.PhotoPage, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(repo.tableName),
		KeyConditionExpression: aws.String("#partyKey = :partyKey"),
		ExpressionAttributeNames: map[string]string{
			"#partyKey": "partyKey",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":partyKey": &types.AttributeValueMemberS{Value: partyKey},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}

	if cursor != "" {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"partyKey": &types.AttributeValueMemberS{Value: partyKey},
			"photoKey": &types.AttributeValueMemberS{Value: cursor},
		}
	}

	result, err := repo.client.Query(ctx, input)
	if err != nil {
		return domain.PhotoPage{}, perrors.InfrastructureError("failed to query photos by party", err)
	}

	page := domain.PhotoPage{Records: make([]domain.PhotoRecord, 0, len(result.Items))}
	for _, item := range result.Items {
		var photo domain.PhotoRecord
		if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
			return domain.PhotoPage{}, fmt.Errorf("failed to unmarshal photo record: %w", err)
		}
		page.Records = append(page.Records, photo)
	}

	if key, ok := result.LastEvaluatedKey["photoKey"].(*types.AttributeValueMemberS); ok && key.Value != "" {
		next := key.Value
		page.NextCursor = &next
	}

	return page, nil
}

// SoftDeletePhoto flags a photo as deleted. The update is conditioned on the
// record existing so no placeholder rows are created; a missing record is
// not an error.
func (repo *PhotoRepository) SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"partyKey": &types.AttributeValueMemberS{Value: partyKey},
			"photoKey": &types.AttributeValueMemberS{Value: photoKey},
		},
		UpdateExpression:    aws.String("SET #deleted = :deleted"),
		ConditionExpression: aws.String("attribute_exists(#photoKey)"),
		ExpressionAttributeNames: map[string]string{
			"#deleted":  "deleted",
			"#photoKey": "photoKey",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deleted": &types.AttributeValueMemberBOOL{Value: true},
		},
	}

	if _, err := repo.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			log.Debugf("Soft delete of %s/%s matched no record", partyKey, photoKey)
			return nil
		}
		return perrors.InfrastructureError("failed to soft-delete photo", err)
	}
	return nil
}
