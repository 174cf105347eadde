package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3Signer issues SigV4 presigned URLs for an S3 bucket.
type S3Signer struct {
	presignClient *s3.PresignClient
	bucketName    string
}

// GetBucketName returns the bucket name.
func (r *S3Signer) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the object store type.
func (r *S3Signer) GetStorageType() string {
	return "s3"
}

// PresignUpload returns a URL authorising one PUT of key with the given content type.
func (r *S3Signer) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := r.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	log.Tracef("Presigned PUT s3://%s/%s for %s", r.bucketName, key, ttl)
	return req.URL, nil
}

// PresignDownload returns a URL authorising GETs of key until it expires.
func (r *S3Signer) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}

	log.Tracef("Presigned GET s3://%s/%s for %s", r.bucketName, key, ttl)
	return req.URL, nil
}
