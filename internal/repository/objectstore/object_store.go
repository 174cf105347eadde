// Package objectstore issues time-bounded signed URLs for the photo bucket
// and performs the client side of direct uploads against those URLs.
package objectstore

import (
	"context"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// Signer mints upload and download URLs for single objects. Issuance never
// checks that the object exists.
type Signer interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	GetBucketName() string
	GetStorageType() string
}

type S3Store struct {
	Client        *s3.Client
	PresignClient *s3.PresignClient
}

func NewS3ObjectStore(awsConfig aws.Config, optFns ...func(*s3.Options)) *S3Store {
	client := s3.NewFromConfig(awsConfig, optFns...)
	if client == nil {
		log.Fatal("Failed to create S3 client")
	}

	return &S3Store{
		Client:        client,
		PresignClient: s3.NewPresignClient(client),
	}
}

// NewS3Signer creates a signer for an S3 bucket
func NewS3Signer(presignClient *s3.PresignClient, bucketName string) S3Signer {
	return S3Signer{
		presignClient: presignClient,
		bucketName:    bucketName,
	}
}

// NewGCSSigner creates a signer for a GCS bucket. When accessID and
// privateKey are empty the client's own credentials are used for signing.
func NewGCSSigner(client *storage.Client, bucketName, accessID string, privateKey []byte) GCSSigner {
	return GCSSigner{
		client:     client,
		bucketName: bucketName,
		accessID:   accessID,
		privateKey: privateKey,
	}
}
