package objectstore

import (
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
)

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	S3Type  RepositoryType = "s3"
	GCSType RepositoryType = "gcs"
)

// BucketConfig holds configuration for the photo bucket
type BucketConfig struct {
	Name string
	Type RepositoryType
	// GCS service account used for signing; optional
	GCSAccessID   string
	GCSPrivateKey []byte
}

// SignerFactory creates signer instances
type SignerFactory struct {
	awsConfig aws.Config
	gcsClient *storage.Client
}

// NewSignerFactory creates a new factory
func NewSignerFactory(awsConfig aws.Config, gcsClient *storage.Client) *SignerFactory {
	return &SignerFactory{
		awsConfig: awsConfig,
		gcsClient: gcsClient,
	}
}

// CreateSigner creates a signer based on bucket configuration
func (f *SignerFactory) CreateSigner(config BucketConfig) (Signer, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	switch config.Type {
	case S3Type:
		store := NewS3ObjectStore(f.awsConfig)
		signer := NewS3Signer(store.PresignClient, config.Name)
		return &signer, nil
	case GCSType:
		if f.gcsClient == nil && len(config.GCSPrivateKey) == 0 {
			return nil, fmt.Errorf("GCS client not configured")
		}
		signer := NewGCSSigner(f.gcsClient, config.Name, config.GCSAccessID, config.GCSPrivateKey)
		return &signer, nil
	default:
		return nil, fmt.Errorf("unsupported repository type: %s", config.Type)
	}
}
