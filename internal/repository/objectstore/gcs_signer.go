package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
)

// GCSSigner issues V4 signed URLs for a Google Cloud Storage bucket
type GCSSigner struct {
	client     *storage.Client
	bucketName string
	accessID   string
	privateKey []byte
}

// PresignUpload returns a URL authorising one PUT of key with the given content type.
func (r *GCSSigner) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	url, err := r.sign(key, &storage.SignedURLOptions{
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(ttl),
		Scheme:      storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS upload for %s: %w", key, err)
	}

	log.Tracef("Signed PUT gs://%s/%s for %s", r.bucketName, key, ttl)
	return url, nil
}

// PresignDownload returns a URL authorising GETs of key until it expires.
func (r *GCSSigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := r.sign(key, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS download for %s: %w", key, err)
	}

	log.Tracef("Signed GET gs://%s/%s for %s", r.bucketName, key, ttl)
	return url, nil
}

func (r *GCSSigner) sign(key string, opts *storage.SignedURLOptions) (string, error) {
	if len(r.privateKey) > 0 {
		opts.GoogleAccessID = r.accessID
		opts.PrivateKey = r.privateKey
		return storage.SignedURL(r.bucketName, key, opts)
	}
	if r.client == nil {
		return "", fmt.Errorf("GCS client not configured")
	}
	return r.client.Bucket(r.bucketName).SignedURL(key, opts)
}

// GetBucketName returns the bucket name
func (r *GCSSigner) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the storage type
func (r *GCSSigner) GetStorageType() string {
	return "gcs"
}
