package objectstore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Signer(bucket string) S3Signer {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
	return NewS3Signer(s3.NewPresignClient(client), bucket)
}

func TestS3Signer_PresignUpload(t *testing.T) {
	signer := newTestS3Signer("party-photos")

	raw, err := signer.PresignUpload(context.Background(), "1_abc_a.jpg", "image/jpeg", 60*time.Second)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Host+u.Path, "party-photos")
	assert.True(t, strings.HasSuffix(u.Path, "/1_abc_a.jpg"), "path %q", u.Path)

	q := u.Query()
	assert.Equal(t, "60", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("X-Amz-SignedHeaders"), "content-type")
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
}

func TestS3Signer_PresignDownload(t *testing.T) {
	signer := newTestS3Signer("party-photos")

	raw, err := signer.PresignDownload(context.Background(), "1_abc_a.jpg", 600*time.Second)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotContains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
	assert.Equal(t, "s3", signer.GetStorageType())
	assert.Equal(t, "party-photos", signer.GetBucketName())
}

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func TestGCSSigner(t *testing.T) {
	signer := NewGCSSigner(nil, "party-photos", "signer@project.iam.gserviceaccount.com", testPrivateKey(t))

	upload, err := signer.PresignUpload(context.Background(), "1_abc_a.jpg", "image/jpeg", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(upload)
	require.NoError(t, err)
	assert.Contains(t, u.Path, "/party-photos/1_abc_a.jpg")
	assert.Equal(t, "60", u.Query().Get("X-Goog-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Goog-Signature"))

	download, err := signer.PresignDownload(context.Background(), "1_abc_a.jpg", 10*time.Minute)
	require.NoError(t, err)
	u, err = url.Parse(download)
	require.NoError(t, err)
	assert.Equal(t, "600", u.Query().Get("X-Goog-Expires"))
	assert.Equal(t, "gcs", signer.GetStorageType())
}

func TestGCSSigner_NoCredentials(t *testing.T) {
	signer := NewGCSSigner(nil, "party-photos", "", nil)

	_, err := signer.PresignDownload(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}

func TestSignerFactory_CreateSigner(t *testing.T) {
	factory := NewSignerFactory(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	}, nil)

	tests := []struct {
		name     string
		config   BucketConfig
		wantType string
		wantErr  bool
	}{
		{"s3 bucket", BucketConfig{Name: "photos", Type: S3Type}, "s3", false},
		{"gcs with key", BucketConfig{Name: "photos", Type: GCSType, GCSAccessID: "sa@x", GCSPrivateKey: []byte("pem")}, "gcs", false},
		{"gcs without client or key", BucketConfig{Name: "photos", Type: GCSType}, "", true},
		{"empty name", BucketConfig{Type: S3Type}, "", true},
		{"unknown type", BucketConfig{Name: "photos", Type: "azure"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := factory.CreateSigner(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, signer.GetStorageType())
			assert.Equal(t, tt.config.Name, signer.GetBucketName())
		})
	}
}

func TestTransferClient_Put(t *testing.T) {
	var gotMethod, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewTransferClient(server.Client())
	content := "jpeg bytes"
	err := client.Put(context.Background(), server.URL+"/photo", "image/jpeg", strings.NewReader(content), int64(len(content)), true)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, content, gotBody)
}

func TestTransferClient_PutRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "SignatureDoesNotMatch", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewTransferClient(server.Client())
	err := client.Put(context.Background(), server.URL, "image/png", strings.NewReader("x"), 1, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
