package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService provisions per-tenant document storage. Bootstrap treats
// it as one more best-effort satellite alongside the auxiliary rows.
type StorageService interface {
	EnsureTenantBucket(ctx context.Context, tenantID uuid.UUID) error
}

type minioStorage struct {
	client *minio.Client
}

func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool) (StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStorage{client: client}, nil
}

func (m *minioStorage) EnsureTenantBucket(ctx context.Context, tenantID uuid.UUID) error {
	bucketName := "tenant-" + tenantID.String()
	found, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}
