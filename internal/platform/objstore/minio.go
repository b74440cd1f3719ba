// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objstore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements [Storage] with minio-go.
type MinIOStorage struct {
	client *minio.Client
	config Config
}

// NewMinIOStorage creates a MinIO/R2 client. It does not contact the server.
func NewMinIOStorage(config Config) (*MinIOStorage, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("objstore: minio endpoint is required")
	}
	if config.AccessKey == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("objstore: minio access key and secret key are required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to create minio client: %w", err)
	}

	return &MinIOStorage{client: client, config: config}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (storage *MinIOStorage) EnsureBucket(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, storage.config.Timeout)
	defer cancel()

	exists, err := storage.client.BucketExists(ctx, storage.config.Bucket)
	if err != nil {
		return fmt.Errorf("objstore: check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := storage.client.MakeBucket(ctx, storage.config.Bucket, minio.MakeBucketOptions{Region: storage.config.Region}); err != nil {
		return fmt.Errorf("objstore: create bucket: %w", err)
	}
	return nil
}

// Upload puts the local file under a fresh media key.
func (storage *MinIOStorage) Upload(ctx context.Context, localPath string) (Object, error) {
	upload, err := openUpload(localPath)
	if err != nil {
		return Object{}, err
	}
	defer upload.file.Close()

	ctx, cancel := withTimeout(ctx, storage.config.Timeout)
	defer cancel()

	_, err = storage.client.PutObject(ctx, storage.config.Bucket, upload.key, upload.file, upload.size, minio.PutObjectOptions{
		ContentType: upload.contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("objstore_minio_put_failed: %w", err)
	}

	return Object{URL: publicURL(storage.config, upload.key), StorageID: upload.key}, nil
}

// Delete removes an object. Missing objects are not an error.
func (storage *MinIOStorage) Delete(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}

	ctx, cancel := withTimeout(ctx, storage.config.Timeout)
	defer cancel()

	if err := storage.client.RemoveObject(ctx, storage.config.Bucket, storageID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("objstore_minio_delete_failed: %w", err)
	}
	return nil
}
