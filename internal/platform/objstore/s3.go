// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of [*s3.Client] used by [S3Storage].
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements [Storage] with aws-sdk-go-v2.
type S3Storage struct {
	client S3API
	config Config
}

// NewS3Storage loads the AWS configuration and builds an S3 client.
//
// Static keys are used when both are configured; otherwise the default AWS
// credential chain applies. A custom endpoint switches to path-style addressing.
func NewS3Storage(ctx context.Context, config Config) (*S3Storage, error) {
	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, config), nil
}

// NewS3StorageWithClient wraps an existing client.
func NewS3StorageWithClient(client S3API, config Config) *S3Storage {
	return &S3Storage{client: client, config: config}
}

// Upload puts the local file under a fresh media key.
func (storage *S3Storage) Upload(ctx context.Context, localPath string) (Object, error) {
	upload, err := openUpload(localPath)
	if err != nil {
		return Object{}, err
	}
	defer upload.file.Close()

	ctx, cancel := withTimeout(ctx, storage.config.Timeout)
	defer cancel()

	_, err = storage.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(storage.config.Bucket),
		Key:           aws.String(upload.key),
		Body:          upload.file,
		ContentLength: aws.Int64(upload.size),
		ContentType:   aws.String(upload.contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("objstore_s3_put_failed: %w", err)
	}

	return Object{URL: publicURL(storage.config, upload.key), StorageID: upload.key}, nil
}

// Delete removes an object. S3 reports success for missing keys.
func (storage *S3Storage) Delete(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}

	ctx, cancel := withTimeout(ctx, storage.config.Timeout)
	defer cancel()

	_, err := storage.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(storage.config.Bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		return fmt.Errorf("objstore_s3_delete_failed: %w", err)
	}
	return nil
}
