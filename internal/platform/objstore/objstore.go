// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package objstore uploads local files to S3-compatible object storage and
deletes them again.

# Drivers

  - MinIOStorage: minio-go, for MinIO and Cloudflare R2 (OBJECT_STORE_DRIVER=minio).
  - S3Storage: aws-sdk-go-v2, for AWS S3 (OBJECT_STORE_DRIVER=s3).

Both share key generation (media/<uuidv7><ext>), content sniffing and public
URL construction, and bound every remote call with the configured timeout.
*/
package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/taibuivan/vidora/pkg/uuid"
)

// keyPrefix namespaces every uploaded object.
const keyPrefix = "media/"

// ErrEmptyPath is returned when Upload is called without a local file.
var ErrEmptyPath = errors.New("objstore: empty local path")

// Object identifies an uploaded remote asset.
type Object struct {
	// URL is the public address of the object.
	URL string
	// StorageID is the object key used for deletion.
	StorageID string
}

// Storage is the object storage capability injected into the account services.
type Storage interface {

	/*
		Upload stores the file at localPath and returns its remote identity.
		The local file is not removed; that is the caller's responsibility.

		Parameters:
		  - ctx: context.Context
		  - localPath: string

		Returns:
		  - Object: Public URL and storage ID
		  - error: Filesystem or remote failures
	*/
	Upload(ctx context.Context, localPath string) (Object, error)

	/*
		Delete removes the object identified by storageID. An empty ID is a no-op.

		Parameters:
		  - ctx: context.Context
		  - storageID: string

		Returns:
		  - error: Remote failures
	*/
	Delete(ctx context.Context, storageID string) error
}

// Config holds the settings shared by every driver.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL is the base URL objects are served from. When empty the
	// URL is derived from Endpoint and Bucket.
	PublicURL string
	// Timeout bounds each Upload and Delete call.
	Timeout time.Duration
}

// upload describes a local file ready to be sent.
type upload struct {
	file        *os.File
	size        int64
	contentType string
	key         string
}

// openUpload opens localPath, sniffs its content type and assigns an object key.
// The caller must close the returned file.
func openUpload(localPath string) (*upload, error) {
	if localPath == "" {
		return nil, ErrEmptyPath
	}

	mime, err := mimetype.DetectFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("objstore_detect_failed: %w", err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("objstore_open_failed: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("objstore_stat_failed: %w", err)
	}

	return &upload{
		file:        file,
		size:        info.Size(),
		contentType: mime.String(),
		key:         objectKey(localPath, mime.Extension()),
	}, nil
}

// objectKey builds media/<uuidv7><ext>, preferring the sniffed extension.
func objectKey(localPath, sniffedExt string) string {
	ext := sniffedExt
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(localPath))
	}
	return keyPrefix + uuid.New() + ext
}

// publicURL joins the configured base URL (or endpoint/bucket) and key.
func publicURL(config Config, key string) string {
	base := strings.TrimRight(config.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if config.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, strings.TrimRight(config.Endpoint, "/"), config.Bucket)
	}
	return base + "/" + key
}

// withTimeout derives a context bounded by the configured timeout.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
