// Package minio owns the optional object-storage connection used to archive
// raw uploads.
package minio

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docindex/internal/config"
)

var (
	client  *minio.Client
	once    sync.Once
	initErr error
)

// GetClient connects to MinIO once per process and returns the shared
// client. The target bucket is created when missing.
func GetClient(ctx context.Context, cfg *config.ArchiveConfig) (*minio.Client, error) {
	once.Do(func() {
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			initErr = fmt.Errorf("cannot create MinIO client: %w", err)
			return
		}

		exists, err := c.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			initErr = fmt.Errorf("MinIO health check failed: %w", err)
			return
		}
		if !exists {
			if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
				initErr = fmt.Errorf("cannot create bucket %s: %w", cfg.Bucket, err)
				return
			}
		}
		client = c
	})
	return client, initErr
}

// HealthCheck verifies connectivity and authentication.
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("MinIO client is not initialized")
	}
	if _, err := client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("MinIO health check failed: %w", err)
	}
	return nil
}
