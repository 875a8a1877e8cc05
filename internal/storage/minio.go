// internal/storage/minio.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"flare-backend/internal/config"
)

// Client wraps the MinIO connection used for trial archives. Original
// and processed ZIPs live under per-user prefixes keyed by trial id, so
// no two trials ever contend for the same object.
type Client struct {
	client *minio.Client
	bucket string
}

func New(cfg config.MinIOConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Client{client: client, bucket: cfg.Bucket}, nil
}

// OriginalObjectName keys the uploaded archive before processing starts,
// so a crash mid-processing leaves the source recoverable.
func OriginalObjectName(userID, trialID uuid.UUID, uploadedAt time.Time) string {
	return fmt.Sprintf("trials/%s/%s_%d_original.zip", userID, trialID, uploadedAt.UnixMilli())
}

func ProcessedObjectName(userID, trialID uuid.UUID, uploadedAt time.Time) string {
	return fmt.Sprintf("trials/%s/%s_%d_processed.zip", userID, trialID, uploadedAt.UnixMilli())
}

// PutBytes stores data as objectName.
func (c *Client) PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName, err)
	}
	return nil
}

// GetObject returns a reader over objectName. The caller closes it.
func (c *Client) GetObject(ctx context.Context, objectName string) (*minio.Object, error) {
	object, err := c.client.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", objectName, err)
	}
	return object, nil
}

// StatObject verifies objectName exists and returns its size.
func (c *Client) StatObject(ctx context.Context, objectName string) (minio.ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, fmt.Errorf("stat %s: %w", objectName, err)
	}
	return info, nil
}

// RemoveObject deletes objectName.
func (c *Client) RemoveObject(ctx context.Context, objectName string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", objectName, err)
	}
	return nil
}

// HealthCheck probes the bucket.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}
