package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"autofill/internal/config"
	"autofill/pkg/logger"
)

// Archive stores uploaded documents and filled outputs in object storage so
// they survive the session. A nil *Archive disables archiving.
type Archive struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewArchive connects to MinIO and ensures the configured bucket exists.
// Returns (nil, nil) when archiving is disabled in the config.
func NewArchive(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Archive{
		client: c,
		bucket: cfg.Bucket,
		log:    logger.New("artifact", ""),
	}, nil
}

// Store uploads the named document under the session's prefix and returns the
// object key. Calling Store on a nil Archive is a no-op.
func (a *Archive) Store(ctx context.Context, sessionID, filename string, data []byte) (string, error) {
	if a == nil {
		return "", nil
	}

	key := objectKey(sessionID, filename)
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("failed to store artifact %s: %w", key, err)
	}

	a.log.WithSession(sessionID).WithPayload(map[string]interface{}{
		"object": key,
		"bytes":  len(data),
	}).Info("archived artifact")

	return key, nil
}

// objectKey namespaces objects by session and timestamps them so repeated
// uploads of the same filename never collide.
func objectKey(sessionID, filename string) string {
	return path.Join(sessionID, fmt.Sprintf("%d_%s", time.Now().UnixNano(), path.Base(filename)))
}
