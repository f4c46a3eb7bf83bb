// Package s3 stores listing images in an S3-compatible bucket (MinIO in development).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config describes the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // base for returned URLs; empty means endpoint/bucket
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Storage uploads images and returns their public URLs.
type Storage struct {
	client objectPutter
	bucket string
	base   string
	log    *zap.Logger
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Storage, error) {
	log = log.Named("s3")
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client %s: %w", cfg.Endpoint, err)
	}

	if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := client.BucketExists(ctx, cfg.Bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("make bucket %s: %v (exists check: %v)", cfg.Bucket, err, errExists)
		}
	}
	log.Info("bucket ready", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		base = client.EndpointURL().String() + "/" + cfg.Bucket
	}
	return &Storage{client: client, bucket: cfg.Bucket, base: base, log: log}, nil
}

// Upload stores data under images/<listing>/<random><ext> and returns its URL.
func (s *Storage) Upload(ctx context.Context, listingID uuid.UUID, fileName, contentType string, data []byte) (string, error) {
	key := fmt.Sprintf("images/%s/%s%s", listingID, uuid.Must(uuid.NewV4()), strings.ToLower(path.Ext(fileName)))
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType, CacheControl: "public, max-age=31536000, immutable"})
	if err != nil {
		s.log.Error("put object failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.log.Info("image uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return s.base + "/" + key, nil
}
