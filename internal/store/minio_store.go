package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/model"
)

// MinioConfig holds the S3 connection settings for MinioStore
type MinioConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseTLS    bool
}

// MinioStore is the production ObjectStore, backed by any S3-compatible
// endpoint through the MinIO client
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

var _ ObjectStore = (*MinioStore)(nil)

// NewMinioStore connects a client for the configured endpoint and bucket
func NewMinioStore(cfg *MinioConfig, logger *zap.Logger) (*MinioStore, error) {
	endpoint, secure := normalizeEndpoint(cfg.Endpoint, cfg.UseTLS)

	var creds *credentials.Credentials
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	logger.Info("Object store client created",
		zap.String("endpoint", endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("tls", secure))

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// normalizeEndpoint strips an explicit scheme from the endpoint and resolves
// whether the connection uses TLS. A scheme in the endpoint wins over useTLS
func normalizeEndpoint(endpoint string, useTLS bool) (string, bool) {
	if host, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return strings.TrimSuffix(host, "/"), true
	}
	if host, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return strings.TrimSuffix(host, "/"), false
	}
	return strings.TrimSuffix(endpoint, "/"), useTLS
}

// ListPrefixes returns the immediate sub-prefixes under prefix
func (s *MinioStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list prefixes under %s: %w", prefix, obj.Err)
		}
		// Non-recursive listings report common prefixes as keys ending in "/"
		if strings.HasSuffix(obj.Key, "/") && obj.Key != prefix {
			prefixes = append(prefixes, obj.Key)
		}
	}
	return prefixes, nil
}

// ListEntries returns the entries directly under a leaf prefix
func (s *MinioStore) ListEntries(ctx context.Context, prefix string) ([]model.FileDescriptor, error) {
	var files []model.FileDescriptor
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list entries under %s: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		files = append(files, model.FileDescriptor{
			Key:          obj.Key,
			SizeBytes:    obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return files, nil
}

// Get opens one object for reading and returns its size
func (s *MinioStore) Get(ctx context.Context, key string) (Object, int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get %s: %w", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return obj, stat.Size, nil
}

// Put stores size bytes from r at key
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every key in the list using the bulk remove API
func (s *MinioStore) DeleteAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			objectsCh <- minio.ObjectInfo{Key: key}
		}
	}()

	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return fmt.Errorf("failed to delete %s: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return nil
}

// URL renders key as s3://<bucket>/<key>
func (s *MinioStore) URL(key string) string {
	return "s3://" + s.bucket + "/" + key
}
