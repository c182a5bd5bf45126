// Package snapshot exports bar listings as JSON objects to S3-compatible
// storage, one object per source.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"barmap/internal/config"
	"barmap/internal/models"
)

var (
	ErrNotConfigured = errors.New("snapshot storage not configured")
	ErrNotFound      = errors.New("snapshot not found")
)

type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Store writes and reads bar snapshots in one bucket.
type Store struct {
	client objectClient
	bucket string
}

// New connects to the MinIO endpoint from cfg.
func New(cfg config.MinioConfig) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	logrus.WithField("endpoint", cfg.Endpoint).Info("Connected to snapshot storage")
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Key is the object name for a source's snapshot.
func Key(source string) string {
	switch source {
	case models.SourceOSM:
		return "bars.json"
	case models.SourceGoogle:
		return "bars_google.json"
	}
	return "bars_" + source + ".json"
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put stores bars as indented JSON under key, replacing any previous object.
func (s *Store) Put(ctx context.Context, key string, bars []models.Bar) error {
	data, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bars: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"bars":   len(bars),
	}).Info("Snapshot stored")
	return nil
}

// Get reads a snapshot back.
func (s *Store) Get(ctx context.Context, key string) ([]models.Bar, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}
	defer object.Close()

	var bars []models.Bar
	if err := json.NewDecoder(object).Decode(&bars); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return bars, nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && resp.Code == "NoSuchKey"
}
