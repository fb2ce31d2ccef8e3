package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO/S3 and ensures the report bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Client exposes the underlying minio client for the cloud storage connector
func (s *Store) Client() *minio.Client { return s.client }

// Upload implements scans.ReportStore
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	contentType := contentTypeFor(localPath)

	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	// Public URL when the bucket is public; private buckets need a presigned URL
	return s.objectURL(key), nil
}

// UploadBytes stores an in-memory report without touching the filesystem
func (s *Store) UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return s.objectURL(key), nil
}

// UploadAndCleanup uploads a local file and removes it afterwards
func (s *Store) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := s.Upload(ctx, localPath, key)
	if err != nil {
		return "", err
	}

	if removeErr := os.Remove(localPath); removeErr != nil {
		// upload already succeeded; the leftover file is only a warning
		fmt.Printf("Warning: failed to remove local file %s: %v\n", localPath, removeErr)
	}

	return url, nil
}

func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("http://%s/%s/%s", s.client.EndpointURL().Host, s.bucketName, key)
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".json", ".sarif":
		return "application/json"
	case ".html":
		return "text/html"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
