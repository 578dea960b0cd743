package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// S3Options configures the S3-compatible mirror of the dataset.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Key       string
}

// objectClient is the subset of *minio.Client the mirror uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Mirror copies each published dataset to a bucket.
type S3Mirror struct {
	client objectClient
	bucket string
	region string
	key    string
}

// NewS3Mirror connects to the MinIO/S3 endpoint in opts.
func NewS3Mirror(opts S3Options) (*S3Mirror, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("mirror requires endpoint, access key, secret key and bucket")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logrus.Infof("Dataset mirror configured for %s/%s", opts.Endpoint, opts.Bucket)
	return &S3Mirror{client: client, bucket: opts.Bucket, region: opts.Region, key: opts.Key}, nil
}

// EnsureBucket creates the mirror bucket if it does not exist.
func (s *S3Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logrus.Infof("Created bucket %s", s.bucket)
	return nil
}

// Upload stores data under the mirror key, replacing the previous object.
func (s *S3Mirror) Upload(ctx context.Context, data []byte) error {
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}

	info, err := s.client.PutObject(
		ctx,
		s.bucket,
		s.key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json; charset=utf-8"},
	)
	if err != nil {
		return fmt.Errorf("failed to store dataset in bucket %s: %w", s.bucket, err)
	}

	logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": s.key, "etag": info.ETag}).Info("Dataset mirrored")
	return nil
}
