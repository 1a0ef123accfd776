// Package s3 keeps configuration documents in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client is the subset of *s3.Client the store uses.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ObjectStore struct {
	client Client
	bucket string
	logger *slog.Logger
}

func NewObjectStore(client Client, bucket string, logger *slog.Logger) *ObjectStore {
	return &ObjectStore{
		client: client,
		bucket: bucket,
		logger: logger.With("component", "s3", "bucket", bucket),
	}
}

// Get returns domain.ErrObjectNotFound when the key does not exist.
func (o *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", domain.ErrObjectNotFound, o.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", o.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", o.bucket, key, err)
	}
	o.logger.InfoContext(ctx, "read object", "key", key, "bytes", len(data))
	return data, nil
}

func (o *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", o.bucket, key, err)
	}
	o.logger.InfoContext(ctx, "wrote object", "key", key, "bytes", len(data))
	return nil
}

func contentType(key string) string {
	if domain.IsYAMLDocument(key) {
		return "application/yaml"
	}
	return "application/json"
}

func NewClient(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}
