// Package storage wraps the object-storage collaborator. Uploads are
// upload-then-record-URL: callers persist the returned URL, nothing else.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the subset of the S3 API the uploader needs.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores binary objects (receipt images, profile pictures) and
// returns their public URL.
type Uploader struct {
	client Client
	region string
}

func NewUploader(client Client, region string) *Uploader {
	return &Uploader{client: client, region: region}
}

// Upload writes data under bucket/key and returns the object URL.
func (u *Uploader) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage.Upload: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, u.region, key), nil
}
