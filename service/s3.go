package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/openshelf/bookapp/store"
)

// S3Blob implements store.Blob on an S3 bucket.
type S3Blob struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Blob(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*S3Blob, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Blob{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Metadata reads object size and content type via HeadObject; the content
// itself is never fetched.
func (s *S3Blob) Metadata(ctx context.Context, ref string) (store.BlobInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return store.BlobInfo{}, err
	}
	return store.BlobInfo{
		SizeBytes:   aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// GetBytes fetches the whole object, checking the stored size against
// maxBytes before reading so an oversized file is never buffered.
func (s *S3Blob) GetBytes(ctx context.Context, ref string, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		info, err := s.Metadata(ctx, ref)
		if err != nil {
			return nil, err
		}
		if info.SizeBytes > maxBytes {
			return nil, fmt.Errorf("%w: %d > %d bytes", store.ErrSizeExceeded, info.SizeBytes, maxBytes)
		}
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	// The object could have been replaced between the size check and the
	// read, so cap the read as well.
	body := io.Reader(out.Body)
	if maxBytes > 0 {
		body = io.LimitReader(out.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: content larger than %d bytes", store.ErrSizeExceeded, maxBytes)
	}
	return data, nil
}

// Put stores the object under prefix (e.g. "books/") with a random key so
// names never collide. Returns the object key.
func (s *S3Blob) Put(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	ext := filepath.Ext(originalFilename)
	key := prefix + uuid.New().String() + ext
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// DownloadURL returns a temporary presigned URL for the object.
func (s *S3Blob) DownloadURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Delete removes the object.
func (s *S3Blob) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	return err
}
