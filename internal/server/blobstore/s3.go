package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client implements Client over an S3-compatible endpoint. Each backing
// store maps to one bucket named after the store; the store token is not
// used because the endpoint credential is shared.
type S3Client struct {
	client *s3.Client
}

// NewS3Client builds a client for the given endpoint with static
// credentials. Path-style addressing is forced so MinIO-style endpoints
// work without wildcard DNS.
func NewS3Client(ctx context.Context, endpoint, accessKey, secretKey, region string) (*S3Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Client{client: client}, nil
}

func (c *S3Client) bucket(ref StoreRef) string {
	return ref.Name
}

// revision derives the content revision an S3 object reports; there is no
// server-assigned commit SHA so a content hash stands in.
func revision(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (c *S3Client) Get(ctx context.Context, ref StoreRef, path string) (*Object, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket(ref)),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get error: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read error: %w", err)
	}

	return &Object{Path: path, SHA: revision(content), Content: content}, nil
}

func (c *S3Client) Put(ctx context.Context, ref StoreRef, path string, content []byte, message, sha string) (*PutResult, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket(ref)),
		Key:    aws.String(path),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put error: %w", err)
	}
	return &PutResult{SHA: revision(content)}, nil
}

func (c *S3Client) Delete(ctx context.Context, ref StoreRef, path, sha, message string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket(ref)),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3 delete error: %w", err)
	}
	return nil
}

func (c *S3Client) StoreExists(ctx context.Context, ref StoreRef) (bool, error) {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket(ref)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head error: %w", err)
	}
	return true, nil
}

func (c *S3Client) CreateStore(ctx context.Context, ref StoreRef, description string) error {
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket(ref)),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("s3 create bucket error: %w", err)
	}
	return nil
}
