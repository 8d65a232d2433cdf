package content

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/crypto/blake2b"

	"shadow/internal/platform/config"
	"shadow/pkg/platform/sentinel"
)

const keyBytes = blake2b.Size256

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Mirror keeps content-addressed copies in a bucket. Keys are the hex
// blake2b-256 digest of the payload, so writing the same bytes twice is a no-op.
type S3Mirror struct {
	api    objectAPI
	bucket string
}

// NewS3Mirror builds a client from cfg. Static credentials and a custom
// endpoint are used when set, which is how MinIO deployments are reached.
func NewS3Mirror(ctx context.Context, cfg config.ContentConfig) (*S3Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Mirror{api: client, bucket: cfg.S3Bucket}, nil
}

// ObjectKey is the key data is stored under.
func ObjectKey(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (m *S3Mirror) Put(ctx context.Context, data []byte, name string) (string, error) {
	key := ObjectKey(data)
	_, err := m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{"name": name},
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3 put: %v", sentinel.ErrUnavailable, err)
	}
	return key, nil
}

func (m *S3Mirror) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := m.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: s3 get: %v", sentinel.ErrUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read: %v", sentinel.ErrUnavailable, err)
	}
	if len(data) > MaxObjectBytes {
		return nil, fmt.Errorf("s3 object exceeds %d bytes", MaxObjectBytes)
	}
	return data, nil
}
