// Package publish copies finished workbooks to shared storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// XLSXContentType is the MIME type of every workbook this service produces.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Publisher stores one finished workbook and returns where it went. An empty location
// means nothing was stored.
type Publisher interface {
	Publish(ctx context.Context, runID, name string, data []byte) (string, error)
}

// Noop publishes nothing.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, []byte) (string, error) { return "", nil }

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads to s3://bucket/prefix/<run id>/<name>.
type S3Publisher struct {
	client putter
	bucket string
	prefix string
}

// S3Config names the destination. Region falls back to the AWS default chain.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

// NewS3Publisher loads AWS credentials from the default chain.
func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Publisher(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3Publisher(client putter, cfg S3Config) *S3Publisher {
	return &S3Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

func (p *S3Publisher) Publish(ctx context.Context, runID, name string, data []byte) (string, error) {
	key := path.Join(p.prefix, runID, name)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(XLSXContentType),
		Metadata: map[string]string{
			"run_id":     runID,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
