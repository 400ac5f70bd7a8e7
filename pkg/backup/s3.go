// Package backup uploads exported tables and workflow snapshots to S3 so
// assessments survive the workstation they were made on. The uploader is
// optional; an unconfigured service simply never constructs one.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ecorisk/bowtie/pkg/logging"
)

// Uploader pushes artifacts to one S3 bucket under a fixed prefix.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	logger logging.Logger
}

// Options configure the uploader. AccessKey/SecretKey are optional; when
// empty the default AWS credential chain applies.
type Options struct {
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// New creates an uploader. The initial config load is the only call that
// can fail before first use.
func New(ctx context.Context, opts Options, logger logging.Logger) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		logger: logger,
	}, nil
}

// Upload stores data under a timestamped key and returns the key used.
func (u *Uploader) Upload(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	key := path.Join(u.prefix, time.Now().UTC().Format("2006/01/02"), name)

	timer := logging.StartTimer(u.logger, "backup upload",
		logging.String("bucket", u.bucket), logging.Path(key),
		logging.Int("bytes", len(data)))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		timer.EndError(err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	timer.End()
	return key, nil
}
