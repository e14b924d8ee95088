package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-multierror"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/async"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Config configures the S3 mirror
type Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string

	// Static credentials; the default AWS chain is used when empty
	AccessKeyID     string
	SecretAccessKey string

	Workers       int
	UploadTimeout time.Duration
}

// PutObjectAPI is the part of the S3 client the publisher needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads build directories to a bucket
type S3Publisher struct {
	client  PutObjectAPI
	cfg     Config
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewS3Publisher creates a publisher using the AWS SDK default configuration
func NewS3Publisher(ctx context.Context, cfg Config, logger *observability.Logger, metrics *observability.Metrics) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PublisherWithClient(client, cfg, logger, metrics), nil
}

// NewS3PublisherWithClient creates a publisher over an existing client
func NewS3PublisherWithClient(client PutObjectAPI, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *S3Publisher {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &S3Publisher{
		client:  client,
		cfg:     cfg,
		logger:  logger.WithField("component", "s3_publisher"),
		metrics: metrics,
	}
}

// Key returns the object key of name within a build
func (p *S3Publisher) Key(buildID, name string) string {
	return path.Join(p.cfg.Prefix, buildID, name)
}

// Publish uploads every file of the build directory
func (p *S3Publisher) Publish(ctx context.Context, build *builds.Build) error {
	entries, err := os.ReadDir(build.Dir)
	if err != nil {
		p.metrics.RecordUpload("error")
		return fmt.Errorf("failed to list build: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}

	errs := async.Batch(ctx, files, p.cfg.Workers, p.cfg.UploadTimeout, func(ctx context.Context, name string) error {
		return p.upload(ctx, build, name)
	})
	if len(errs) > 0 {
		p.metrics.RecordUpload("error")
		var result *multierror.Error
		for _, e := range errs {
			result = multierror.Append(result, e)
		}
		return result.ErrorOrNil()
	}

	p.metrics.RecordUpload("ok")
	observability.FromContext(ctx, p.logger).WithFields(map[string]interface{}{
		"build_id": build.ID,
		"objects":  len(files),
		"bucket":   p.cfg.Bucket,
	}).Info("Build mirrored")
	return nil
}

func (p *S3Publisher) upload(ctx context.Context, build *builds.Build, name string) error {
	f, err := os.Open(filepath.Join(build.Dir, name))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadFailed, name, err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadFailed, name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadFailed, name, err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.cfg.Bucket),
		Key:           aws.String(p.Key(build.ID, name)),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(name)),
		Metadata: map[string]string{
			"build-id":      build.ID,
			"artifact-kind": string(build.ArtifactKind),
			"item-count":    strconv.Itoa(build.ItemCount),
			"sha256":        hex.EncodeToString(hasher.Sum(nil)),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadFailed, name, err)
	}
	return nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".exe":
		return "application/vnd.microsoft.portable-executable"
	case ".ps1", ".bat":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
