package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Uploader is the part of manager.Uploader the archive uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArchiveConfig locates the bucket. Empty credentials fall back to the
// default AWS chain; Endpoint targets S3-compatible stores.
type ArchiveConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Archive uploads finished runs to S3 under
// <prefix>/<lottery>/<variant>/<run id>/.
type Archive struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewArchive wraps an uploader.
func NewArchive(uploader Uploader, bucket, prefix string, log zerolog.Logger) *Archive {
	return &Archive{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("component", "strategy_archive").Logger(),
	}
}

// NewS3Archive builds an S3 client from cfg.
func NewS3Archive(ctx context.Context, cfg ArchiveConfig, log zerolog.Logger) (*Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
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
	return NewArchive(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// Key returns the object key of name within the folder of run.
func (a *Archive) Key(run *Run, name string) string {
	return path.Join(a.prefix, run.Lottery, string(run.Variant), run.ID, name)
}

// Put uploads the run summary and its fitness log.
func (a *Archive) Put(ctx context.Context, run *Run) error {
	summary := *run
	summary.Log = nil

	objects := []struct {
		name string
		body interface{}
	}{
		{name: "run.json", body: summary},
		{name: "optimizer_log.json", body: run.Log},
	}

	for _, obj := range objects {
		data, err := json.MarshalIndent(obj.body, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: failed to encode %s: %w", ErrPersistence, obj.name, err)
		}
		key := a.Key(run, obj.name)
		_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to upload %s: %w", ErrPersistence, key, err)
		}
	}

	a.log.Info().Str("run_id", run.ID).Str("bucket", a.bucket).Msg("Archived optimisation run")
	return nil
}
