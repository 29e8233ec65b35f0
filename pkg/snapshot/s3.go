package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
)

// ContentType is the media type of uploaded snapshots.
const ContentType = "application/x-louvain-snapshot"

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Uploader.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Uploader stores snapshots as objects under a key prefix.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger logging.Logger
}

// NewS3Uploader loads the AWS configuration and builds an S3 client.
// Static keys, when set, replace the default credential chain.
func NewS3Uploader(ctx context.Context, opts S3Options, logger logging.Logger) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewS3UploaderWithClient(client, opts.Bucket, opts.Prefix, logger), nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client ObjectPutter, bucket, prefix string, logger logging.Logger) *S3Uploader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With(logging.Component("s3")),
	}
}

// Key returns the object key for snap: <prefix>/<run id>.lvsn.
func (u *S3Uploader) Key(snap *Snapshot) string {
	return path.Join(u.prefix, snap.RunID.String()+".lvsn")
}

// Upload encodes snap and puts it under Key(snap), returning the key.
func (u *S3Uploader) Upload(ctx context.Context, snap *Snapshot) (string, error) {
	data, err := Encode(snap)
	if err != nil {
		return "", err
	}

	key := u.Key(snap)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType),
		Metadata: map[string]string{
			"fingerprint": snap.Fingerprint,
		},
	})
	if err != nil {
		u.logger.Error("snapshot upload failed",
			logging.String("bucket", u.bucket),
			logging.String("key", key),
			logging.Error(err))
		return "", fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", u.bucket, key, err)
	}

	u.logger.Info("snapshot uploaded",
		logging.String("bucket", u.bucket),
		logging.String("key", key),
		logging.RunID(snap.RunID.String()),
		logging.Int("bytes", len(data)))
	return key, nil
}
