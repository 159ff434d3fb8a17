// Package storage talks to the S3-compatible bucket (Cloudflare R2 by default)
// that holds uploaded objects.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const (
	defaultPresignExpiry = time.Hour
	defaultMaxKeys       = 1000
	defaultRegion        = "auto"
)

// Config captures the bucket credentials and addressing.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	// Endpoint overrides the account-derived R2 endpoint, e.g. for MinIO.
	Endpoint string
	Region   string
	// MaxAttempts bounds the SDK retryer; 1 disables retries.
	MaxAttempts int
}

// endpoint returns the S3 API endpoint for cfg.
func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// R2Client implements ports.ObjectStore.
type R2Client struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	log       zerolog.Logger
}

var _ ports.ObjectStore = (*R2Client)(nil)

// NewS3Client builds the SDK client for cfg. Checksums are only computed when
// an operation requires them; R2 rejects some of the SDK's default trailers.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRetryMaxAttempts(attempts),
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		awsconfig.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.endpoint())
		o.UsePathStyle = cfg.Endpoint != ""
	}), nil
}

// NewR2Client wraps an SDK client bound to bucket. publicURL is the base used
// by PublicURL; when empty the bucket's default R2 hostname is used.
func NewR2Client(client *s3.Client, bucket, publicURL string, log zerolog.Logger) *R2Client {
	return &R2Client{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Put writes body under key. Transport and storage errors are returned as-is.
func (r *R2Client) Put(ctx context.Context, key string, body []byte, mimeType string, metadata map[string]string) (*domain.StoredObject, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(mimeType),
		Metadata:      metadata,
	})
	if err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("object upload failed")
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	r.log.Debug().Str("key", key).Int("size", len(body)).Msg("object uploaded")
	return &domain.StoredObject{
		Key:      key,
		URL:      r.PublicURL(key),
		Size:     int64(len(body)),
		MimeType: mimeType,
	}, nil
}

func (r *R2Client) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("object delete failed")
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Get reads the whole object. A missing key yields an error of kind
// domain.ErrNotFound.
func (r *R2Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewError(domain.ErrNotFound, "object %s not found", key)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Exists issues a HEAD request. Only a not-found answer maps to false.
func (r *R2Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", key, err)
}

// List returns up to maxKeys keys under prefix in the order the store reports them.
func (r *R2Client) List(ctx context.Context, prefix string, maxKeys int) ([]string, error) {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	out, err := r.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// PresignUpload signs a PUT for key locally; no request reaches the bucket.
func (r *R2Client) PresignUpload(ctx context.Context, key string, opts ports.PresignOptions) (string, error) {
	expires := opts.Expires
	if expires <= 0 {
		expires = defaultPresignExpiry
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}

	req, err := r.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignDownload signs a GET for key locally.
func (r *R2Client) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = defaultPresignExpiry
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PublicURL builds the retrieval URL for key without touching the network.
func (r *R2Client) PublicURL(key string) string {
	if r.publicURL != "" {
		return r.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", r.bucket, key)
}

// Ping checks that the bucket is reachable with the configured credentials.
func (r *R2Client) Ping(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	return err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
