package storage

import (
	"alcyxob/checkin-scheduler/internal/config"
	"alcyxob/checkin-scheduler/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Archive writes purge snapshots to an S3-compatible bucket as
// newline-delimited JSON, one check-in per line.
type S3Archive struct {
	client        objectPutter
	presignClient objectPresigner
	bucketName    string
	prefix        string
	urlExpiry     time.Duration
	now           func() time.Time
}

// NewS3Archive creates the archive store from config.
func NewS3Archive(ctx context.Context, cfg config.S3Config) (*S3Archive, error) {
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	// Path-style addressing for S3-compatible endpoints such as MinIO.
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	slog.Info("S3 archive initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName, "prefix", cfg.ArchivePrefix)

	return newS3Archive(s3Client, s3.NewPresignClient(s3Client), cfg.BucketName, cfg.ArchivePrefix, cfg.URLExpiry), nil
}

func newS3Archive(client objectPutter, presigner objectPresigner, bucket, prefix string, expiry time.Duration) *S3Archive {
	if expiry <= 0 {
		expiry = DefaultPresignedURLExpiry
	}
	return &S3Archive{
		client:        client,
		presignClient: presigner,
		bucketName:    bucket,
		prefix:        prefix,
		urlExpiry:     expiry,
		now:           time.Now,
	}
}

// ObjectKey returns <prefix>/<yyyy>/<mm>/<dd>/<batchID>.ndjson.
func (s *S3Archive) ObjectKey(batchID string) string {
	day := s.now().UTC().Format("2006/01/02")
	return path.Join(s.prefix, day, batchID+".ndjson")
}

// ArchiveCheckIns uploads records and returns the object key.
func (s *S3Archive) ArchiveCheckIns(ctx context.Context, batchID string, records []domain.CheckIn) (string, error) {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("encode check-in %s: %w", rec.ID, err)
		}
	}

	key := s.ObjectKey(batchID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String(ArchiveContentType),
		Metadata: map[string]string{
			"batch-id": batchID,
			"records":  fmt.Sprint(len(records)),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upload purge archive", "key", key, "bucket", s.bucketName, "error", err)
		return "", err
	}

	slog.InfoContext(ctx, "Purge archive uploaded", "key", key, "records", len(records))
	return key, nil
}

// DownloadURL presigns a GET for key.
func (s *S3Archive) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
