package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/iliyamo/movie-catalog/internal/config"
)

// objectAPI is the subset of *s3.Client used by S3Host.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Host stores posters in an S3-compatible bucket (AWS S3, MinIO, R2).
// Object keys have the form <folder>/<uuid>.jpg and double as the
// identifiers returned by Upload.
type S3Host struct {
	api        objectAPI
	bucket     string
	folder     string
	publicBase string
	timeout    time.Duration
	compressor Compressor
	newID      func() string
}

var _ Host = (*S3Host)(nil)

// NewS3Host builds an S3 client from cfg.  Static credentials are used when
// an access key is configured; otherwise the default AWS chain applies.
func NewS3Host(ctx context.Context, cfg config.MediaConfig) (*S3Host, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return newS3Host(client, cfg), nil
}

func newS3Host(api objectAPI, cfg config.MediaConfig) *S3Host {
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &S3Host{
		api:        api,
		bucket:     cfg.S3Bucket,
		folder:     strings.Trim(cfg.Folder, "/"),
		publicBase: publicBaseURL(cfg),
		timeout:    timeout,
		compressor: Compressor{MaxDimension: cfg.MaxDimension, Quality: cfg.JPEGQuality},
		newID:      uuid.NewString,
	}
}

// publicBaseURL resolves where stored objects are served from.  An explicit
// MEDIA_PUBLIC_BASE_URL wins; otherwise the bucket URL is derived from the
// endpoint (path style) or the AWS virtual-host form.
func publicBaseURL(cfg config.MediaConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.S3Endpoint != "" {
		return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
}

// Upload compresses u and stores it under a fresh key.  The call is bounded
// by the configured upload timeout.
func (h *S3Host) Upload(ctx context.Context, u Upload) (UploadResult, error) {
	img, err := h.compressor.Compress(u.Data)
	if err != nil {
		return UploadResult{}, err
	}
	key := path.Join(h.folder, h.newID()+img.Ext)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	_, err = h.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ContentType:   aws.String(img.ContentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("media: put %s: %w", key, err)
	}
	return UploadResult{URL: h.publicBase + "/" + key, ID: key}, nil
}

// Destroy deletes the object with the given key.  A missing object is not
// an error.
func (h *S3Host) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	_, err := h.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("media: delete %s: %w", id, err)
	}
	return nil
}

// LegacyKey derives an object identifier from a poster URL for records
// written before keys were stored: the last path segment without its
// extension, under folder.  It returns "" for an unparseable URL.
func LegacyKey(folder, posterURL string) string {
	seg := posterURL
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	if seg == "" {
		return ""
	}
	if folder = strings.Trim(folder, "/"); folder == "" {
		return seg
	}
	return folder + "/" + seg
}
