// Package storage hands out presigned upload URLs for product images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-api/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

const UploadURLTTL = 15 * time.Minute

var ErrUnsupportedContentType = errors.New("unsupported image content type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Upload struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

type ImageStore interface {
	PresignUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*Upload, error)
}

type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3ImageStore struct {
	bucket  string
	presign presigner
	now     func() time.Time
}

// NewS3ImageStore builds a presign client with static credentials. A custom
// endpoint switches to path-style addressing so MinIO works out of the box.
func NewS3ImageStore(ctx context.Context, cfg utils.S3Config) (*S3ImageStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, oops.Code("S3_CONFIG_FAILED").Wrapf(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ImageStore{
		bucket:  cfg.Bucket,
		presign: s3.NewPresignClient(client),
		now:     time.Now,
	}, nil
}

func (s *S3ImageStore) PresignUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*Upload, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	now := s.now()
	key := ObjectKey(ownerID, now, ext)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(UploadURLTTL))
	if err != nil {
		return nil, oops.Code("S3_PRESIGN_FAILED").With("key", key).Wrapf(err, "presign put object")
	}

	return &Upload{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: now.Add(UploadURLTTL),
	}, nil
}

// ObjectKey lays images out as products/<owner>/<yyyy>/<mm>/<uuid><ext>.
func ObjectKey(ownerID uuid.UUID, now time.Time, ext string) string {
	return fmt.Sprintf("products/%s/%04d/%02d/%s%s", ownerID, now.Year(), int(now.Month()), uuid.New(), ext)
}
