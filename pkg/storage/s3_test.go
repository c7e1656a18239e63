package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"marketplace-api/pkg/utils"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = uuid.MustParse("2b1c59e4-5a52-4d5c-9b67-0b6c1f0d8a11")

func newTestStore(t *testing.T) *S3ImageStore {
	t.Helper()
	store, err := NewS3ImageStore(context.Background(), utils.S3Config{
		Endpoint:  "http://127.0.0.1:9000",
		Region:    "us-east-1",
		Bucket:    "product-images",
		AccessKey: "minio",
		SecretKey: "minio-secret",
	})
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }
	return store
}

func TestS3ImageStore_PresignUpload(t *testing.T) {
	store := newTestStore(t)

	up, err := store.PresignUpload(context.Background(), owner, "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "products/"+owner.String()+"/2025/03/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, time.Date(2025, 3, 7, 10, 15, 0, 0, time.UTC), up.ExpiresAt)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/product-images/"+up.Key, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3ImageStore_RejectsNonImages(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PresignUpload(context.Background(), owner, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

type failingPresigner struct{}

func (failingPresigner) PresignPutObject(context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return nil, errors.New("signer exploded")
}

func TestS3ImageStore_PresignError(t *testing.T) {
	store := &S3ImageStore{bucket: "b", presign: failingPresigner{}, now: time.Now}

	_, err := store.PresignUpload(context.Background(), owner, "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, "S3_PRESIGN_FAILED", utils.ErrorCode(err))
}

func TestObjectKey_Unique(t *testing.T) {
	now := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	a := ObjectKey(owner, now, ".jpg")
	b := ObjectKey(owner, now, ".jpg")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "/2024/11/")
}
