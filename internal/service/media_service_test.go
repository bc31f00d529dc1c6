package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"lumen/internal/config"
	"lumen/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// objectStoreStub is a stub for ObjectStore.
type objectStoreStub struct {
	putFn    func(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	removeFn func(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

func (s *objectStoreStub) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return s.putFn(ctx, bucket, key, r, size, opts)
}

func (s *objectStoreStub) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	if s.removeFn == nil {
		return nil
	}
	return s.removeFn(ctx, bucket, key, opts)
}

func testMediaConfig(retries int) *config.Config {
	return &config.Config{
		MediaBucket:        "lumen-media",
		MediaPublicBaseURL: "http://localhost:9000",
		MediaMaxUploadMB:   10,
		MediaUploadRetries: retries,
	}
}

func newTestMediaService(store ObjectStore, retries int) *MediaService {
	svc := NewMediaServiceWithStore(store, testMediaConfig(retries))
	svc.sleep = func(_ context.Context, _ time.Duration) bool { return true }
	return svc
}

// pngBytes encodes a small solid image for upload tests.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Raw fixture bytes, so these tests do not depend on decoders that happen to
// be registered by encoding imports elsewhere in the test binary.
var (
	rawPNG1x1 = []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0xfc, 0xcf, 0xc0, 0x50,
		0x0f, 0x00, 0x04, 0x85, 0x01, 0x80, 0x84, 0xa9, 0x8c, 0x21, 0x00, 0x00,
		0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}
	rawGIF1x1 = []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
		0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
		0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
	}
)

func TestMediaService_Upload_DecodesRawPNGAndGIF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{"png", rawPNG1x1},
		{"gif", rawGIF1x1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &objectStoreStub{
				putFn: func(_ context.Context, _, key string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
					return minio.UploadInfo{Key: key}, nil
				},
			}
			svc := newTestMediaService(store, 1)

			result, err := svc.Upload(context.Background(), UploadMediaInput{
				UserID:  1,
				Content: tc.content,
			})
			require.NoError(t, err)
			assert.Equal(t, 1, result.Width)
			assert.Equal(t, 1, result.Height)
		})
	}
}

func TestMediaService_Upload_StoresBothRenditions(t *testing.T) {
	t.Parallel()

	var keys []string
	store := &objectStoreStub{
		putFn: func(_ context.Context, bucket, key string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			assert.Equal(t, "lumen-media", bucket)
			keys = append(keys, key)
			return minio.UploadInfo{Key: key}, nil
		},
	}
	svc := newTestMediaService(store, 3)

	result, err := svc.Upload(context.Background(), UploadMediaInput{
		UserID:   1,
		Filename: "photo.png",
		Content:  pngBytes(t, 32, 32),
	})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Contains(t, keys[0], ".jpg")
	assert.Contains(t, keys[1], ".webp")
	assert.Contains(t, result.URL, "http://localhost:9000/lumen-media/media/1/")
	assert.Contains(t, result.WebPURL, ".webp")
	assert.Equal(t, 32, result.Width)
	assert.Equal(t, 32, result.Height)
}

func TestMediaService_Upload_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	store := &objectStoreStub{
		putFn: func(_ context.Context, _, key string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			attempts++
			// First two attempts on the JPEG fail, everything after succeeds.
			if attempts <= 2 {
				return minio.UploadInfo{}, errors.New("connection reset")
			}
			return minio.UploadInfo{Key: key}, nil
		},
	}
	svc := newTestMediaService(store, 3)

	_, err := svc.Upload(context.Background(), UploadMediaInput{
		UserID:  1,
		Content: pngBytes(t, 8, 8),
	})
	require.NoError(t, err)
	// 2 failures + 1 success for JPEG, 1 success for WebP.
	assert.Equal(t, 4, attempts)
}

func TestMediaService_Upload_FailsAfterRetryBudget(t *testing.T) {
	t.Parallel()

	attempts := 0
	store := &objectStoreStub{
		putFn: func(_ context.Context, _, _ string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			attempts++
			return minio.UploadInfo{}, errors.New("storage down")
		},
	}
	svc := newTestMediaService(store, 3)

	_, err := svc.Upload(context.Background(), UploadMediaInput{
		UserID:  1,
		Content: pngBytes(t, 8, 8),
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPLOAD_FAILED", appErr.Code)
	assert.Equal(t, 3, attempts, "retry budget must be respected")
}

func TestMediaService_Upload_Validation(t *testing.T) {
	t.Parallel()

	store := &objectStoreStub{
		putFn: func(_ context.Context, _, _ string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			t.Fatal("invalid input must never reach object storage")
			return minio.UploadInfo{}, nil
		},
	}
	svc := newTestMediaService(store, 3)
	ctx := context.Background()

	tests := []struct {
		name  string
		input UploadMediaInput
	}{
		{"missing user", UploadMediaInput{Content: []byte{1}}},
		{"empty content", UploadMediaInput{UserID: 1}},
		{"not an image", UploadMediaInput{UserID: 1, Content: []byte("plain text, definitely not pixels")}},
		{"content type mismatch", UploadMediaInput{UserID: 1, ContentType: "image/gif", Content: pngBytes(t, 4, 4)}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Upload(ctx, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestMediaService_Upload_ResizesOversizedImages(t *testing.T) {
	t.Parallel()

	store := &objectStoreStub{
		putFn: func(_ context.Context, _, key string, _ io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			return minio.UploadInfo{Key: key}, nil
		},
	}
	svc := newTestMediaService(store, 1)

	result, err := svc.Upload(context.Background(), UploadMediaInput{
		UserID:  1,
		Content: pngBytes(t, 4096, 1024),
	})
	require.NoError(t, err)
	assert.Equal(t, 2048, result.Width)
	assert.Equal(t, 512, result.Height)
}

func TestMediaService_ObjectKeyFromURL(t *testing.T) {
	t.Parallel()

	svc := newTestMediaService(&objectStoreStub{}, 1)

	assert.Equal(t, "media/1/abc.jpg", svc.ObjectKeyFromURL("http://localhost:9000/lumen-media/media/1/abc.jpg"))
	assert.Equal(t, "", svc.ObjectKeyFromURL("https://elsewhere.example.com/media/1/abc.jpg"))
	assert.Equal(t, "", svc.ObjectKeyFromURL(""))
}
