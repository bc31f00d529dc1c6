// Package service contains the application's business logic layer.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"lumen/internal/config"
	"lumen/internal/middleware"
	"lumen/internal/models"
	"lumen/internal/observability"

	"github.com/chai2010/webp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	JPEGQuality                 = 82
	WebPQuality                 = 70

	uploadBackoffBase = 200 * time.Millisecond
)

// ObjectStore abstracts the object storage operations the media pipeline needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// UploadMediaInput describes one media upload request.
type UploadMediaInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult holds the public URLs of the stored renditions.
type UploadResult struct {
	URL     string `json:"url"`
	WebPURL string `json:"webp_url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// MediaService normalizes uploaded images and stores them in object storage.
type MediaService struct {
	store              ObjectStore
	bucket             string
	publicBaseURL      string
	maxUploadSizeBytes int64
	maxRetries         int

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewMediaService builds a MediaService with a real MinIO client from config.
func NewMediaService(cfg *config.Config) (*MediaService, error) {
	client, err := minio.New(cfg.MediaEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MediaAccessKey, cfg.MediaSecretKey, ""),
		Secure: cfg.MediaUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return NewMediaServiceWithStore(client, cfg), nil
}

// NewMediaServiceWithStore builds a MediaService around an existing store.
func NewMediaServiceWithStore(store ObjectStore, cfg *config.Config) *MediaService {
	maxUploadSizeMB := DefaultMediaMaxUploadSizeMB
	maxRetries := 1
	bucket := ""
	publicBaseURL := ""

	if cfg != nil {
		if cfg.MediaMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.MediaMaxUploadMB
		}
		if cfg.MediaUploadRetries > 0 {
			maxRetries = cfg.MediaUploadRetries
		}
		bucket = cfg.MediaBucket
		publicBaseURL = strings.TrimRight(cfg.MediaPublicBaseURL, "/")
	}

	return &MediaService{
		store:              store,
		bucket:             bucket,
		publicBaseURL:      publicBaseURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		maxRetries:         maxRetries,
		sleep:              sleepContext,
	}
}

// Upload validates and normalizes the image, then stores JPEG and WebP
// renditions. Transient storage errors are retried with exponential backoff
// up to the configured budget; once the budget is spent the whole upload
// fails and nothing is persisted.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (result *UploadResult, err error) {
	span, ctx := observability.NewSpan(ctx, "media.upload")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}
	span.AddAttributes(
		attribute.String("media.format", format),
		attribute.Int("media.size_bytes", len(in.Content)),
	)

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)

	encodedJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hash := buildDeterministicMediaHash(in.UserID, encodedJPG)
	jpgKey := fmt.Sprintf("media/%d/%s.jpg", in.UserID, hash)
	webpKey := fmt.Sprintf("media/%d/%s.webp", in.UserID, hash)

	if err := s.putWithRetry(ctx, jpgKey, encodedJPG, "image/jpeg"); err != nil {
		return nil, models.NewUploadError(err)
	}
	if err := s.putWithRetry(ctx, webpKey, encodedWebP, "image/webp"); err != nil {
		// Don't leave a half-uploaded pair behind.
		_ = s.store.RemoveObject(ctx, s.bucket, jpgKey, minio.RemoveObjectOptions{})
		return nil, models.NewUploadError(err)
	}

	bounds := master.Bounds()
	return &UploadResult{
		URL:     s.publicURL(jpgKey),
		WebPURL: s.publicURL(webpKey),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}

// Delete removes a stored object. Best effort; callers treat failures as non-fatal.
func (s *MediaService) Delete(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	return s.store.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}

// ObjectKeyFromURL maps a public media URL back to its storage key.
// Returns "" for URLs not served from this store.
func (s *MediaService) ObjectKeyFromURL(mediaURL string) string {
	if s.publicBaseURL == "" || !strings.HasPrefix(mediaURL, s.publicBaseURL+"/") {
		return ""
	}
	rest := strings.TrimPrefix(mediaURL, s.publicBaseURL+"/")
	rest = strings.TrimPrefix(rest, s.bucket+"/")
	return rest
}

func (s *MediaService) publicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectKey)
}

func (s *MediaService) putWithRetry(ctx context.Context, objectKey string, content []byte, contentType string) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := uploadBackoffBase * time.Duration(1<<(attempt-1))
			if !s.sleep(ctx, backoff) {
				return ctx.Err()
			}
		}

		_, err := s.store.PutObject(ctx, s.bucket, objectKey,
			bytes.NewReader(content), int64(len(content)),
			minio.PutObjectOptions{ContentType: contentType})
		if err == nil {
			middleware.MediaUploadAttempts.WithLabelValues("success").Inc()
			return nil
		}
		middleware.MediaUploadAttempts.WithLabelValues("failure").Inc()
		lastErr = err
	}
	return fmt.Errorf("upload of %s failed after %d attempts: %w", objectKey, s.maxRetries, lastErr)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func buildDeterministicMediaHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
