package photostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
)

const MaxPhotoBytes = 10 << 20

var (
	ErrEmptyPhoto = errors.New("photo is empty")
	ErrNotAnImage = errors.New("photo must be a JPEG, PNG, WebP or HEIC image")
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// DetectImage sniffs the photo bytes and returns its MIME type and file
// extension (with the leading dot).
func DetectImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyPhoto
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if mt.Is(allowed) {
			return allowed, mt.Extension(), nil
		}
	}
	return "", "", fmt.Errorf("%w: got %s", ErrNotAnImage, mt.String())
}

// ObjectPath names the object for a user's photo taken at the given instant.
func ObjectPath(userID string, at time.Time, ext string) string {
	return fmt.Sprintf("ride_photos/%s_%d%s", userID, at.UnixMilli(), ext)
}

// PublicURL prefers the assets domain when one is configured.
func PublicURL(baseURL, bucket, objectPath string) string {
	if baseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), objectPath)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}

// ObjectPathFromURL recovers the object path from a URL built by PublicURL.
func ObjectPathFromURL(url string) (string, bool) {
	i := strings.Index(url, "ride_photos/")
	if i < 0 {
		return "", false
	}
	return url[i:], true
}

type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewGCSStore(ctx context.Context, bucket, baseURL string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("photo bucket name is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Upload writes the photo and returns the URL it is served from.
func (s *GCSStore) Upload(ctx context.Context, userID string, data []byte, at time.Time) (string, error) {
	contentType, ext, err := DetectImage(data)
	if err != nil {
		return "", err
	}

	objectPath := ObjectPath(userID, at, ext)
	writer := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=31536000, immutable"

	if _, err := bytes.NewReader(data).WriteTo(writer); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return PublicURL(s.baseURL, s.bucket, objectPath), nil
}

// Delete removes an uploaded photo; used when the ride insert fails after upload.
func (s *GCSStore) Delete(ctx context.Context, url string) error {
	objectPath, ok := ObjectPathFromURL(url)
	if !ok {
		return fmt.Errorf("not a ride photo url: %s", url)
	}
	if err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete photo %s: %w", objectPath, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

var ErrNotConfigured = errors.New("photo storage is not configured")

// Unconfigured rejects every upload; used when no bucket is set.
type Unconfigured struct{}

func (Unconfigured) Upload(ctx context.Context, userID string, data []byte, at time.Time) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Delete(ctx context.Context, url string) error {
	return nil
}
