package receipt

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"softetsolutions/mattax/internal/fileutils"
	"softetsolutions/mattax/internal/models"
)

// DefaultMIMEType is used when a receipt's type cannot be determined.
const DefaultMIMEType = "image/jpeg"

// Extractor reads structured fields from a receipt image.
type Extractor interface {
	Extract(ctx context.Context, sess models.Session, file models.ReceiptFile) (models.ReceiptExtraction, error)
}

// WithTimeout bounds every extraction made through e to d. A non-positive d
// returns e unchanged.
func WithTimeout(e Extractor, d time.Duration) Extractor {
	if d <= 0 {
		return e
	}
	return timeoutExtractor{inner: e, timeout: d}
}

type timeoutExtractor struct {
	inner   Extractor
	timeout time.Duration
}

func (t timeoutExtractor) Extract(ctx context.Context, sess models.Session, file models.ReceiptFile) (models.ReceiptExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Extract(ctx, sess, file)
}

// FileFromPath loads a receipt image from disk. The MIME type comes from the
// file extension, then from content sniffing, then fallback.
func FileFromPath(path, fallback string) (models.ReceiptFile, error) {
	data, err := fileutils.ReadFile(path)
	if err != nil {
		return models.ReceiptFile{}, fmt.Errorf("failed to read receipt %s: %w", path, err)
	}
	return models.ReceiptFile{
		Name:     filepath.Base(path),
		MIMEType: detectMIMEType(path, data, fallback),
		Data:     data,
	}, nil
}

func detectMIMEType(path string, data []byte, fallback string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}
	if t := http.DetectContentType(data); t != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}
	if fallback == "" {
		return DefaultMIMEType
	}
	return fallback
}
