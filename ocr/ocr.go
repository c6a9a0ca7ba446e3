// Package ocr extracts raw text lines from uploaded medicine-strip images.
// Recognition itself is delegated to an external engine; this package only
// locates images, runs the engine and splits its output into lines.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/google/uuid"
)

var (
	// ErrImageNotFound is returned when an image id does not name a file in the image directory.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImageID is returned for ids that would escape the image directory.
	ErrInvalidImageID = errors.New("invalid image id")
	// ErrUnsupportedFormat is returned when saving a file with an unknown image extension.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var (
	_ interfaces.TextExtractor = (*CommandExtractor)(nil)
	_ interfaces.TextExtractor = (*SidecarExtractor)(nil)
	_ interfaces.TextExtractor = (*FallbackExtractor)(nil)
)

// SupportedExtensions lists the image types accepted for upload.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff"}

// ResolvePath maps imageID to a file inside dir. IDs containing path
// separators or parent references are rejected.
func ResolvePath(dir, imageID string) (string, error) {
	id := strings.TrimSpace(imageID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageID, imageID)
	}

	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve image directory: %w", err)
	}
	path := filepath.Join(base, id)
	if rel, err := filepath.Rel(base, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageID, imageID)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	return path, nil
}

// SaveImage stores an uploaded image under a fresh id and returns that id.
func SaveImage(dir, ext string, r io.Reader) (string, error) {
	ext = strings.ToLower(ext)
	if !isSupported(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}

	id := uuid.NewString() + ext
	path := filepath.Join(dir, id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if err := writeAndClose(f, r); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	logging.Info("Stored uploaded image", "image_id", id)
	return id, nil
}

func writeAndClose(f *os.File, r io.Reader) error {
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image file: %w", err)
	}
	return nil
}

func isSupported(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// SplitLines trims each line and drops blank ones.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FallbackExtractor tries each extractor in order and returns the first
// successful result. ErrImageNotFound and ErrInvalidImageID stop the chain.
type FallbackExtractor struct {
	extractors []interfaces.TextExtractor
}

func NewFallbackExtractor(extractors ...interfaces.TextExtractor) *FallbackExtractor {
	return &FallbackExtractor{extractors: extractors}
}

func (f *FallbackExtractor) Extract(ctx context.Context, imageID string) ([]string, error) {
	var errs []error
	for _, e := range f.extractors {
		lines, err := e.Extract(ctx, imageID)
		if err == nil {
			return lines, nil
		}
		if errors.Is(err, ErrImageNotFound) || errors.Is(err, ErrInvalidImageID) {
			return nil, err
		}
		logging.Warn("Text extractor failed, trying next", "image_id", imageID, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no text extractor configured")
	}
	return nil, errors.Join(errs...)
}
