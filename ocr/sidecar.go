package ocr

import (
	"context"
	"fmt"
	"os"
)

// SidecarExtractor reads text recognised ahead of time from "<image>.txt"
// next to the image.
type SidecarExtractor struct {
	Dir string
}

func NewSidecarExtractor(dir string) *SidecarExtractor {
	return &SidecarExtractor{Dir: dir}
}

func (s *SidecarExtractor) Extract(ctx context.Context, imageID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := ResolvePath(s.Dir, imageID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read sidecar text: %w", err)
	}
	return SplitLines(string(data)), nil
}
