package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
)

// CommandExtractor runs an OCR engine binary as "<command> <image> stdout",
// the calling convention of tesseract.
type CommandExtractor struct {
	Command string
	Args    []string
	Dir     string
}

// NewCommandExtractor creates an extractor running command over images in dir.
func NewCommandExtractor(command, dir string, extraArgs ...string) *CommandExtractor {
	return &CommandExtractor{Command: command, Args: extraArgs, Dir: dir}
}

func (c *CommandExtractor) Extract(ctx context.Context, imageID string) ([]string, error) {
	path, err := ResolvePath(c.Dir, imageID)
	if err != nil {
		return nil, err
	}

	args := append([]string{path, "stdout"}, c.Args...)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.Command, err, strings.TrimSpace(stderr.String()))
	}

	lines := SplitLines(stdout.String())
	logging.Info("OCR extracted text", "image_id", imageID, "engine", c.Command, "lines", len(lines))
	return lines, nil
}
