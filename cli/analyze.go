package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/ocr"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/spf13/cobra"
)

var (
	analyzeLines   []string
	analyzeText    string
	analyzeStream  bool
	analyzeTimeout time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Analyze one label photo or a list of text lines",
	Long: `Analyze runs the full pipeline once and prints the result as JSON.

The input is either an image file, which is copied to the image directory
for the duration of the run, or text given with --line or --text.

Example:
  pharma-safe-lens analyze strip.jpg
  pharma-safe-lens analyze --line "Ecosprin 75" --line "Warfarin 5mg"
  pharma-safe-lens analyze --text label.txt --stream`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeLines, "line", nil, "text line from a label, repeatable")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "file with one label line per line, - for stdin")
	analyzeCmd.Flags().BoolVar(&analyzeStream, "stream", false, "print one JSON event per line as results arrive")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().String("ocr-command", "", "OCR program run on the image")
	analyzeCmd.Flags().String("image-dir", "", "directory images are staged in")

	bindFlags(analyzeCmd, map[string]string{
		"ocr-command": "ocr_command",
		"image-dir":   "image_dir",
	})

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the result
	logging.Console = cmd.ErrOrStderr()
	logging.InitLoggerWithLevel("", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	if err := app.Scheduler.Reload(ctx); err != nil {
		logging.Warn("Reference data loaded with errors", "error", err)
	}

	in, cleanup, err := analysisInput(cmd, args, cfg.ImageDir)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	if analyzeStream {
		enc := json.NewEncoder(out)
		return app.Analyzer.Stream(ctx, in, func(e entities.StreamEvent) error {
			return enc.Encode(e)
		})
	}

	result, err := app.Analyzer.Analyze(ctx, in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// analysisInput builds the pipeline input from exactly one source. An image
// is staged in imageDir and removed by the returned cleanup.
func analysisInput(cmd *cobra.Command, args []string, imageDir string) (entities.AnalysisInput, func(), error) {
	noop := func() {}
	sources := 0
	if len(args) == 1 {
		sources++
	}
	if len(analyzeLines) > 0 {
		sources++
	}
	if analyzeText != "" {
		sources++
	}
	if sources != 1 {
		return entities.AnalysisInput{}, noop, errors.New("give exactly one of an image, --line or --text")
	}

	switch {
	case len(analyzeLines) > 0:
		return entities.AnalysisInput{Lines: analyzeLines}, noop, nil
	case analyzeText != "":
		lines, err := readLines(cmd.InOrStdin(), analyzeText)
		return entities.AnalysisInput{Lines: lines}, noop, err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return entities.AnalysisInput{}, noop, err
	}
	defer f.Close()

	id, err := ocr.SaveImage(imageDir, filepath.Ext(args[0]), f)
	if err != nil {
		return entities.AnalysisInput{}, noop, fmt.Errorf("stage image: %w", err)
	}
	cleanup := func() {
		if path, err := ocr.ResolvePath(imageDir, id); err == nil {
			_ = os.Remove(path)
		}
	}
	return entities.AnalysisInput{ImageID: id}, cleanup, nil
}

func readLines(stdin io.Reader, name string) ([]string, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
