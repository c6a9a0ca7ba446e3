package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/config"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/generation"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/spf13/cobra"
)

func init() {
	logging.InitLogger("")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "0",
		Address:             "127.0.0.1",
		Env:                 config.EnvTest,
		LogLevel:            "error",
		MaxRequestBody:      1048576,
		MaxHeaderSize:       1048576,
		MaxUploadSize:       10485760,
		DrugDBPath:          "../files/drug_knowledge.json",
		InteractionsDBPath:  "../files/interactions.json",
		SimilarityThreshold: 80,
		LLMProvider:         generation.ProviderTemplate,
		GenerationFallback:  config.FallbackNone,
		CacheTTL:            time.Minute,
		OCRCommand:          "pharma-safe-lens-missing-ocr",
		ImageDir:            t.TempDir(),
	}
}

func TestNewAppAnalyzesLines(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.AuditDBPath = filepath.Join(t.TempDir(), "audit.db")

	app, err := NewApp(ctx, cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer func() { _ = app.Close(ctx) }()

	if err := app.Scheduler.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	result, err := app.Analyzer.Analyze(ctx, entities.AnalysisInput{
		Lines: []string{"ECOSPRIN 75", "Warfarin Sodium Tablets IP"},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.HighestRisk == nil || *result.HighestRisk != entities.RiskHigh {
		t.Errorf("Expected highest risk high, got %v", result.HighestRisk)
	}
	if app.Generator.Name() != generation.ProviderTemplate {
		t.Errorf("Expected template generator, got %s", app.Generator.Name())
	}
}

func TestNewAppRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "nonexistent"

	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNewAppFallsBackToMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected unreachable redis to be tolerated, got %v", err)
	}
	defer func() { _ = app.Close(context.Background()) }()

	if len(app.closers) != 0 {
		t.Errorf("Expected no redis client to close, got %d closers", len(app.closers))
	}
}

func TestAnalysisInput(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(t.TempDir(), "strip.png")
	if err := os.WriteFile(image, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		lines   []string
		text    string
		stdin   string
		wantErr bool
		check   func(t *testing.T, in entities.AnalysisInput)
	}{
		{name: "no source", wantErr: true},
		{name: "two sources", args: []string{image}, lines: []string{"Ecosprin"}, wantErr: true},
		{
			name:  "lines",
			lines: []string{"Ecosprin 75", "Glycomet"},
			check: func(t *testing.T, in entities.AnalysisInput) {
				if len(in.Lines) != 2 || in.ImageID != "" {
					t.Errorf("Unexpected input %+v", in)
				}
			},
		},
		{
			name:  "text from stdin",
			text:  "-",
			stdin: "Ecosprin 75\nWarfarin\n",
			check: func(t *testing.T, in entities.AnalysisInput) {
				if strings.Join(in.Lines, "|") != "Ecosprin 75|Warfarin" {
					t.Errorf("Unexpected lines %q", in.Lines)
				}
			},
		},
		{
			name: "image staged",
			args: []string{image},
			check: func(t *testing.T, in entities.AnalysisInput) {
				if !strings.HasSuffix(in.ImageID, ".png") {
					t.Errorf("Expected staged png id, got %q", in.ImageID)
				}
				if _, err := os.Stat(filepath.Join(dir, in.ImageID)); err != nil {
					t.Errorf("Expected staged file: %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzeLines, analyzeText = tt.lines, tt.text
			t.Cleanup(func() { analyzeLines, analyzeText = nil, "" })

			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))

			in, cleanup, err := analysisInput(cmd, tt.args, dir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.check(t, in)

			cleanup()
			if in.ImageID != "" {
				if _, err := os.Stat(filepath.Join(dir, in.ImageID)); !os.IsNotExist(err) {
					t.Error("Expected cleanup to remove the staged image")
				}
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), "pharma-safe-lens ") {
		t.Errorf("Unexpected version output %q", out.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "analyze", "version"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("Expected %s command, got %v (%v)", name, cmd, err)
		}
	}
}
