package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
)

func init() {
	logging.InitLogger("")
}

func TestInitTracerExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer(&buf)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "test.span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "test.span") {
		t.Errorf("Expected exported span in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), ServiceName) {
		t.Error("Expected service name resource attribute")
	}
}
