package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Console receives the text output. Commands that print results on stdout
// point it at stderr before calling InitLogger.
var Console io.Writer = os.Stdout

const (
	defaultMaxFileSize = 50 * 1024 * 1024
	defaultRetention   = 14 * 24 * time.Hour
)

// RotatingFile writes to one file per day under dir, starting a numbered
// continuation file when the size limit is reached.
type RotatingFile struct {
	dir         string
	maxFileSize int64
	retention   time.Duration

	mu      sync.Mutex
	file    *os.File
	day     string
	seq     int
	written int64
	now     func() time.Time
}

// NewRotatingFile creates dir if needed and opens today's file.
func NewRotatingFile(dir string, maxFileSize int64, retention time.Duration) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	rf := &RotatingFile{dir: dir, maxFileSize: maxFileSize, retention: retention, now: time.Now}

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if err := rf.open(rf.now().Format(time.DateOnly), 0); err != nil {
		return nil, err
	}
	return rf, nil
}

func fileName(day string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("pharma-%s.log", day)
	}
	return fmt.Sprintf("pharma-%s_%02d.log", day, seq)
}

// open switches to the file for day/seq (caller holds mu).
func (rf *RotatingFile) open(day string, seq int) error {
	if rf.file != nil {
		rf.file.Close()
	}
	path := filepath.Join(rf.dir, fileName(day, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	rf.file, rf.day, rf.seq, rf.written = f, day, seq, 0
	if info, err := f.Stat(); err == nil {
		rf.written = info.Size()
	}
	return nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	day := rf.now().Format(time.DateOnly)
	switch {
	case day != rf.day:
		if err := rf.open(day, 0); err != nil {
			return 0, err
		}
	case rf.written+int64(len(p)) > rf.maxFileSize && rf.written > 0:
		if err := rf.open(day, rf.seq+1); err != nil {
			return 0, err
		}
	}
	if rf.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rf.file.Write(p)
	rf.written += int64(n)
	return n, err
}

// Cleanup removes log files older than the retention window and returns how many went.
func (rf *RotatingFile) Cleanup() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}
	cutoff := rf.now().Add(-rf.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "pharma-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rf.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// SetupLogger returns a logger writing text to stdout and, when logDir is
// set, JSON to a rotating file. Falls back to console-only on any file error.
func SetupLogger(logDir string, level slog.Level) (*slog.Logger, *RotatingFile) {
	console := slog.NewTextHandler(Console, &slog.HandlerOptions{Level: level})
	if logDir == "" {
		return slog.New(console), nil
	}

	rf, err := NewRotatingFile(logDir, defaultMaxFileSize, defaultRetention)
	if err != nil {
		logger := slog.New(console)
		logger.Error("Failed to initialize log file, logging to console only", "error", err)
		return logger, nil
	}
	if n, err := rf.Cleanup(); err != nil {
		slog.Warn("Failed to clean up old logs", "error", err)
	} else if n > 0 {
		fmt.Fprintf(Console, "Cleaned up %d old log files\n", n)
	}

	file := slog.NewJSONHandler(rf, &slog.HandlerOptions{Level: level})
	return slog.New(&multiHandler{handlers: []slog.Handler{console, file}}), rf
}

// multiHandler fans records out to every handler that accepts the level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
