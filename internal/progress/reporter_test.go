package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ligustah/fetchd/pkg/fetch"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.5 TiB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"32KiB", 32 * 1024},
		{"256MiB", 256 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		{"1TiB", 1024 * 1024 * 1024 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
		{"1GB", 1000 * 1000 * 1000},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	_, err := ParseBytes("invalid")
	if err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestReporterTracking(t *testing.T) {
	reporter := NewReporter(Options{UpdateInterval: 100 * time.Millisecond})

	// Track progress without starting the reporter
	if reporter.totalSize.Load() != -1 {
		t.Errorf("expected unknown total size, got %d", reporter.totalSize.Load())
	}

	reporter.Resolved(fetch.Target{Path: "a.bin"}, 1024)
	if reporter.totalSize.Load() != 1024 {
		t.Errorf("expected total size 1024, got %d", reporter.totalSize.Load())
	}
	if reporter.target != "a.bin" {
		t.Errorf("expected target a.bin, got %s", reporter.target)
	}

	reporter.Written(256)
	reporter.Written(256)
	if reporter.writtenBytes.Load() != 512 {
		t.Errorf("expected 512 bytes, got %d", reporter.writtenBytes.Load())
	}
	if reporter.chunks.Load() != 2 {
		t.Errorf("expected 2 chunks, got %d", reporter.chunks.Load())
	}

	// Stop without Start is a no-op
	reporter.Stop()
}

// syncBuffer is a bytes.Buffer safe for the reporter's goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporterStartStop(t *testing.T) {
	var out syncBuffer
	reporter := NewReporter(Options{
		Output:         &out,
		UpdateInterval: 10 * time.Millisecond,
		SourceURL:      "https://example.com/file.bin",
	})

	reporter.Start()

	// Simulate chunk progress
	reporter.Resolved(fetch.Target{Backend: "s3://bucket/", Path: "file.bin"}, 512*1024)
	reporter.Written(256 * 1024)
	reporter.Written(256 * 1024)

	time.Sleep(50 * time.Millisecond) // Let updates run

	reporter.Stop()
	reporter.Stop()

	got := out.String()
	for _, want := range []string{
		"[fetchd] Downloading: https://example.com/file.bin",
		"[fetchd] Destination: s3://bucket/file.bin | Size: 512 KiB",
		"[fetchd] Progress:",
		"[fetchd] Transferred: 512 KiB in 2 chunks",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
