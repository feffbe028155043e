package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("ENROLL_TIMEOUT")
	os.Unsetenv("ITEM_DELAY")
	os.Unsetenv("LISTEN_ADDR")
	os.Unsetenv("LOG_LEVEL")

	cfg := Load()

	if cfg.Enrollment.Timeout != 30*time.Second {
		t.Errorf("expected default enrollment timeout 30s, got %v", cfg.Enrollment.Timeout)
	}

	if cfg.Pipeline.ItemDelay != 500*time.Millisecond {
		t.Errorf("expected default item delay 500ms, got %v", cfg.Pipeline.ItemDelay)
	}

	if cfg.Server.Addr != ":8484" {
		t.Errorf("expected default listen addr ':8484', got '%s'", cfg.Server.Addr)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoad_EnrollmentConfig(t *testing.T) {
	t.Setenv("ENROLL_API_URL", "http://recognizer.test:5001")
	t.Setenv("ENROLL_TIMEOUT", "10s")

	cfg := Load()

	if cfg.Enrollment.URL != "http://recognizer.test:5001" {
		t.Errorf("expected URL 'http://recognizer.test:5001', got '%s'", cfg.Enrollment.URL)
	}

	if cfg.Enrollment.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Enrollment.Timeout)
	}
}

func TestLoad_CustomItemDelay(t *testing.T) {
	t.Setenv("ITEM_DELAY", "50ms")

	cfg := Load()

	if cfg.Pipeline.ItemDelay != 50*time.Millisecond {
		t.Errorf("expected item delay 50ms, got %v", cfg.Pipeline.ItemDelay)
	}
}

func TestLoad_InvalidItemDelay(t *testing.T) {
	t.Setenv("ITEM_DELAY", "not-a-duration")

	cfg := Load()

	// Should fall back to default
	if cfg.Pipeline.ItemDelay != 500*time.Millisecond {
		t.Errorf("expected default item delay 500ms for invalid input, got %v", cfg.Pipeline.ItemDelay)
	}
}

func TestLoad_NegativeItemDelay(t *testing.T) {
	t.Setenv("ITEM_DELAY", "-100ms")

	cfg := Load()

	// Negative durations are invalid, fall back to default
	if cfg.Pipeline.ItemDelay != 500*time.Millisecond {
		t.Errorf("expected default item delay 500ms for negative input, got %v", cfg.Pipeline.ItemDelay)
	}
}

func TestLoad_PreviewConfig(t *testing.T) {
	t.Setenv("PREVIEW_DIR", "/var/cache/previews")
	t.Setenv("PREVIEW_MAX_EDGE", "640")

	cfg := Load()

	if cfg.Pipeline.PreviewDir != "/var/cache/previews" {
		t.Errorf("expected preview dir '/var/cache/previews', got '%s'", cfg.Pipeline.PreviewDir)
	}

	if cfg.Pipeline.PreviewMaxEdge != 640 {
		t.Errorf("expected preview max edge 640, got %d", cfg.Pipeline.PreviewMaxEdge)
	}
}

func TestLoad_InvalidPreviewMaxEdge(t *testing.T) {
	t.Setenv("PREVIEW_MAX_EDGE", "0")

	cfg := Load()

	if cfg.Pipeline.PreviewMaxEdge != 320 {
		t.Errorf("expected default preview max edge 320 for zero input, got %d", cfg.Pipeline.PreviewMaxEdge)
	}
}

func TestLoad_FormatsLoaded(t *testing.T) {
	cfg := Load()

	// Verify formats were loaded from embedded YAML
	if len(cfg.Formats.Formats) == 0 {
		t.Error("expected formats to be loaded from embedded YAML")
	}

	// Should have at least the baseline formats
	expected := []string{"image/jpeg", "image/png"}
	for _, want := range expected {
		found := false
		for _, f := range cfg.Formats.Formats {
			if f.MediaType == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected media type '%s' to be in formats", want)
		}
	}
}

func TestMediaTypeForFile(t *testing.T) {
	cfg := Load()

	tests := []struct {
		name string
		want string
	}{
		{"alice.jpg", "image/jpeg"},
		{"bob_smith.JPEG", "image/jpeg"},
		{"badge.png", "image/png"},
		{"scan.tiff", "image/tiff"},
		{"notes.txt", ""},
		{"archive.tar.gz", ""},
		{"no-extension", ""},
	}

	for _, tc := range tests {
		if got := cfg.MediaTypeForFile(tc.name); got != tc.want {
			t.Errorf("MediaTypeForFile(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
