package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apexwatch/face-enroll/internal/constants"
)

//go:embed formats.yaml
var formatsYAML []byte

type Config struct {
	Enrollment EnrollmentConfig
	Pipeline   PipelineConfig
	Server     ServerConfig
	LogLevel   string
	Formats    FormatsConfig
}

type EnrollmentConfig struct {
	URL     string        // base URL of the enrollment service (e.g., http://recognizer:5001)
	Timeout time.Duration // per-call ceiling; a call that exceeds it marks the item failed
}

type PipelineConfig struct {
	ItemDelay      time.Duration // throttle between consecutive enrollment calls
	PreviewDir     string        // scratch directory for preview thumbnails (empty = temp dir)
	PreviewMaxEdge int           // maximum dimension of a preview thumbnail
}

type ServerConfig struct {
	Addr string // listen address for the HTTP API (e.g., :8484)
}

type FormatsConfig struct {
	Formats []ImageFormat `yaml:"formats"`
}

type ImageFormat struct {
	MediaType  string   `yaml:"media_type"`
	Extensions []string `yaml:"extensions"`
}

// MediaTypeForFile maps a file name to its declared media type using the
// embedded format table. Returns empty string for unknown extensions.
func (c *Config) MediaTypeForFile(name string) string {
	ext := strings.ToLower(name)
	if idx := strings.LastIndex(ext, "."); idx >= 0 {
		ext = ext[idx:]
	} else {
		return ""
	}
	for _, f := range c.Formats.Formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f.MediaType
			}
		}
	}
	return ""
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration
// (e.g., "500ms", "30s"). Returns the default value if unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var formats FormatsConfig
	if err := yaml.Unmarshal(formatsYAML, &formats); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded formats.yaml: " + err.Error())
	}

	return &Config{
		Enrollment: EnrollmentConfig{
			URL:     os.Getenv("ENROLL_API_URL"),
			Timeout: envDuration("ENROLL_TIMEOUT", constants.DefaultCallTimeoutS*time.Second),
		},
		Pipeline: PipelineConfig{
			ItemDelay:      envDuration("ITEM_DELAY", constants.DefaultItemDelayMs*time.Millisecond),
			PreviewDir:     os.Getenv("PREVIEW_DIR"),
			PreviewMaxEdge: envInt("PREVIEW_MAX_EDGE", constants.PreviewMaxEdge),
		},
		Server: ServerConfig{
			Addr: envString("LISTEN_ADDR", ":8484"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
		Formats:  formats,
	}
}
