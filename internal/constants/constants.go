// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Validation constants
const (
	// MaxFileSize is the upper bound in bytes for a single candidate image (5 MiB)
	MaxFileSize = 5 * 1024 * 1024

	// ImageMediaTypePrefix marks a declared media type as an image format
	ImageMediaTypePrefix = "image/"

	// MaxUploadMemory is the in-memory threshold for parsing multipart
	// uploads; larger request bodies spill to temporary files
	MaxUploadMemory = 64 * 1024 * 1024
)

// Processing constants
const (
	// DefaultItemDelayMs is the throttle between consecutive enrollment calls in milliseconds
	DefaultItemDelayMs = 500

	// DefaultCallTimeoutS is the per-call ceiling for one enrollment request in seconds.
	// A call that exceeds it marks the item failed with a timeout error.
	DefaultCallTimeoutS = 30
)

// Preview constants
const (
	// PreviewMaxEdge is the default maximum dimension (width or height) of a preview thumbnail
	PreviewMaxEdge = 320

	// PreviewJPEGQuality is the encoder quality for preview thumbnails
	PreviewJPEGQuality = 85
)

// Event constants
const (
	// EventBufferSize is the channel buffer per event subscriber; slow
	// subscribers drop events rather than blocking the pipeline
	EventBufferSize = 32
)
