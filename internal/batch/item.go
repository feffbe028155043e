// Package batch implements the face-enrollment pipeline: validation of
// candidate images, the FIFO queue of upload items, and the controller that
// drives items through the enrollment service one at a time.
package batch

import (
	"path/filepath"
	"strings"

	"github.com/apexwatch/face-enroll/internal/enrollment"
	"github.com/apexwatch/face-enroll/internal/preview"
)

// ItemStatus represents the lifecycle state of one upload item.
type ItemStatus string

// ItemStatus constants define the lifecycle states of an upload item.
const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusSuccess    ItemStatus = "success"
	StatusFailed     ItemStatus = "failed"
)

// IncomingFile is a candidate file before validation.
type IncomingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Item is one candidate face tracked through the enrollment pipeline.
// Exactly one of ErrorMessage/Result is set, and only in the matching
// status. Instances handed out by the queue are snapshots; the canonical
// state lives in the queue and changes only through its methods.
type Item struct {
	ID           string               `json:"id"`
	FileName     string               `json:"file_name"`
	ContentType  string               `json:"content_type"`
	Size         int64                `json:"size"`
	DisplayName  string               `json:"display_name"`
	Department   string               `json:"department,omitempty"`
	AccessLevel  string               `json:"access_level,omitempty"`
	Status       ItemStatus           `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Result       *enrollment.Identity `json:"result,omitempty"`

	Data    []byte          `json:"-"`
	Hash    string          `json:"-"`
	Preview *preview.Handle `json:"-"`
}

// MetadataPatch carries caller edits for one pending item. Nil fields are
// left untouched so a partial patch can distinguish "absent" from "empty".
type MetadataPatch struct {
	DisplayName *string `json:"display_name"`
	Department  *string `json:"department"`
	AccessLevel *string `json:"access_level"`
}

// deriveDisplayName strips the extension and normalizes separators:
// "bob_smith-jones.png" becomes "bob smith jones".
func deriveDisplayName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
