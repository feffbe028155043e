package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/apexwatch/face-enroll/internal/constants"
	"github.com/apexwatch/face-enroll/internal/preview"
)

var (
	// ErrUnsupportedType rejects files whose declared media type is not an
	// image format.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge rejects files over the size ceiling.
	ErrTooLarge = errors.New("file exceeds the size limit")

	// ErrDuplicate rejects files whose content is already in the batch.
	ErrDuplicate = errors.New("duplicate of a file already in the batch")
)

// Validator screens candidate files before they enter the queue. Accepted
// files get an id, a derived display name, and a preview resource; rejected
// files allocate nothing.
type Validator struct {
	queue    *Queue
	previews *preview.Store
	maxSize  int64
}

// NewValidator creates a validator that screens against the given queue's
// contents and allocates previews from the given store.
func NewValidator(queue *Queue, previews *preview.Store) *Validator {
	return &Validator{
		queue:    queue,
		previews: previews,
		maxSize:  constants.MaxFileSize,
	}
}

// Validate checks one candidate file and, on acceptance, builds a pending
// item whose preview the queue becomes responsible for releasing. The item
// is returned unqueued; the caller decides when to add it.
func (v *Validator) Validate(f IncomingFile) (*Item, error) {
	if !strings.HasPrefix(f.ContentType, constants.ImageMediaTypePrefix) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, f.ContentType)
	}

	size := int64(len(f.Data))
	if size > v.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, v.maxSize)
	}

	sum := sha256.Sum256(f.Data)
	hash := hex.EncodeToString(sum[:])
	if v.queue.containsHash(hash) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, f.Name)
	}

	id := uuid.New().String()

	handle, err := v.previews.Create(id, f.ContentType, f.Data)
	if err != nil {
		return nil, fmt.Errorf("could not allocate preview: %w", err)
	}

	return &Item{
		ID:          id,
		FileName:    f.Name,
		ContentType: f.ContentType,
		Size:        size,
		DisplayName: deriveDisplayName(f.Name),
		Status:      StatusPending,
		Data:        f.Data,
		Hash:        hash,
		Preview:     handle,
	}, nil
}
