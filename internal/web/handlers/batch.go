package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apexwatch/face-enroll/internal/batch"
	"github.com/apexwatch/face-enroll/internal/config"
	"github.com/apexwatch/face-enroll/internal/constants"
)

// BatchHandler exposes the enrollment pipeline endpoints.
type BatchHandler struct {
	config   *config.Config
	pipeline *batch.Controller
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(cfg *config.Config, pipeline *batch.Controller) *BatchHandler {
	return &BatchHandler{
		config:   cfg,
		pipeline: pipeline,
	}
}

// BatchView is the full pipeline snapshot returned by Get.
type BatchView struct {
	State batch.State  `json:"state"`
	Items []batch.Item `json:"items"`
	Stats statsView    `json:"stats"`
}

// statsView joins the derived counts with the display-ready success rate.
type statsView struct {
	batch.Stats
	SuccessRate string `json:"success_rate"`
}

func newStatsView(s batch.Stats) statsView {
	return statsView{Stats: s, SuccessRate: s.DisplayRate()}
}

func (h *BatchHandler) batchView() BatchView {
	return BatchView{
		State: h.pipeline.State(),
		Items: h.pipeline.Items(),
		Stats: newStatsView(h.pipeline.Stats()),
	}
}

// respondBatchError maps pipeline sentinels to HTTP status codes.
func respondBatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batch.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, batch.ErrItemBusy):
		respondError(w, http.StatusConflict, "item is being processed")
	case errors.Is(err, batch.ErrBatchRunning):
		respondError(w, http.StatusConflict, "a batch run is active")
	case errors.Is(err, batch.ErrNoPending):
		respondError(w, http.StatusConflict, "no pending items to process")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Get returns the queue, the controller state, and derived counts.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.batchView())
}

// Stats returns the derived counts only.
func (h *BatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newStatsView(h.pipeline.Stats()))
}

// readFormFile loads one multipart file into memory. Reads stop one byte
// past the size ceiling; the validator rejects anything over it.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, constants.MaxFileSize+1))
}

// contentTypeFor takes the declared part header, falling back to the
// extension table when the client sent nothing useful.
func (h *BatchHandler) contentTypeFor(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return h.config.MediaTypeForFile(fh.Filename)
}

// AddItems accepts multipart uploads under the "files" field, screens them,
// and queues the accepted ones. The response carries both accepted items
// and per-file rejections.
func (h *BatchHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	files := make([]batch.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		files = append(files, batch.IncomingFile{
			Name:        filepath.Base(fh.Filename),
			ContentType: h.contentTypeFor(fh),
			Data:        data,
		})
	}

	report := h.pipeline.AddFiles(files)
	respondJSON(w, http.StatusOK, report)
}

// updateItemRequest carries optional metadata edits; absent fields stay.
type updateItemRequest struct {
	DisplayName *string `json:"display_name"`
	Department  *string `json:"department"`
	AccessLevel *string `json:"access_level"`
}

// UpdateItem merges metadata edits into one pending item.
func (h *BatchHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		respondError(w, http.StatusBadRequest, "display_name must not be empty")
		return
	}

	item, err := h.pipeline.UpdateItemMetadata(itemID, batch.MetadataPatch{
		DisplayName: req.DisplayName,
		Department:  req.Department,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		respondBatchError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// RemoveItem deletes one item from the queue.
func (h *BatchHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	if err := h.pipeline.RemoveItem(itemID); err != nil {
		respondBatchError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Clear removes every queued item.
func (h *BatchHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.ClearAll(); err != nil {
		respondBatchError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// Start launches a processing run over the pending items.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Start(); err != nil {
		respondBatchError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"state": string(h.pipeline.State())})
}

// Pause asks the run to park after the in-flight item.
func (h *BatchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Pause()
	respondJSON(w, http.StatusOK, map[string]string{"state": string(h.pipeline.State())})
}

// Resume continues a paused run.
func (h *BatchHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Resume()
	respondJSON(w, http.StatusOK, map[string]string{"state": string(h.pipeline.State())})
}

// Retry resets failed items to pending for another run.
func (h *BatchHandler) Retry(w http.ResponseWriter, r *http.Request) {
	reset := h.pipeline.RetryFailed()
	respondJSON(w, http.StatusOK, map[string]int{"reset": reset})
}

// Preview streams the stored thumbnail for one item.
func (h *BatchHandler) Preview(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	item, ok := h.pipeline.Item(itemID)
	if !ok {
		respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.Preview == nil {
		respondError(w, http.StatusNotFound, "no preview available")
		return
	}

	w.Header().Set("Content-Type", item.Preview.ContentType())
	http.ServeFile(w, r, item.Preview.Path())
}
