package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apexwatch/face-enroll/internal/batch"
	"github.com/apexwatch/face-enroll/internal/config"
	"github.com/apexwatch/face-enroll/internal/constants"
	"github.com/apexwatch/face-enroll/internal/enrollment"
	"github.com/apexwatch/face-enroll/internal/preview"
)

// stubEnroller answers every call successfully unless failAll is set.
type stubEnroller struct {
	mu      sync.Mutex
	count   int
	failAll bool
}

func (s *stubEnroller) Enroll(ctx context.Context, req enrollment.Request) (*enrollment.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.failAll {
		return nil, &enrollment.Error{Kind: enrollment.ErrKindRejected, Message: "no face found in image"}
	}
	return &enrollment.Identity{FaceID: int64(s.count), Name: req.Name}, nil
}

func (s *stubEnroller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// newTestHandler builds a batch handler around a fresh pipeline with a
// stub enrollment backend.
func newTestHandler(t *testing.T) (*BatchHandler, *stubEnroller) {
	t.Helper()

	store, err := preview.NewStore(t.TempDir(), constants.PreviewMaxEdge)
	if err != nil {
		t.Fatalf("failed to create preview store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q := batch.NewQueue()
	enroller := &stubEnroller{}
	pipeline := batch.NewController(q, batch.NewValidator(q, store), enroller, batch.Options{})
	return NewBatchHandler(config.Load(), pipeline), enroller
}

// testJPEG encodes a small solid-color image for upload fixtures.
func testJPEG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// formFile is one part of a multipart upload fixture.
type formFile struct {
	name        string
	contentType string
	data        []byte
}

// multipartBody builds a multipart form carrying files in order.
func multipartBody(t *testing.T, files []formFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		if f.contentType != "" {
			header.Set("Content-Type", f.contentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create form part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// addFiles pushes fixtures through the AddItems handler and returns the report.
func addFiles(t *testing.T, h *BatchHandler, files []formFile) batch.AddReport {
	t.Helper()

	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest("POST", "/api/v1/batch/items", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	h.AddItems(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var report batch.AddReport
	parseJSONResponse(t, recorder, &report)
	return report
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// waitForState blocks until the pipeline reaches the wanted state.
func waitForState(t *testing.T, c *batch.Controller, want batch.State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pipeline never reached state %q, still %q", want, c.State())
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
