package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// Enroll submits one candidate face and awaits exactly one response. It
// never retries; retrying is a batch-level decision made by the caller.
// All failures are returned as *Error with a displayable message.
func (c *Client) Enroll(ctx context.Context, r Request) (*Identity, error) {
	if r.Name == "" {
		return nil, newError(ErrKindRejected, "name is required")
	}

	// Create multipart form
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", r.FileName)
	if err != nil {
		return nil, newError(ErrKindTransport, "could not create form file: "+err.Error())
	}
	if _, err := part.Write(r.Data); err != nil {
		return nil, newError(ErrKindTransport, "could not write file data: "+err.Error())
	}

	if err := writer.WriteField("name", r.Name); err != nil {
		return nil, newError(ErrKindTransport, "could not write form field: "+err.Error())
	}
	if r.Department != "" {
		if err := writer.WriteField("department", r.Department); err != nil {
			return nil, newError(ErrKindTransport, "could not write form field: "+err.Error())
		}
	}
	if r.AccessLevel != "" {
		if err := writer.WriteField("access_level", r.AccessLevel); err != nil {
			return nil, newError(ErrKindTransport, "could not write form field: "+err.Error())
		}
	}

	if err := writer.Close(); err != nil {
		return nil, newError(ErrKindTransport, "could not close writer: "+err.Error())
	}

	// Send request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL("faces", "enroll"), &body)
	if err != nil {
		return nil, newError(ErrKindTransport, "could not create request: "+err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(ErrKindTimeout, "enrollment call timed out")
		}
		return nil, newError(ErrKindTransport, "could not send request: "+err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(ErrKindTimeout, "enrollment call timed out")
		}
		return nil, newError(ErrKindTransport, "could not read response body: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, newError(ErrKindRejected, serviceMessage(respBody, resp.StatusCode))
	}

	var identity Identity
	if err := json.Unmarshal(respBody, &identity); err != nil {
		return nil, newError(ErrKindMalformed, "could not decode response: "+err.Error())
	}
	if identity.FaceID == 0 {
		return nil, newError(ErrKindMalformed, "response is missing the face id")
	}

	return &identity, nil
}

// serviceMessage extracts the human-readable error from a failure response.
// The service answers errors as {"error": "..."}; anything else is passed
// through with the status code attached.
func serviceMessage(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Sprintf("enrollment rejected with status %d", status)
	}
	return fmt.Sprintf("enrollment rejected with status %d: %s", status, msg)
}
