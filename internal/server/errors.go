package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, msg string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: msg}
}

func errMissingFile() *APIError {
	return newAPIError(http.StatusBadRequest, "MISSING_FILE", `multipart field "file" is required`)
}

func errPayloadTooLarge(limit int64) *APIError {
	return newAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
		fmt.Sprintf("upload exceeds %d bytes", limit))
}

func errInvalidRequest(err error) *APIError {
	return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}

func errMissingColumns(err error) *APIError {
	return newAPIError(http.StatusUnprocessableEntity, "MISSING_COLUMNS", err.Error())
}

func errInvalidTable(err error) *APIError {
	return newAPIError(http.StatusBadRequest, "INVALID_TABLE", err.Error())
}

func errRateLimited() *APIError {
	return newAPIError(http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded, retry later")
}

func errInternal() *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
