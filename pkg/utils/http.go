package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
)

const maxRequestBodyBytes = 1 << 20

// WriteJSONResponse writes a JSON response with the given status code
// Sets Content-Type header and handles JSON encoding
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStatusFromError maps the apperrors taxonomy onto HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case apperrors.IsNotFoundError(err):
		return http.StatusNotFound
	case apperrors.IsValidationError(err), apperrors.IsBadRequestError(err):
		return http.StatusBadRequest
	case apperrors.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	case apperrors.IsConflictError(err), apperrors.IsDuplicateError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": msg} with the status derived from err.
// Internal errors are not echoed to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	WriteJSONResponse(w, status, ErrorResponse{Error: msg})
}

// DecodeJSONBody decodes a bounded request body into dst.
// Malformed bodies are reported as apperrors.ErrBadRequest.
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", apperrors.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", apperrors.ErrBadRequest, err)
	}
	return nil
}
