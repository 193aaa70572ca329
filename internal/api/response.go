// internal/api/response.go
//
// JSON response envelopes for the document API.
//
// Error bodies carry a short machine code plus a human message.  Validation
// failures additionally list every offending field and where it came from
// (body, query, or params) so clients can map errors back onto inputs.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/docschema/internal/schema"
)

const (
	CodeBadRequest = "BadRequest"
	CodeConflict   = "Conflict"
	CodeNotFound   = "NotFound"
	CodeUnknown    = "InternalServerError"
	CodeValidation = "Validation"

	msgInvalidRequest = "Invalid request"

	LocationBody   = "body"
	LocationQuery  = "query"
	LocationParams = "params"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the 422 (or 400, for query and params) body.
type ValidationErrorResponse struct {
	Code     string              `json:"code"`
	Message  string              `json:"message"`
	Location string              `json:"location"`
	Fields   []schema.FieldError `json:"fields"`
}

func newValidationResponse(location string, fields []schema.FieldError) ValidationErrorResponse {
	return ValidationErrorResponse{
		Code:     CodeValidation,
		Message:  msgInvalidRequest,
		Location: location,
		Fields:   fields,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("encode response", "status", status, "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}
