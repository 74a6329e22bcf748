package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the machine-readable error body: the stable code, a human
// message, and the structured context the error carries.
type errResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// writeError maps an application error to its HTTP status and body. Errors
// without a code surface as INTERNAL without leaking the cause.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeInternal {
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{
			Code:    string(apperr.CodeInternal),
			Message: "internal error",
		})
		return
	}
	writeJSON(w, statusFor(e.Code), errResponse{
		Code:    string(e.Code),
		Message: e.Message,
		Context: e.Context,
	})
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidPath, apperr.CodeNamespaceViolation,
		apperr.CodeMissingParameter, apperr.CodeBatchTooLarge:
		return http.StatusBadRequest
	case apperr.CodeDocumentNotFound, apperr.CodeSectionNotFound,
		apperr.CodeTaskNotFound, apperr.CodeNoActionableTask:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists, apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
