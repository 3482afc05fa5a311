package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/wisedom/wisedom/internal/apperr"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// WriteError writes e using the API error envelope.
func WriteError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorPayload{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}})
}
