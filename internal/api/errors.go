package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/altavoxlabs/altavox-core/internal/synth"
)

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, typ, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{
		Message: message,
		Type:    typ,
		Code:    code,
	}})
}

// mapSynthesisError translates pipeline failures into response status and
// envelope fields. Credential and unit failures are both terminal backend
// errors; nothing here retries.
func mapSynthesisError(err error) (int, apiError) {
	var backendErr *synth.Error
	if errors.As(err, &backendErr) {
		return http.StatusBadGateway, apiError{
			Message: err.Error(),
			Type:    "api_error",
			Code:    "backend_error",
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, apiError{
			Message: "synthesis timed out",
			Type:    "timeout_error",
			Code:    "timeout",
		}
	}
	return http.StatusInternalServerError, apiError{
		Message: err.Error(),
		Type:    "api_error",
		Code:    "internal_error",
	}
}
