package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
)

// Error is the body of every failed request. Status is the HTTP status it
// is sent with and never appears on the wire.
type Error struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"error_code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidInput(message string, errs []string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    common.ErrCodeInvalidInput,
		Message: message,
		Details: map[string]interface{}{"errors": errs},
	}
}

func invalidInputAt(index int, errs []string) *Error {
	e := invalidInput(fmt.Sprintf("Validation failed for application at index %d", index), errs)
	e.Details["index"] = index
	return e
}

func predictionFailed(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    common.ErrCodePredictionError,
		Message: common.ErrMsgPredictionFailed,
		Details: map[string]interface{}{"error": err.Error()},
	}
}

func predictionFailedAt(index int, err error) *Error {
	e := predictionFailed(err)
	e.Message = fmt.Sprintf("Failed to process prediction for application at index %d", index)
	e.Details["index"] = index
	return e
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, e)
}
