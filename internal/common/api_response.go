package common

import (
	"encoding/json"
	"net/http"
	"time"

	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
)

// APIResponse is the envelope of every structured (JSON) response.
type APIResponse struct {
	Status       string            `json:"status"`
	Message      string            `json:"message"`
	Code         string            `json:"code,omitempty"`
	ResponseTime string            `json:"response_time"`
	Data         any               `json:"data,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// RespondSuccess sends a standardized JSON success response.
func RespondSuccess(w http.ResponseWriter, initTime time.Time, message string, data any, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := APIResponse{
		Status:       string(constants.APIStatusOk),
		Message:      message,
		ResponseTime: GetResponseTime(initTime),
		Data:         data,
	}

	writeJSON(w, code, response)
}

// RespondError sends a standardized JSON error response. The failure flag is
// the "error" status; the message is already user presentable.
func RespondError(w http.ResponseWriter, initTime time.Time, code string, message string, statusCode int, fieldErrors map[string]string) {
	response := APIResponse{
		Status:       string(constants.APIStatusError),
		Message:      message,
		Code:         code,
		ResponseTime: GetResponseTime(initTime),
		Errors:       fieldErrors,
	}

	writeJSON(w, statusCode, response)
}

// writeJSON marshals data and writes it to the HTTP response.
func writeJSON(w http.ResponseWriter, code int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("JSON encode failed", "error", err.Error())
	}
}
