package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
)

// wantsJSON reports whether the caller asked for a structured response
// rather than a page.
func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// statusFor maps an error to its HTTP status, code and presentable message.
func statusFor(err error) (int, string, string) {
	var ae *common.AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, constants.ErrCodeInternal, constants.MsgUnexpected
	}

	message := ae.Message
	switch ae.Kind {
	case common.KindPermission:
		return http.StatusForbidden, ae.Code, constants.MsgAccessDenied
	case common.KindNotFound:
		return http.StatusNotFound, ae.Code, message
	case common.KindValidation:
		return http.StatusBadRequest, ae.Code, message
	case common.KindConnection:
		if ae.Code == constants.ErrCodeConnectionNotFound {
			return http.StatusNotFound, ae.Code, constants.GetErrorMessage(ae.Code)
		}
		return http.StatusBadGateway, ae.Code, constants.GetErrorMessage(ae.Code)
	case common.KindConfig:
		return http.StatusInternalServerError, ae.Code, constants.GetErrorMessage(ae.Code)
	}
	return http.StatusInternalServerError, constants.ErrCodeInternal, constants.MsgUnexpected
}

// respondError is the single error boundary of the handlers: JSON for
// structured callers, the generic failure page otherwise.
func respondError(w http.ResponseWriter, r *http.Request, initTime time.Time, renderer host.Renderer, err error) {
	var fieldErrs common.FieldErrors
	if errors.As(err, &fieldErrs) {
		common.RespondError(w, initTime, constants.ErrCodeValidation, constants.GetErrorMessage(constants.ErrCodeValidation), http.StatusBadRequest, fieldErrs)
		return
	}

	status, code, message := statusFor(err)
	fields := []any{"request_id", auth.GetRequestID(r.Context()), "path", r.URL.Path, "status_code", status, "code", code, "error", err}
	if status >= http.StatusInternalServerError {
		logging.Error("Request failed", fields...)
	} else {
		logging.Warn("Request refused", fields...)
	}

	if wantsJSON(r) || renderer == nil {
		common.RespondError(w, initTime, code, message, status, nil)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := map[string]string{"Title": http.StatusText(status), "Message": message}
	if err := renderer.Render(w, "failure", data); err != nil {
		logging.Error("Failed to render failure page", "error", err)
	}
}
