package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/finsight/internal/core"
)

// StatusError is the value of the status field on failed requests.
const StatusError = "error"

// ErrorResponse is the error body shared by every JSON endpoint.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Error writes an error response. Client errors carry the wrapped cause as
// message; server errors never leak it.
func Error(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{
		Status:  StatusError,
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		resp.Code = coreErr.Code
		resp.Message = coreErr.Message
		if coreErr.Cause != nil && status < http.StatusInternalServerError {
			resp.Message = coreErr.Cause.Error()
		}
	}

	JSON(w, status, resp)
}

// StatusFor maps an error onto an HTTP status by its code.
func StatusFor(err error) int {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		return http.StatusInternalServerError
	}

	switch coreErr.Code {
	case core.ErrTickerRequired.Code, core.ErrInvalidTicker.Code,
		core.ErrInvalidQuantity.Code, core.ErrInvalidRequest.Code:
		return http.StatusBadRequest
	case core.ErrNoData.Code, core.ErrHoldingNotFound.Code, core.ErrInsightNotFound.Code:
		return http.StatusNotFound
	case core.ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case core.ErrMarketDataFailed.Code, core.ErrLLMFailed.Code, core.ErrLLMUnavailable.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err with the status StatusFor picks.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}
