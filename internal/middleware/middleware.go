package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// contextKey is the type of all context keys set by this package.
type contextKey string

// Responses written by middleware use the same {"error":{code,message}}
// body as the handlers. handler imports this package, so the writer is
// kept here.

var (
	errLoginRequired   = domain.Errorf(domain.EUNAUTHORIZED, "", "Please log in to continue")
	errTooManyRequests = domain.Errorf(domain.ERATELIMIT, "", "Too many requests, please wait a moment")
	errBodyTooLarge    = domain.Errorf(domain.ETOOLARGE, "", "Request body too large")
)

var statusByCode = map[string]int{
	domain.EINVALID:      http.StatusBadRequest,
	domain.EUNAUTHORIZED: http.StatusUnauthorized,
	domain.EPAYMENT:      http.StatusPaymentRequired,
	domain.EFORBIDDEN:    http.StatusForbidden,
	domain.ENOTFOUND:     http.StatusNotFound,
	domain.ECONFLICT:     http.StatusConflict,
	domain.EGONE:         http.StatusGone,
	domain.ETOOLARGE:     http.StatusRequestEntityTooLarge,
	domain.ERATELIMIT:    http.StatusTooManyRequests,
	domain.ENOTIMPL:      http.StatusNotImplemented,
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
// Unknown codes are server errors.
func errorCodeToHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondWithError logs err and writes it as JSON. Server errors are also
// reported to Sentry.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := errorCodeToHTTPStatus(code)

	logger := GetLogger(r.Context())
	if status >= 500 {
		logger.Error("middleware error", "error", err, "code", code, "status", status)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"request_id": GetRequestID(r.Context()),
		})
	} else {
		logger.Info("middleware error", "error", err, "code", code, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": domain.ErrorMessage(err)},
	})
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, errLoginRequired)
}

// respondInternalError answers 500 with the generic message; err is only
// logged.
func respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	respondWithError(w, r, domain.Internal(err, "", "middleware failure"))
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, errTooManyRequests)
}

func respondTooLarge(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, errBodyTooLarge)
}
