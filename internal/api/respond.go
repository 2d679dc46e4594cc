// Package api exposes the broker over HTTP: routing, credential
// extraction, the legacy wire shapes the mobile clients expect, and the
// mapping from classified failures to status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/broker"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
)

// Client-facing messages. The wording (typos included) is part of the wire
// contract with existing clients.
const (
	msgBadRequest        = "This request is incorrect. Please check your request."
	msgUnauthorized      = "You have to be authorized to access this api."
	msgForbidden         = "You have no premission to access this api."
	msgNotFound          = "Cannot found api. Please check your api path."
	msgServerError       = "Our server is unreachable this time."
	msgRemoteUnavailable = "Remote service is unavailable"
	msgNotAValidHost     = "This is not a valid host"
	msgSessionExpired    = "This login session is expired, please login again"
)

// ErrorLocation pinpoints where a request went wrong. Absent members are
// serialized as null, which the clients rely on.
type ErrorLocation struct {
	API   *string `json:"api"`
	Trace *string `json:"trace"`
	At    *string `json:"at"`
}

// ErrorResponse is the error envelope every failed request returns.
type ErrorResponse struct {
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
	Wrong     *ErrorLocation `json:"wrong"`
}

func timestampMs() int64 {
	return time.Now().UnixMilli()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope. apiPath and at are optional; a
// trace ID is attached and logged for server-side failures so the response
// can be correlated with the logs.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, at string) {
	var wrong *ErrorLocation
	if at != "" {
		apiPath := r.URL.Path
		wrong = &ErrorLocation{API: &apiPath, At: &at}
	}

	if status >= 500 {
		trace := uuid.NewString()
		if wrong == nil {
			apiPath := r.URL.Path
			wrong = &ErrorLocation{API: &apiPath}
		}
		wrong.Trace = &trace
		logger.ErrorCtx(r.Context(), "request failed upstream",
			logger.API(r.URL.Path), logger.Status(status), "trace", trace)
	}

	writeJSON(w, status, ErrorResponse{
		Message:   message,
		Timestamp: timestampMs(),
		Wrong:     wrong,
	})
}

// writeBrokerError maps a classified broker failure onto the wire contract.
func writeBrokerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, broker.ErrHostInvalid):
		writeError(w, r, http.StatusBadRequest, msgNotAValidHost, "Argument: host")
	case errors.Is(err, broker.ErrUpstreamUnreachable):
		writeError(w, r, http.StatusServiceUnavailable, msgRemoteUnavailable, "Remote server")
	case errors.Is(err, broker.ErrUpstreamBadStatus):
		writeError(w, r, http.StatusBadGateway, msgServerError, "Return status code")
	case errors.Is(err, broker.ErrSessionExpiredUpstream):
		writeError(w, r, http.StatusForbidden, msgSessionExpired, "")
	case errors.Is(err, broker.ErrLoginRejected):
		writeError(w, r, http.StatusForbidden, "Login failed", "")
	case errors.Is(err, broker.ErrScoreNotReady):
		writeError(w, r, http.StatusNotFound, "Cannot find the score data", "")
	default:
		logger.ErrorCtx(r.Context(), "unclassified failure",
			logger.API(r.URL.Path), logger.Err(err))
		writeError(w, r, http.StatusInternalServerError, msgServerError, "")
	}
}
