package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/and161185/grader-market/internal/errs"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}

// statusOf maps a service error to an HTTP status and response body.
func statusOf(err error) (int, errorBody) {
	var (
		ve *errs.ValidationError
		me *errs.MismatchError
		de *errs.DispatchError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Fields: ve.Fields}
	case errors.As(err, &me):
		rem := me.Remaining
		return http.StatusUnauthorized, errorBody{Error: "code mismatch", Remaining: &rem}
	case errors.As(err, &de):
		return http.StatusBadGateway, errorBody{Error: "e-mail dispatch failed", Details: "retry by requesting a new code"}
	case errors.Is(err, errs.ErrCodeExpired):
		return http.StatusGone, errorBody{Error: "code expired"}
	case errors.Is(err, errs.ErrNoSession):
		return http.StatusNotFound, errorBody{Error: "no verification session"}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: "unauthorized"}
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, errorBody{Error: "too many attempts"}
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, errorBody{Error: "already exists"}
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusNotImplemented, errorBody{Error: "not available"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorBody{Error: "request cancelled"}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal"}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusOf(err)
	if status >= 500 {
		s.log.Error("request failed",
			zap.String("requestID", RequestIDFromCtx(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}
