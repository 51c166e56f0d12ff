package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	levelSuccess = "success"
	levelInfo    = "info"
	levelError   = "error"
)

// Message is a one-shot notice shown to the user after a redirect.
type Message struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RedirectBody accompanies every 303 from the interactive routes.
type RedirectBody struct {
	Redirect string    `json:"redirect"`
	Messages []Message `json:"messages,omitempty"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error  string         `json:"error"`
	Fields []e.FieldError `json:"fields,omitempty"`
}

// mapServiceError maps domain or repository errors to appropriate gRPC status codes.
func mapServiceError(logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, e.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, e.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the HTTP status of its gRPC code.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	st, _ := status.FromError(mapServiceError(logger, err))
	body := ErrorBody{Error: st.Message()}
	var verr *e.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), body)
}

// redirect answers a form-style request with 303 See Other.
func redirect(w http.ResponseWriter, location string, messages ...Message) {
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusSeeOther, RedirectBody{Redirect: location, Messages: messages})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return fmt.Errorf("%w: request body required", e.ErrInvalidInput)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", e.ErrInvalidInput, err)
	}
	return nil
}

// safeNext returns next when it is a local path, fallback otherwise.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
