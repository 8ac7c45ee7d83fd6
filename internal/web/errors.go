package web

// errors.go provides unified error and response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to a coded user message
//  4. The code picks the HTTP status
//  5. Technical error and code are logged with the request ID
//  6. The user message is written as JSON, YAML or plain text

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/logging"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error"`
	Message string `json:"message" yaml:"message"`
	Action  string `json:"action,omitempty" yaml:"action,omitempty"`
	Code    string `json:"code" yaml:"code"`
}

// statusByCode maps user message codes to HTTP statuses. Codes not listed
// are internal errors.
var statusByCode = map[string]int{
	"FILE001": http.StatusUnprocessableEntity,
	"FILE002": http.StatusRequestEntityTooLarge,
	"FILE003": http.StatusUnprocessableEntity,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusNotFound,
	"EXP001":  http.StatusServiceUnavailable,
	"EXP002":  http.StatusNotFound,
	"EXP003":  http.StatusInternalServerError,
	"EXP004":  http.StatusServiceUnavailable,
	"REQ001":  http.StatusBadRequest,
	"REQ002":  http.StatusGatewayTimeout,
	"RATE001": http.StatusTooManyRequests,
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	if status, ok := statusByCode[core.MapError(err).Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err with request context and writes its user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(err)

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("code", msg.Code),
	)

	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}

	if wantsText(r) {
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
		return
	}
	respond(w, r, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respond encodes v as YAML when the client asks for it and as JSON
// otherwise.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsYAML(r) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(status)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			logging.FromContext(r.Context()).Error("yaml encode error", slog.String("error", err.Error()))
		}
		_ = enc.Close()
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", slog.String("error", err.Error()))
	}
}

// wantsYAML checks ?format=yaml and the Accept header.
func wantsYAML(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return f == "yaml" || f == "yml"
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/yaml") || strings.Contains(accept, "application/x-yaml")
}

// wantsText reports whether the client asked for plain text only.
func wantsText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.HasPrefix(accept, "text/plain") && !strings.Contains(accept, "json")
}
