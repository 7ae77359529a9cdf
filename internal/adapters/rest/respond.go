package rest

import (
	"encoding/json"
	"net/http"
)

// Error codes carried next to the message in error bodies.
const (
	errCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	errCodeDecodeFailed      = "DECODE_FAILED"
	errCodeQueueFull         = "QUEUE_FULL"
	errCodeStorageDisabled   = "STORAGE_DISABLED"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
