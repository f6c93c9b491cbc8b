package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
