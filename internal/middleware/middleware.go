// Package middleware holds the HTTP middleware shared by the API router.
package middleware

import (
	"encoding/json"
	"net/http"
)

// Middleware constructor.
type Middleware func(http.Handler) http.Handler

type errorBody struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: message})
}
