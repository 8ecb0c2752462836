package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the success body shared by the statistics endpoints
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
