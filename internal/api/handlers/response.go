package handlers

import (
	"encoding/json"
	"net/http"
)

// listResponse wraps collections as {"data": [...]}
type listResponse struct {
	Data interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondList(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, listResponse{Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
