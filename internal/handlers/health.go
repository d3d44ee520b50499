package handlers

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// Health reports process liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
