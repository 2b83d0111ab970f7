package http

import (
	"net/http"
)

// HealthHandler answers liveness checks. It touches no dependencies, so a
// 200 here means only that the process is up and serving.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
