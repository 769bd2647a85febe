package api

import (
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := HealthResponse{
			Status:     "healthy",
			Components: map[string]string{"api": "up", "database": "up"},
			Timestamp:  time.Now().UTC(),
		}

		code := http.StatusOK
		if err := a.service.Health(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			res.Status = "unhealthy"
			res.Components["database"] = "down"
			code = http.StatusServiceUnavailable
		}

		returnJson(w, code, res)
	}
}
