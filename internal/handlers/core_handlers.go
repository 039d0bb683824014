package handlers

import (
	"net/http"
	"time"

	"devoverflow/internal/content"
	"devoverflow/internal/engine"
	"devoverflow/internal/engine/actors"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Questions int    `json:"questions"`
	Users     int    `json:"users"`
	Uptime    string `json:"uptime,omitempty"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := engine.Request[*content.Stats](s.Engine, engine.QuestionPool, &actors.GetCountsMsg{})
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		status := &HealthStatus{Status: "healthy", Questions: stats.Questions, Users: stats.Users}
		if s.Metrics != nil {
			status.Uptime = s.Metrics.Uptime().Round(time.Second).String()
		}
		s.respond(w, r, http.StatusOK, status, nil)
	}
}
