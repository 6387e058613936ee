package api

import (
	"net/http"
	"time"

	"github.com/rubiojr/fmcsa/pkg/version"
)

// HandleRecords runs the search described by the query string. A failed
// store round trip yields a 500 with the failure envelope.
func (s *Server) HandleRecords(w http.ResponseWriter, r *http.Request) {
	resp := s.search.Search(r.Context(), r.URL.Query())
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Backend:   s.backend,
	}

	s.writeJSON(w, http.StatusOK, health)
}
