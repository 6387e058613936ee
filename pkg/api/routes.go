package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /records", s.HandleRecords)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
