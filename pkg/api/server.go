package api

import (
	"encoding/json"
	"net/http"

	"github.com/rubiojr/fmcsa/pkg/log"
	"github.com/rubiojr/fmcsa/pkg/search"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

var logger = log.ForService("api")

type Server struct {
	search  *search.Service
	backend string
}

func NewServer(svc *search.Service, store storage.Store) *Server {
	return &Server{
		search:  svc,
		backend: store.Backend(),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

// Handler returns mux wrapped in the standard middleware chain, outermost
// first: request id, access log, CORS, gzip.
func Handler(mux http.Handler, corsOrigins []string) http.Handler {
	return RequestID(AccessLog(Cors(corsOrigins)(Gzip(mux))))
}
