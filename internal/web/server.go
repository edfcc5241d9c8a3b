// Package web serves the JSON status API over build history: past runs,
// their task results, and the artifact index.
package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/monobuild/internal/observability"
	"github.com/example/monobuild/internal/storage"
)

// Server is the status HTTP server
type Server struct {
	addr     string
	handlers *Handlers
	mux      *http.ServeMux
}

// NewServer creates a new status server. metrics may be nil.
func NewServer(addr string, store storage.Storage, metrics *observability.Metrics) *Server {
	s := &Server{
		addr:     addr,
		handlers: NewHandlers(store),
		mux:      http.NewServeMux(),
	}
	s.setupRoutes(metrics)
	return s
}

func (s *Server) setupRoutes(metrics *observability.Metrics) {
	// Trailing slash enables prefix matching for all /api/builds/* paths
	s.mux.HandleFunc("/api/builds", s.corsMiddleware(s.routeBuilds))
	s.mux.HandleFunc("/api/builds/", s.corsMiddleware(s.routeBuilds))
	s.mux.HandleFunc("/api/artifacts", s.corsMiddleware(s.handlers.ListArtifacts))

	if metrics != nil {
		s.mux.Handle("/metrics", metrics)
	}
}

// routeBuilds routes requests to the appropriate handler based on the path
func (s *Server) routeBuilds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/builds")
	if path == "" || path == "/" {
		s.handlers.ListBuilds(w, r)
		return
	}
	s.handlers.GetBuild(w, r)
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting status server on %s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.mux
}
