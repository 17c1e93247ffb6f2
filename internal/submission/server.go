package submission

import (
	"log/slog"
	"net/http"
)

// Guard wraps protected handlers with authentication. A nil Guard serves
// every route without authentication.
type Guard func(http.HandlerFunc) http.HandlerFunc

// Server handles HTTP requests for gas submissions
type Server struct {
	service *Service
	guard   Guard
	mux     *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, guard Guard) *Server {
	return NewServerWithMux(service, guard, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, guard Guard, mux *http.ServeMux) *Server {
	if guard == nil {
		guard = func(next http.HandlerFunc) http.HandlerFunc { return next }
	}
	s := &Server{
		service: service,
		guard:   guard,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux. /health stays
// open so load balancers can probe without credentials.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /submitGas", s.guard(s.handleSubmitGas))
	s.mux.HandleFunc("GET /vehicles", s.guard(s.handleVehicles))
	s.mux.HandleFunc("GET /authTest", s.guard(s.handleAuthTest))
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// ServeHTTP implements http.Handler, applying CORS to every request and
// answering preflight OPTIONS before routing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s)
}
