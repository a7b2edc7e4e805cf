package jsonrpc

import (
	"encoding/json"
	"net/http"
)

// Routes
const (
	RPCPath     = "/api/v1/rpc"
	HealthPath  = "/api/v1/health"
	MethodsPath = "/api/v1/methods"
)

const maxBodyBytes = 1 << 20

// Handler returns the HTTP routes. Only the RPC endpoint requires a token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	rpc := s.HandleRequest
	if s.middleware != nil {
		rpc = s.middleware.RequireAuth(rpc)
	}
	mux.HandleFunc(RPCPath, rpc)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.HandleFunc(MethodsPath, s.handleMethods)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMethods lists the registered methods with their access requirements.
func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.extensibleServer.GetAvailableCommands())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
