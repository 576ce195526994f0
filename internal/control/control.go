// +build !windows

// Package control implements the proxy's debug/introspection HTTP
// surface, grounded on daemon/control/server.go's mux-over-listener
// shape: one *http.ServeMux, one handler func per route, JSON out,
// a *logging.Logger field threaded through every handler.
package control

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wlmux/wlmux/internal/loop"
	"github.com/wlmux/wlmux/internal/object"
	"github.com/wlmux/wlmux/internal/version"
)

// Server exposes /version, /ping, /connections, /audit, and /metrics
// over a dedicated listener, independent of the protocol-relay sockets.
type Server struct {
	loop  *loop.Loop
	audit *object.Audit
	log   *logging.Logger
}

// New constructs a Server. audit may be nil if no single shared Audit
// is wired (each Connection keeps its own); when nil, /audit reports
// an empty trail rather than erroring.
func New(l *loop.Loop, audit *object.Audit, log *logging.Logger) *Server {
	return &Server{loop: l, audit: audit, log: log}
}

// Serve blocks running the HTTP server over listener.
func (s *Server) Serve(listener net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/connections", s.handleConnections)
	mux.HandleFunc("/audit", s.handleAudit)
	mux.Handle("/metrics", promhttp.Handler())
	return http.Serve(listener, mux)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(version.Current.String()))
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type connectionsResponse struct {
	Active int `json:"active"`
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	active := 0
	if s.loop != nil {
		active = s.loop.Active()
	}
	if err := json.NewEncoder(w).Encode(connectionsResponse{Active: active}); err != nil && s.log != nil {
		s.log.Error(err)
	}
}

type auditResponse struct {
	RecentDeletes []uint32 `json:"recent_deletes"`
	RecentErrors  []string `json:"recent_errors"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	resp := auditResponse{}
	if s.audit != nil {
		resp.RecentDeletes = s.audit.RecentDeletes()
		resp.RecentErrors = s.audit.RecentErrors()
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil && s.log != nil {
		s.log.Error(err)
	}
}
