// Package web provides the local HTTP surface: health, stats, telemetry
// replay, and consent decisions for the dashboard.
package web

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/gateway"
)

// Serve starts the HTTP server on the given address and blocks.
func Serve(addr string, controller *gateway.Controller, b *bus.Bus, stats *bus.Stats, version string) error {
	s := &server{
		controller: controller,
		bus:        b,
		stats:      stats,
		version:    version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/consent/grant", s.handleConsent("grant"))
	mux.HandleFunc("/api/consent/deny", s.handleConsent("deny"))

	handler := localhostOnly(securityHeaders(mux))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	fmt.Fprintf(os.Stderr, "memgate dashboard api: http://%s\n", listener.Addr())
	return http.Serve(listener, handler)
}

type server struct {
	controller *gateway.Controller
	bus        *bus.Bus
	stats      *bus.Stats
	version    string
}

// localhostOnly rejects requests whose Host is not loopback. The dashboard
// is a single-tenant local surface; nothing here is meant for a LAN.
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		host = strings.Trim(host, "[]")
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": s.version})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.stats.Snapshot())
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.bus.Events())
}

type consentRequest struct {
	Topic string `json:"topic"`
}

func (s *server) handleConsent(decision string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req consentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
			http.Error(w, "topic is required", http.StatusBadRequest)
			return
		}
		switch decision {
		case "grant":
			s.controller.Grant(req.Topic)
		case "deny":
			s.controller.Deny(req.Topic)
		}
		writeJSON(w, map[string]string{"topic": req.Topic, "decision": decision})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Write(data)
}
