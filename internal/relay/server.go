package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/washdeck/backend/internal/dataset"
	"github.com/washdeck/backend/internal/diag"
	"github.com/washdeck/backend/internal/feed"
	"github.com/washdeck/backend/internal/model"
)

type Server struct {
	agg     *dataset.Aggregator
	hub     *Hub
	bus     *feed.Bus
	sampler *diag.Sampler
}

func NewServer(agg *dataset.Aggregator, hub *Hub, bus *feed.Bus) *Server {
	return &Server{
		agg: agg,
		hub: hub,
		bus: bus,
	}
}

// SetSampler configures the host sampler behind /api/diag. Must be
// called before SetupRoutes.
func (s *Server) SetSampler(sampler *diag.Sampler) {
	s.sampler = sampler
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/diag", s.handleDiag)
	mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[relay] ws upgrade error: %v", err)
		return
	}

	log.Printf("[relay] client connected: %s", r.RemoteAddr)
	c := s.hub.AddClient(conn)

	go func() {
		defer func() {
			s.hub.RemoveClient(c)
			log.Printf("[relay] client disconnected: %s", r.RemoteAddr)
		}()
		for {
			// Dashboard clients only listen; drain until the
			// connection drops.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.agg.Snapshot()
	if snap == nil {
		http.Error(w, "snapshot not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{
		Feed: FeedStatusPayload{
			Mode:  s.hub.Mode(),
			State: s.bus.State(),
		},
		States:   make(map[model.Kind]dataset.State),
		Datasets: make(map[model.Kind]model.DatasetStatus),
		Clients:  s.hub.ClientCount(),
	}
	for _, kind := range model.Kinds() {
		resp.States[kind] = s.agg.Loader(kind).State()
	}
	if snap := s.agg.Snapshot(); snap != nil {
		resp.Datasets = snap.Datasets
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRefresh kicks off a reload in the background and returns
// immediately; clients watch the websocket or poll /api/status for the
// outcome.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Printf("[relay] manual refresh requested by %s", r.RemoteAddr)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.agg.Refresh(ctx)
		s.hub.PushSnapshot()
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDiag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sampler == nil {
		http.Error(w, "diagnostics not available", http.StatusServiceUnavailable)
		return
	}
	stats := s.sampler.Latest()
	if stats == nil {
		http.Error(w, "no sample yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}
	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("[relay] listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
