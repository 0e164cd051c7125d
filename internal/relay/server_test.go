package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/washdeck/backend/internal/config"
	"github.com/washdeck/backend/internal/dataset"
	"github.com/washdeck/backend/internal/diag"
	"github.com/washdeck/backend/internal/feed"
	"github.com/washdeck/backend/internal/model"
)

// newTestServer builds a server over an aggregator with no configured
// sources, so every dataset is synthetic and loads instantly.
func newTestServer(t *testing.T) (*dataset.Aggregator, *feed.Bus, string) {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	agg := dataset.NewAggregator(cfg)
	agg.LoadAll(context.Background())

	bus := feed.NewBus()
	hub := NewHub(agg, bus, false, time.Hour)
	t.Cleanup(hub.Close)

	mux := http.NewServeMux()
	NewServer(agg, hub, bus).SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return agg, bus, ts.URL
}

func dialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return env.Type, env.Payload
}

func TestWSClientGetsSnapshotThenStatusOnConnect(t *testing.T) {
	_, _, url := newTestServer(t)
	conn := dialWS(t, url)

	typ, payload := readEnvelope(t, conn)
	if typ != string(MsgSnapshot) {
		t.Fatalf("first frame type = %q, want snapshot", typ)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("unmarshal snapshot payload: %v", err)
	}
	if len(snap.Washrooms) == 0 {
		t.Error("snapshot has no washrooms")
	}
	if len(snap.Datasets) != len(model.Kinds()) {
		t.Errorf("snapshot covers %d datasets, want %d", len(snap.Datasets), len(model.Kinds()))
	}

	typ, payload = readEnvelope(t, conn)
	if typ != string(MsgFeedStatus) {
		t.Fatalf("second frame type = %q, want feed_status", typ)
	}
	var status FeedStatusPayload
	if err := json.Unmarshal(payload, &status); err != nil {
		t.Fatalf("unmarshal status payload: %v", err)
	}
	if status.Mode != "polling" {
		t.Errorf("mode = %q, want polling", status.Mode)
	}
	if status.State != feed.StateDisconnected {
		t.Errorf("state = %q, want disconnected", status.State)
	}
}

func TestFeedMessagesForwardedToClients(t *testing.T) {
	_, bus, url := newTestServer(t)
	conn := dialWS(t, url)

	// Drain the hello frames; once they arrive the client is
	// registered with the hub.
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	bus.PublishMessage(feed.Message{
		Type:    feed.MsgTaskUpdate,
		Payload: json.RawMessage(`{"action":"created","task":{"id":"T1","washroom_id":"R1","type":"emergency","priority":5,"created_at":600,"deadline":630,"estimated_duration":15}}`),
	})

	typ, payload := readEnvelope(t, conn)
	if typ != string(feed.MsgTaskUpdate) {
		t.Fatalf("forwarded type = %q, want task_update", typ)
	}
	var p feed.TaskUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("unmarshal forwarded payload: %v", err)
	}
	if p.Action != "created" || p.Task.ID != "T1" {
		t.Errorf("payload = %+v, want created T1", p)
	}
}

func TestFeedStatusChangesForwardedToClients(t *testing.T) {
	_, bus, url := newTestServer(t)
	conn := dialWS(t, url)
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	bus.PublishStatus(feed.StateConnected)

	typ, payload := readEnvelope(t, conn)
	if typ != string(MsgFeedStatus) {
		t.Fatalf("frame type = %q, want feed_status", typ)
	}
	var status FeedStatusPayload
	if err := json.Unmarshal(payload, &status); err != nil {
		t.Fatalf("unmarshal status payload: %v", err)
	}
	if status.State != feed.StateConnected {
		t.Errorf("state = %q, want connected", status.State)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/api/snapshot")
	if err != nil {
		t.Fatalf("GET /api/snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	for _, kind := range model.Kinds() {
		ds, ok := snap.Datasets[kind]
		if !ok {
			t.Errorf("dataset %s missing from snapshot", kind)
			continue
		}
		if ds.Provenance != model.ProvenanceFallback {
			t.Errorf("%s provenance = %q, want fallback with no sources configured", kind, ds.Provenance)
		}
		if ds.Records == 0 {
			t.Errorf("%s has 0 records", kind)
		}
	}
}

func TestSnapshotEndpointBeforeFirstLoad(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	agg := dataset.NewAggregator(cfg)
	bus := feed.NewBus()
	hub := NewHub(agg, bus, false, time.Hour)
	t.Cleanup(hub.Close)

	mux := http.NewServeMux()
	NewServer(agg, hub, bus).SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatalf("GET /api/snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 before first load", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Feed.Mode != "polling" {
		t.Errorf("feed mode = %q, want polling", status.Feed.Mode)
	}
	if status.Feed.State != feed.StateDisconnected {
		t.Errorf("feed state = %q, want disconnected", status.Feed.State)
	}
	if status.Clients != 0 {
		t.Errorf("clients = %d, want 0", status.Clients)
	}
	for _, kind := range model.Kinds() {
		if got := status.States[kind]; got != dataset.StateFellBack {
			t.Errorf("%s state = %q, want fell_back with no sources", kind, got)
		}
	}
	if len(status.Datasets) != len(model.Kinds()) {
		t.Errorf("datasets = %d entries, want %d", len(status.Datasets), len(model.Kinds()))
	}
}

func TestRefreshEndpoint(t *testing.T) {
	agg, _, url := newTestServer(t)
	first := agg.Snapshot().LoadedAt

	resp, err := http.Post(url+"/api/refresh", "", nil)
	if err != nil {
		t.Fatalf("POST /api/refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if agg.Snapshot().LoadedAt.After(first) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot not replaced within 3s of refresh")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefreshEndpointRejectsGet(t *testing.T) {
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/api/refresh")
	if err != nil {
		t.Fatalf("GET /api/refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestDiagEndpointWithoutSampler(t *testing.T) {
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/api/diag")
	if err != nil {
		t.Fatalf("GET /api/diag: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with no sampler wired", resp.StatusCode)
	}
}

func TestDiagEndpointWithSampler(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	agg := dataset.NewAggregator(cfg)
	agg.LoadAll(context.Background())
	bus := feed.NewBus()
	hub := NewHub(agg, bus, false, time.Hour)
	t.Cleanup(hub.Close)

	sampler := diag.NewSampler(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sampler.Run(ctx)

	srv := NewServer(agg, hub, bus)
	srv.SetSampler(sampler)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	deadline := time.Now().Add(3 * time.Second)
	for sampler.Latest() == nil {
		if time.Now().After(deadline) {
			t.Fatal("sampler took no sample within 3s")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get(ts.URL + "/api/diag")
	if err != nil {
		t.Fatalf("GET /api/diag: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats diag.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.MemTotalMB == 0 {
		t.Error("mem_total_mb = 0, want host memory size")
	}
}

func TestHealthz(t *testing.T) {
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestClientCountTracksConnections(t *testing.T) {
	_, _, url := newTestServer(t)

	conn := dialWS(t, url)
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	var hubCount int
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status: %v", err)
		}
		var status StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		resp.Body.Close()
		hubCount = status.Clients
		if hubCount == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hubCount != 1 {
		t.Fatalf("clients = %d after connect, want 1", hubCount)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status: %v", err)
		}
		var status StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		resp.Body.Close()
		if status.Clients == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d after close, want 0", status.Clients)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "dash.internal:8090", true},
		{"same host", "http://dash.internal:8090", "dash.internal:8090", true},
		{"localhost dev server", "http://localhost:3000", "dash.internal:8090", true},
		{"loopback", "http://127.0.0.1:3000", "dash.internal:8090", true},
		{"foreign host", "http://evil.example.com", "dash.internal:8090", false},
		{"garbage origin", "://not-a-url", "dash.internal:8090", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(origin=%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
