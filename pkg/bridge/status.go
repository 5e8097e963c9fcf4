package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/config"
)

const eventWriteTimeout = 5 * time.Second

// jobCounters tracks lifecycle events as seen on the bus.
type jobCounters struct {
	Received   uint64 `json:"received"`
	Superseded uint64 `json:"superseded"`
	Malformed  uint64 `json:"malformed"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
}

type statusResponse struct {
	Status          string      `json:"status"`
	UptimeSeconds   int64       `json:"uptime_seconds"`
	Listening       string      `json:"listening,omitempty"`
	Pending         bool        `json:"pending"`
	Jobs            jobCounters `json:"jobs"`
	LastJobID       string      `json:"last_job_id,omitempty"`
	LastAsset       string      `json:"last_asset,omitempty"`
	LastError       string      `json:"last_error,omitempty"`
	LastCompletedAt string      `json:"last_completed_at,omitempty"`
}

// endpoint is the UDP side the status server reports on.
type endpoint interface {
	Addr() net.Addr
	Running() bool
}

// statusServer exposes health, readiness, counters and a live event stream
// over HTTP.
type statusServer struct {
	cfg      config.StatusConfig
	events   *bus.Bus
	endpoint endpoint
	pending  func() bool
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu              sync.RWMutex
	startedAt       time.Time
	jobs            jobCounters
	lastJobID       string
	lastAsset       string
	lastError       string
	lastCompletedAt time.Time

	addr net.Addr
	stop func()
}

func newStatusServer(cfg config.StatusConfig, events *bus.Bus, endpoint endpoint, pending func() bool, log *slog.Logger) *statusServer {
	return &statusServer{
		cfg:      cfg,
		events:   events,
		endpoint: endpoint,
		pending:  pending,
		log:      log.With("component", "bridge.status"),
		upgrader: websocket.Upgrader{
			// Local tooling only.
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Start binds the listener and serves until Stop is called or ctx is done.
// The returned channel yields the serve error, if any, and is closed on exit.
func (s *statusServer) Start(ctx context.Context) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil, errors.New("status server already started")
	}

	listener, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("start status server: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/events", s.handleEvents)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sub, unsubscribe := s.events.Subscribe(ctx, 0)
	go s.track(sub)

	errCh := make(chan error, 1)
	served := make(chan struct{})
	go func() {
		defer close(served)
		defer close(errCh)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve status: %w", err)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unsubscribe()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				s.log.Warn("Status server shutdown incomplete", "error", err)
				_ = server.Close()
			}
			<-served
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-served:
		}
	}()

	s.startedAt = time.Now().UTC()
	s.addr = listener.Addr()
	s.stop = stop

	s.log.Info("Status server started", "address", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down and returns once the listener is released.
func (s *statusServer) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.addr = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Addr returns the bound address once started.
func (s *statusServer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *statusServer) track(events <-chan bus.Event) {
	for event := range events {
		s.record(event)
	}
}

func (s *statusServer) record(event bus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case bus.EventJobReceived:
		s.jobs.Received++
		s.lastJobID = event.JobID
		s.lastAsset = event.Asset
	case bus.EventJobSuperseded:
		s.jobs.Superseded++
	case bus.EventJobMalformed:
		s.jobs.Malformed++
		s.lastError = event.Error
	case bus.EventJobCompleted:
		s.jobs.Completed++
		s.lastCompletedAt = event.At
	case bus.EventJobFailed:
		s.jobs.Failed++
		s.lastError = event.Error
	}
}

func (s *statusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *statusServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.endpoint.Running() {
		s.respondStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}
	s.respondStatus(w, http.StatusOK, "ready")
}

func (s *statusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.endpoint.Running() {
		status = "not_ready"
	}
	s.respondStatus(w, http.StatusOK, status)
}

func (s *statusServer) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *statusServer) currentStatus(status string) statusResponse {
	listening := ""
	if addr := s.endpoint.Addr(); addr != nil {
		listening = addr.String()
	}
	pending := s.pending != nil && s.pending()

	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	lastCompleted := ""
	if !s.lastCompletedAt.IsZero() {
		lastCompleted = s.lastCompletedAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:          status,
		UptimeSeconds:   uptime,
		Listening:       listening,
		Pending:         pending,
		Jobs:            s.jobs,
		LastJobID:       s.lastJobID,
		LastAsset:       s.lastAsset,
		LastError:       s.lastError,
		LastCompletedAt: lastCompleted,
	}
}

// handleEvents streams bus events to a websocket client as JSON messages
// until either side goes away.
func (s *statusServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the handshake completes so the client sees every
	// event published after its dial returns.
	events, unsubscribe := s.events.Subscribe(ctx, 0)
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Event stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The client never sends anything; reading surfaces its close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.log.Debug("Event stream opened", "remote", r.RemoteAddr)
	for event := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			s.log.Debug("Event stream closed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
