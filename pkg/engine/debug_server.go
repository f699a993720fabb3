package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/hittest"
	"github.com/go-drift/kite/pkg/logging"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 2 * time.Second
)

// DebugServer serves window diagnostics over HTTP:
//
//	/health         liveness check
//	/window         title, size, pointer state, focus and frame count
//	/hit-table      entries of the last hit-test table; ?x=&y= adds the chain
//	/frames         frame timeline, filtered by limit, min_ms, layout_ms,
//	                render_ms and aborted
//	/frames/stream  websocket pushing every new frame sample as JSON
//	/runtime        memory, GC, goroutine and frame count samples
type DebugServer struct {
	win *Window
	log *logging.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	runtime  *RuntimeSampleBuffer
	cancel   context.CancelFunc
	streams  sync.WaitGroup

	upgrader websocket.Upgrader
}

// NewDebugServer creates a stopped debug server for w.
func NewDebugServer(w *Window) *DebugServer {
	return &DebugServer{
		win: w,
		log: w.log.WithComponent("debug-server"),
		upgrader: websocket.Upgrader{
			// The server only listens for local tooling.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start listens on port and serves in the background. It returns the
// actual port, which is useful when port is 0. Starting a running server
// returns its current port.
func (s *DebugServer) Start(port int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return s.listener.Addr().(*net.TCPAddr).Port, nil
	}

	// Bind first to fail fast on port conflicts.
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return 0, fmt.Errorf("debug server listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/window", s.handleWindow)
	mux.HandleFunc("/hit-table", s.handleHitTable)
	mux.HandleFunc("/frames", s.handleFrameTimeline)
	mux.HandleFunc("/frames/stream", s.handleFrameStream)
	mux.HandleFunc("/runtime", s.handleRuntime)

	ctx, cancel := context.WithCancel(context.Background())
	s.runtime = NewRuntimeSampleBuffer(0, 0)
	sampleRuntime(ctx, s.runtime, s.win.sampleWindow)

	server := &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.server = server
	s.listener = listener
	s.cancel = cancel

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.mu.Lock()
			if s.server == server {
				s.server = nil
				s.listener = nil
				s.cancel()
			}
			s.mu.Unlock()
			s.log.Error("debug server stopped", "error", err)
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Port returns the listening port, or 0 when stopped.
func (s *DebugServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Stop shuts the server down and closes every frame stream.
func (s *DebugServer) Stop() {
	s.mu.Lock()
	server, cancel := s.server, s.cancel
	s.server, s.listener, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if server == nil {
		return
	}
	// Ends the runtime sampler and every stream, which are hijacked
	// connections Shutdown does not track.
	cancel()
	s.streams.Wait()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelShutdown()
	server.Shutdown(ctx)
}

func (s *DebugServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// WindowInfo is the /window response shape.
type WindowInfo struct {
	Title      string  `json:"title"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Scale      float64 `json:"scale"`
	Frames     uint64  `json:"frames"`
	Pointer    string  `json:"pointer"`
	Focused    uint64  `json:"focused,omitempty"`
	Focusable  int     `json:"focusable"`
	KeyedNodes int     `json:"keyedNodes"`
	Closed     bool    `json:"closed"`
}

func (s *DebugServer) handleWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	win := s.win
	handle := win.Handle()
	width, height := handle.Size()
	info := WindowInfo{
		Title:     handle.Title(),
		Width:     width,
		Height:    height,
		Scale:     handle.ScaleFactor(),
		Focusable: win.focus.Len(),
		Closed:    win.close.Closed(),
	}
	win.frameLock.Lock()
	info.Frames = win.frames
	info.Pointer = win.normalizer.Snapshot().String()
	info.KeyedNodes = win.registry.Len()
	win.frameLock.Unlock()
	if p := win.focus.Primary(); p != nil {
		info.Focused = p.ID()
	}

	writeJSON(w, info)
}

// HitTableResponse is the /hit-table response shape.
type HitTableResponse struct {
	Entries []hittest.EntryInfo `json:"entries"`
	Chain   []int               `json:"chain,omitempty"`
}

func (s *DebugServer) handleHitTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HitTableResponse{Entries: s.win.HitTable()}
	q := r.URL.Query()
	if q.Has("x") || q.Has("y") {
		x, errX := strconv.ParseFloat(q.Get("x"), 64)
		y, errY := strconv.ParseFloat(q.Get("y"), 64)
		if errX != nil || errY != nil {
			http.Error(w, "x and y must be numbers", http.StatusBadRequest)
			return
		}
		resp.Chain = s.win.HitChain(graphics.Pt(x, y))
	}
	writeJSON(w, resp)
}

func (s *DebugServer) handleFrameTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trace := s.win.Trace()
	if trace == nil {
		http.Error(w, "frame tracing disabled", http.StatusServiceUnavailable)
		return
	}

	resp := trace.Snapshot()
	applyFrameFilters(r, &resp)
	writeJSON(w, resp)
}

func (s *DebugServer) handleFrameStream(w http.ResponseWriter, r *http.Request) {
	trace := s.win.Trace()
	if trace == nil {
		http.Error(w, "frame tracing disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("frame stream upgrade failed", "error", err)
		return
	}
	s.streams.Add(1)
	defer s.streams.Done()
	defer conn.Close()

	samples, unsubscribe := trace.Subscribe(streamBuffer)
	defer unsubscribe()

	// The client never sends data; reading detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(streamWriteTimeout))
			return
		case <-gone:
			return
		case sample := <-samples:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(sample); err != nil {
				return
			}
		}
	}
}

func (s *DebugServer) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	buffer := s.runtime
	s.mu.Unlock()
	if buffer == nil {
		http.Error(w, "runtime sampling disabled", http.StatusServiceUnavailable)
		return
	}

	resp := struct {
		IntervalMs float64         `json:"intervalMs"`
		Samples    []RuntimeSample `json:"samples"`
	}{
		IntervalMs: durationToMillis(buffer.Interval()),
		Samples:    applyRuntimeFilters(r, buffer.Snapshot()),
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func applyFrameFilters(r *http.Request, resp *FrameTimeline) {
	var filters []func(FrameSample) bool

	if v := parseFloatQuery(r, "min_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.FrameMs >= v })
	}
	if v := parseFloatQuery(r, "dispatch_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.DispatchMs >= v })
	}
	if v := parseFloatQuery(r, "layout_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.LayoutMs >= v })
	}
	if v := parseFloatQuery(r, "render_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.RenderMs >= v })
	}
	if value := r.URL.Query().Get("aborted"); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil && parsed {
			filters = append(filters, func(s FrameSample) bool { return s.Flags.Aborted })
		}
	}

	if len(filters) > 0 {
		filtered := make([]FrameSample, 0, len(resp.Samples))
	outer:
		for _, sample := range resp.Samples {
			for _, f := range filters {
				if !f(sample) {
					continue outer
				}
			}
			filtered = append(filtered, sample)
		}
		resp.Samples = filtered
	}

	if limit := parseLimit(r); limit > 0 && len(resp.Samples) > limit {
		resp.Samples = resp.Samples[len(resp.Samples)-limit:]
	}
}

func applyRuntimeFilters(r *http.Request, samples []RuntimeSample) []RuntimeSample {
	if windowSeconds := parseFloatQuery(r, "window"); windowSeconds > 0 {
		cutoff := time.Now().Add(-time.Duration(windowSeconds * float64(time.Second))).UnixMilli()
		filtered := make([]RuntimeSample, 0, len(samples))
		for _, sample := range samples {
			if sample.Timestamp >= cutoff {
				filtered = append(filtered, sample)
			}
		}
		samples = filtered
	}

	if limit := parseLimit(r); limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return samples
}

func parseLimit(r *http.Request) int {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}

func parseFloatQuery(r *http.Request, key string) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}
