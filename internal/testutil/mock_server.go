// Package testutil provides testing utilities for the gamedash dashboard.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/library"
)

// Call is one request received by a MockBackend.
type Call struct {
	Method string
	Path   string
	ID     string
	Body   map[string]any
}

// MockBackend is a configurable HTTP test server speaking the download
// backend API.
type MockBackend struct {
	Server *httptest.Server

	// Configuration
	Token       string                 // Required bearer token ("" = no auth)
	Snapshot    []types.DownloadRecord // Served from /list
	Games       []library.Game         // Served from /installed/refresh
	Latency     time.Duration          // Artificial latency per request
	FailPaths   map[string]int         // Status code to return for a path
	ContentType string                 // Content-Type of the event stream

	// Tracking
	RequestCount atomic.Int64
	StreamCount  atomic.Int64

	mu     sync.Mutex
	calls  []Call
	stream chan string
}

// MockBackendOption is a function that configures a MockBackend.
type MockBackendOption func(*MockBackend)

// WithToken requires a bearer token on every request.
func WithToken(token string) MockBackendOption {
	return func(m *MockBackend) {
		m.Token = token
	}
}

// WithSnapshot sets the records returned by /list.
func WithSnapshot(records ...types.DownloadRecord) MockBackendOption {
	return func(m *MockBackend) {
		m.Snapshot = records
	}
}

// WithGames sets the installed games returned on refresh.
func WithGames(games ...library.Game) MockBackendOption {
	return func(m *MockBackend) {
		m.Games = games
	}
}

// WithLatency adds artificial latency per request.
func WithLatency(d time.Duration) MockBackendOption {
	return func(m *MockBackend) {
		m.Latency = d
	}
}

// WithFailure makes every request to path fail with status.
func WithFailure(path string, status int) MockBackendOption {
	return func(m *MockBackend) {
		m.FailPaths[path] = status
	}
}

// WithStreamContentType overrides the event stream Content-Type.
func WithStreamContentType(ct string) MockBackendOption {
	return func(m *MockBackend) {
		m.ContentType = ct
	}
}

func newMockBackend(opts []MockBackendOption) *MockBackend {
	m := &MockBackend{
		FailPaths:   make(map[string]int),
		ContentType: "text/event-stream",
		stream:      make(chan string, 256),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMockBackend creates a new mock backend with the given options.
func NewMockBackend(opts ...MockBackendOption) *MockBackend {
	m := newMockBackend(opts)
	m.Server = NewHTTPServer(m.handler())
	return m
}

// NewMockBackendT creates a new mock backend and skips the test if binding fails.
func NewMockBackendT(t *testing.T, opts ...MockBackendOption) *MockBackend {
	t.Helper()
	m := newMockBackend(opts)
	m.Server = NewHTTPServerT(t, m.handler())
	t.Cleanup(m.Close)
	return m
}

// URL returns the server's URL.
func (m *MockBackend) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	if m.Server != nil {
		m.Server.CloseClientConnections()
		m.Server.Close()
	}
}

// Push queues an event for the connected event stream.
func (m *MockBackend) Push(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		panic(err)
	}
	m.stream <- fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Kind(), data)
}

// PushRaw queues a raw SSE frame, which must include its trailing blank line.
func (m *MockBackend) PushRaw(frame string) {
	m.stream <- frame
}

// Calls returns the non-stream requests received so far.
func (m *MockBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the requests received for one path.
func (m *MockBackend) CallsTo(path string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", m.handleEvents)
	mux.HandleFunc("/list", m.record(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.snapshot())
	}))
	mux.HandleFunc("/installed/refresh", m.record(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Games)
	}))
	for _, path := range []string{"/pause", "/resume", "/cancel", "/installed/version", "/emit", "/notify", "/updates/downloaded"} {
		mux.HandleFunc(path, m.record(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "ok"})
		}))
	}
	return mux
}

func (m *MockBackend) snapshot() []types.DownloadRecord {
	if m.Snapshot == nil {
		return []types.DownloadRecord{}
	}
	return m.Snapshot
}

func (m *MockBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if m.Token == "" || r.Header.Get("Authorization") == "Bearer "+m.Token {
		return true
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

func (m *MockBackend) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.RequestCount.Add(1)
		if m.Latency > 0 {
			time.Sleep(m.Latency)
		}
		if !m.authorized(w, r) {
			return
		}

		call := Call{Method: r.Method, Path: r.URL.Path, ID: r.URL.Query().Get("id")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &call.Body)
		}
		m.mu.Lock()
		m.calls = append(m.calls, call)
		m.mu.Unlock()

		if status, ok := m.FailPaths[r.URL.Path]; ok {
			http.Error(w, "Simulated failure", status)
			return
		}
		if r.URL.Path != "/list" && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (m *MockBackend) handleEvents(w http.ResponseWriter, r *http.Request) {
	m.RequestCount.Add(1)
	if !m.authorized(w, r) {
		return
	}
	if status, ok := m.FailPaths["/events"]; ok {
		http.Error(w, "Simulated failure", status)
		return
	}
	m.StreamCount.Add(1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-m.stream:
			if _, err := io.WriteString(w, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
