package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

// FakeBackend is an in-memory download backend. Every call is recorded as
// "<method>:<arg>" and can be made to fail with Fail.
type FakeBackend struct {
	Records     []types.DownloadRecord
	SnapshotErr error

	mu       sync.Mutex
	calls    []string
	failures map[string]error
	stream   chan events.Event
	stopped  bool

	// Subscribed is closed once StreamEvents has been called.
	Subscribed chan struct{}
}

// NewFakeBackend creates a FakeBackend whose stream buffers up to buffer events.
func NewFakeBackend(buffer int) *FakeBackend {
	return &FakeBackend{
		failures:   make(map[string]error),
		stream:     make(chan events.Event, buffer),
		Subscribed: make(chan struct{}),
	}
}

// Fail makes calls to method return err.
func (f *FakeBackend) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Send delivers an event on the stream.
func (f *FakeBackend) Send(ev events.Event) {
	f.stream <- ev
}

// End closes the stream.
func (f *FakeBackend) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.stream)
	}
}

// Calls returns the recorded calls in order.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeBackend) record(method, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+":"+arg)
	return f.failures[method]
}

func (f *FakeBackend) Snapshot(ctx context.Context) ([]types.DownloadRecord, error) {
	if err := f.record("snapshot", ""); err != nil {
		return nil, err
	}
	if f.SnapshotErr != nil {
		return nil, f.SnapshotErr
	}
	return append([]types.DownloadRecord(nil), f.Records...), nil
}

func (f *FakeBackend) StreamEvents(ctx context.Context) (<-chan events.Event, func(), error) {
	if err := f.record("subscribe", ""); err != nil {
		return nil, nil, err
	}
	close(f.Subscribed)
	return f.stream, f.End, nil
}

func (f *FakeBackend) Pause(ctx context.Context, id string) error  { return f.record("pause", id) }
func (f *FakeBackend) Resume(ctx context.Context, id string) error { return f.record("resume", id) }
func (f *FakeBackend) Cancel(ctx context.Context, id string) error { return f.record("cancel", id) }

func (f *FakeBackend) PersistInstalledVersion(ctx context.Context, gameID, version string) error {
	return f.record("persist", gameID+"@"+version)
}

func (f *FakeBackend) RefreshInstalledGames(ctx context.Context) error {
	return f.record("refresh", "")
}

func (f *FakeBackend) EmitEvent(ctx context.Context, name string, payload any) error {
	return f.record("emit", name)
}

func (f *FakeBackend) ShowNotification(ctx context.Context, title, body string) error {
	return f.record("notify", title)
}

func (f *FakeBackend) MarkDownloaded(ctx context.Context, gameID, version string) error {
	return f.record("mark", gameID+"@"+version)
}

func (f *FakeBackend) Shutdown() error {
	f.End()
	return nil
}

// String summarises the backend for test failure messages.
func (f *FakeBackend) String() string {
	return fmt.Sprintf("FakeBackend{calls: %v}", f.Calls())
}
