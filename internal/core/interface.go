package core

import (
	"context"

	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
)

// Transport is the inbound side of the download backend: a snapshot of the
// downloads it already has and a live, unordered event feed.
type Transport interface {
	reconcile.SnapshotSource

	// StreamEvents returns a channel of live events and a function that stops
	// the stream. The channel is closed once the stream ends. Events that do
	// not fit in the channel buffer are dropped.
	StreamEvents(ctx context.Context) (<-chan events.Event, func(), error)
}

// Commands are the fire-and-forget control calls the dashboard can make.
type Commands interface {
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

// Backend is the full boundary to the native download backend.
type Backend interface {
	Transport
	Commands
	effects.Backend

	// Shutdown stops any open streams.
	Shutdown() error
}
