package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/surge-downloader/gamedash/internal/core"
	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// Session ties a transport to a store and a side-effect coordinator. The
// store and coordinator are only touched by whoever calls Handle, which must
// always be the same goroutine.
type Session struct {
	Store   *reconcile.Store
	Effects *effects.Coordinator

	events <-chan events.Event
	stop   func()
	jobs   sync.WaitGroup
}

// Open subscribes to the live stream, then seeds the store from a snapshot.
// Events that arrive while the snapshot is loading wait in the stream buffer
// and are applied after seeding. A snapshot failure is logged and the session
// starts with whatever the store already holds.
func Open(ctx context.Context, transport core.Transport, store *reconcile.Store, coord *effects.Coordinator) (*Session, error) {
	ch, stop, err := transport.StreamEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	if n, err := reconcile.Bootstrap(ctx, transport, store); err != nil {
		utils.Debug("engine: starting without snapshot: %v", err)
	} else {
		utils.Debug("engine: seeded %d downloads", n)
	}

	return &Session{
		Store:   store,
		Effects: coord,
		events:  ch,
		stop:    stop,
	}, nil
}

// Events returns the live event channel. It is closed when the stream ends.
func (s *Session) Events() <-chan events.Event {
	return s.events
}

// Handle applies one event and returns the outcome together with the
// side-effect job it triggered, if any. The job has not been started.
func (s *Session) Handle(ev events.Event) (reconcile.Outcome, *effects.Job) {
	out := s.Store.Apply(ev)
	if s.Effects == nil {
		return out, nil
	}
	return out, s.Effects.Plan(out)
}

// Dispatch runs job in the background. report, if not nil, is called from the
// job's goroutine when it finishes. The job keeps ctx's values but not its
// cancellation: a job that has started runs to completion, bounded only by the
// per-task timeout. Callers bound shutdown with Wait.
func (s *Session) Dispatch(ctx context.Context, job *effects.Job, report func(effects.Report)) {
	if job == nil {
		return
	}
	jobCtx := context.WithoutCancel(ctx)
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		rep := job.Run(jobCtx)
		if !rep.OK() {
			utils.Debug("engine: %d of %d side effects failed for %s", len(rep.Failed()), len(rep.Results), rep.DownloadID)
		}
		if report != nil {
			report(rep)
		}
	}()
}

// Run applies events until the stream closes or ctx is done. onOutcome is
// called on the Run goroutine for every event; side effects are dispatched
// without waiting for them.
func (s *Session) Run(ctx context.Context, onOutcome func(reconcile.Outcome), onReport func(effects.Report)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			out, job := s.Handle(ev)
			if onOutcome != nil {
				onOutcome(out)
			}
			s.Dispatch(ctx, job, onReport)
		}
	}
}

// Wait blocks until every dispatched job has finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event stream.
func (s *Session) Close() {
	if s.stop != nil {
		s.stop()
	}
}
