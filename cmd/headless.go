package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

// headlessPrinter writes one line per lifecycle change. Outcomes arrive on
// the session goroutine and reports on job goroutines, so writes are locked.
type headlessPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]types.Status
}

func newHeadlessPrinter(w io.Writer) *headlessPrinter {
	return &headlessPrinter{w: w, seen: make(map[string]types.Status)}
}

func (p *headlessPrinter) outcome(out reconcile.Outcome) {
	if !out.Applied {
		return
	}
	prev, known := p.seen[out.DownloadID]
	status := out.Record.Status
	p.seen[out.DownloadID] = status
	if known && prev == status {
		return
	}

	line := describeOutcome(out, known)
	if line == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

func (p *headlessPrinter) report(rep effects.Report) {
	failed := rep.Failed()
	if len(failed) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, res := range failed {
		fmt.Fprintf(p.w, "Follow-up failed: %s [%s]: %v\n", res.Task, shortID(rep.DownloadID), res.Err)
	}
}

func describeOutcome(out reconcile.Outcome, known bool) string {
	rec := out.Record
	name := recordLabel(rec)
	id := shortID(out.DownloadID)

	switch out.Transition {
	case reconcile.Completed:
		if rec.InstallPath != "" {
			return fmt.Sprintf("Completed: %s [%s] -> %s", name, id, rec.InstallPath)
		}
		return fmt.Sprintf("Completed: %s [%s]", name, id)
	case reconcile.Failed:
		return fmt.Sprintf("Error: %s [%s]: %s", name, id, rec.Error)
	}

	if !known {
		return fmt.Sprintf("Started: %s [%s] (%s)", name, id, rec.Status)
	}
	switch rec.Status {
	case types.StatusPaused:
		return fmt.Sprintf("Paused: %s [%s] at %.1f%%", name, id, rec.SmoothedPercentage)
	case types.StatusDownloading:
		return fmt.Sprintf("Downloading: %s [%s] at %.1f%%", name, id, rec.SmoothedPercentage)
	case types.StatusExtracting:
		return fmt.Sprintf("Extracting: %s [%s]", name, id)
	}
	return ""
}

// runHeadless prints transitions until the stream ends or ctx is cancelled,
// then waits briefly for side effects that are still running.
func runHeadless(ctx context.Context, w io.Writer, session *engine.Session) error {
	p := newHeadlessPrinter(w)
	for _, rec := range session.Store.List() {
		p.seen[rec.DownloadID] = rec.Status
	}

	err := session.Run(ctx, p.outcome, p.report)

	waitCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if werr := session.Wait(waitCtx); werr != nil {
		p.mu.Lock()
		fmt.Fprintln(w, "Some follow-up steps were still running at exit.")
		p.mu.Unlock()
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
