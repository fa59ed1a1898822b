package reconcile

import (
	"context"
	"fmt"

	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// SnapshotSource returns the downloads the backend already has in flight.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]types.DownloadRecord, error)
}

// Seed inserts snapshot records that the store does not know yet and returns
// how many were added. Backend status strings are mapped like live ones, with
// unknown values seeded as starting. Terminal records get the same final
// values a live terminal event would give them; non-terminal records get a
// guard baseline at their reported percentage so stale live samples are
// still rejected.
func (s *Store) Seed(records []types.DownloadRecord) int {
	now := s.now()
	seeded := 0
	for _, r := range records {
		if r.DownloadID == "" {
			continue
		}
		if _, exists := s.records[r.DownloadID]; exists {
			continue
		}

		rec := r
		status, known := types.ParseStatus(string(rec.Status))
		if !known {
			if rec.Status != "" {
				utils.Debug("reconcile: snapshot status %q for %s is unknown, seeding as starting", rec.Status, rec.DownloadID)
			}
			status = types.StatusStarting
		}
		rec.Status = status
		rec.Percentage = clampPercent(rec.Percentage)
		rec.SmoothedPercentage = clampPercent(rec.SmoothedPercentage)
		if rec.SmoothedPercentage == 0 || rec.SmoothedPercentage > rec.Percentage {
			rec.SmoothedPercentage = rec.Percentage
		}
		if rec.SmoothedSpeed == 0 {
			rec.SmoothedSpeed = rec.Speed
		}
		if rec.LastUpdate.IsZero() {
			rec.LastUpdate = now
		}
		switch rec.Status {
		case types.StatusCompleted:
			settleCompleted(&rec)
		case types.StatusError:
			settleStopped(&rec)
		}

		s.records[rec.DownloadID] = &rec
		if !rec.Status.Terminal() {
			s.trackFor(rec.DownloadID).guard.Prime(rec.Percentage)
		}
		seeded++
	}
	return seeded
}

// Bootstrap seeds the store from a snapshot of already-active downloads.
// It must run before any live event is applied.
func Bootstrap(ctx context.Context, src SnapshotSource, store *Store) (int, error) {
	records, err := src.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	n := store.Seed(records)
	utils.Debug("reconcile: bootstrap seeded %d of %d records", n, len(records))
	return n, nil
}
