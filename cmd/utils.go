package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
)

// resolveDownloadID resolves a partial ID (prefix) to a full download ID using
// the backend's current snapshot. The original ID is returned if the snapshot
// cannot be fetched or nothing matches; the backend reports "not found" then.
func resolveDownloadID(ctx context.Context, src reconcile.SnapshotSource, partialID string) (string, error) {
	records, err := src.Snapshot(ctx)
	if err != nil {
		return partialID, nil
	}
	candidates := make([]string, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, r.DownloadID)
	}
	return resolveIDFromCandidates(partialID, candidates)
}

func resolveIDFromCandidates(partialID string, candidates []string) (string, error) {
	var matches []string
	seen := make(map[string]bool)

	for _, id := range candidates {
		if id == partialID {
			return id, nil
		}
		if strings.HasPrefix(id, partialID) && !seen[id] {
			matches = append(matches, id)
			seen[id] = true
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous ID prefix '%s' matches %d downloads", partialID, len(matches))
	}

	return partialID, nil // No match, use as-is (will fail with "not found" later)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
