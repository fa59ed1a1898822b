package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a recorded event log through the reconciler",
	Long: `Replay reads a JSON Lines event log, one {"event":..,"at_ms":..,"data":{..}} object
per line, applies it to an empty store using at_ms as the clock, and prints the
resulting records as JSON. Side effects are planned but never run.
Use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open event log: %w", err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}

		settings := loadSettings()
		result, err := replayEvents(r, types.ConvertRuntimeConfig(settings.ToRuntimeConfig()), settings.General.NotifyOnComplete)
		if err != nil {
			return err
		}

		if verbose {
			result.printSummary(cmd.ErrOrStderr())
		}
		return printRecordsJSON(cmd.OutOrStdout(), result.Records)
	},
}

// replayResult is the outcome of a replay.
type replayResult struct {
	Records []types.DownloadRecord
	Applied int
	Dropped map[reconcile.Reason]int
	// Planned lists the side-effect plans in order, as "<id> <transition>: task, task".
	Planned []string
}

func (r replayResult) printSummary(w io.Writer) {
	fmt.Fprintf(w, "Applied %d events\n", r.Applied)
	for reason, n := range r.Dropped {
		fmt.Fprintf(w, "Dropped %d events: %s\n", n, reason)
	}
	for _, p := range r.Planned {
		fmt.Fprintf(w, "Planned %s\n", p)
	}
}

// replayEvents applies a recorded log to a fresh store. Blank lines and lines
// starting with # are skipped.
func replayEvents(r io.Reader, params types.Params, notify bool) (replayResult, error) {
	start := time.Unix(0, 0).UTC()
	now := start
	store := reconcile.NewStore(params, reconcile.WithClock(func() time.Time { return now }))
	coord := effects.NewCoordinator(discardBackend{}, discardBackend{}, effects.Options{Notify: notify})

	result := replayResult{Dropped: make(map[reconcile.Reason]int)}

	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024 // 1MB per line
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var env events.Envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			return replayResult{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if at := start.Add(time.Duration(env.AtMillis) * time.Millisecond); at.After(now) {
			now = at
		}

		out := store.Apply(env.Event)
		if !out.Applied {
			result.Dropped[out.Reason]++
			continue
		}
		result.Applied++
		if job := coord.Plan(out); job != nil {
			names := make([]string, len(job.Tasks))
			for i, t := range job.Tasks {
				names[i] = t.Name
			}
			result.Planned = append(result.Planned, fmt.Sprintf("%s %s: %s", job.DownloadID, job.Transition, strings.Join(names, ", ")))
		}
	}
	if err := scanner.Err(); err != nil {
		return replayResult{}, fmt.Errorf("failed to read event log: %w", err)
	}

	result.Records = store.List()
	return result, nil
}

// discardBackend satisfies the side-effect interfaces for plans that are
// never run.
type discardBackend struct{}

func (discardBackend) PersistInstalledVersion(context.Context, string, string) error { return nil }
func (discardBackend) RefreshInstalledGames(context.Context) error                   { return nil }
func (discardBackend) EmitEvent(context.Context, string, any) error                  { return nil }
func (discardBackend) ShowNotification(context.Context, string, string) error        { return nil }
func (discardBackend) MarkDownloaded(context.Context, string, string) error          { return nil }

func init() {
	replayCmd.Flags().BoolP("verbose", "v", false, "Print applied/dropped counts and planned side effects to stderr")
	rootCmd.AddCommand(replayCmd)
}
