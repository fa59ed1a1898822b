package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List downloads known to the backend",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		settings := loadSettings()
		backend, err := newBackend(settings)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Shutdown() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		records, err := fetchRecords(ctx, backend, types.ConvertRuntimeConfig(settings.ToRuntimeConfig()))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printRecordsJSON(cmd.OutOrStdout(), records)
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

// fetchRecords seeds an empty store from the snapshot so the listing shows
// the same normalized values the dashboard starts from.
func fetchRecords(ctx context.Context, src reconcile.SnapshotSource, params types.Params) ([]types.DownloadRecord, error) {
	store := reconcile.NewStore(params)
	if _, err := reconcile.Bootstrap(ctx, src, store); err != nil {
		return nil, err
	}
	return store.List(), nil
}

func printRecordsJSON(w io.Writer, records []types.DownloadRecord) error {
	if records == nil {
		records = []types.DownloadRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func printRecords(w io.Writer, records []types.DownloadRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No downloads.")
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Active() && !records[j].Active()
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGAME\tSTATUS\tPROGRESS\tSIZE\tSPEED")
	for _, r := range records {
		speed := "-"
		if r.Active() && r.SmoothedSpeed > 0 {
			speed = humanize.Bytes(uint64(r.SmoothedSpeed)) + "/s"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
			shortID(r.DownloadID),
			recordLabel(r),
			r.Status,
			r.SmoothedPercentage,
			formatSize(r.Downloaded, r.Total),
			speed,
		)
	}
	_ = tw.Flush()
}

func formatSize(downloaded, total int64) string {
	if total <= 0 {
		if downloaded <= 0 {
			return "-"
		}
		return humanize.Bytes(uint64(downloaded))
	}
	return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total)))
}

func recordLabel(r types.DownloadRecord) string {
	switch {
	case r.GameName != "":
		return r.GameName
	case r.GameID != "":
		return r.GameID
	default:
		return "-"
	}
}

func init() {
	listCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
