package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/gamedash/internal/core"
)

// controlAction is one of the outbound download commands.
type controlAction struct {
	name string
	done string
	call func(b *core.RemoteBackend, ctx context.Context, id string) error
}

var controlActions = []controlAction{
	{"pause", "Paused", (*core.RemoteBackend).Pause},
	{"resume", "Resumed", (*core.RemoteBackend).Resume},
	{"cancel", "Cancelled", (*core.RemoteBackend).Cancel},
}

func newControlCmd(action controlAction) *cobra.Command {
	return &cobra.Command{
		Use:   action.name + " <id>",
		Short: fmt.Sprintf("Ask the backend to %s a download", action.name),
		Long: fmt.Sprintf(`Ask the backend to %s a download.
The ID may be a unique prefix of a download ID.`, action.name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := newBackend(loadSettings())
			if err != nil {
				return err
			}
			defer func() { _ = backend.Shutdown() }()
			return runControl(cmd.Context(), cmd.OutOrStdout(), backend, action, args[0])
		},
	}
}

func runControl(ctx context.Context, w io.Writer, backend *core.RemoteBackend, action controlAction, partialID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := resolveDownloadID(ctx, backend, partialID)
	if err != nil {
		return err
	}
	if err := action.call(backend, ctx, id); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action.name, id, err)
	}
	fmt.Fprintf(w, "%s %s\n", action.done, id)
	return nil
}

func init() {
	for _, action := range controlActions {
		rootCmd.AddCommand(newControlCmd(action))
	}
}
