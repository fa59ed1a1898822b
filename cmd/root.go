package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/surge-downloader/gamedash/internal/config"
	"github.com/surge-downloader/gamedash/internal/core"
	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/library"
	"github.com/surge-downloader/gamedash/internal/tui"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Persistent flags shared by every command.
var (
	globalBackend string
	globalToken   string
	insecureHTTP  bool
)

// drainTimeout bounds how long shutdown waits for running side effects.
const drainTimeout = 5 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gamedash",
	Short: "A terminal dashboard for game downloads",
	Long: `gamedash follows the event stream of a game download backend and shows one
consistent, never-regressing view of every download.`,
	Version: Version,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := initializeGlobalState()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Attempt to acquire lock
		isMaster, err := AcquireLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acquiring lock: %v\n", err)
			os.Exit(1)
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: gamedash is already running.")
			fmt.Fprintln(os.Stderr, "Use 'gamedash list' to inspect downloads from another terminal.")
			os.Exit(1)
		}
		defer ReleaseLock()

		headless, _ := cmd.Flags().GetBool("headless")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := run(ctx, settings, headless); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func run(ctx context.Context, settings *config.Settings, headless bool) error {
	a, err := newApp(settings, filepath.Join(config.GetStateDir(), "library.db"))
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := engine.Open(ctx, a.backend, a.store, a.coord)
	if err != nil {
		return err
	}
	defer session.Close()

	if headless {
		return runHeadless(ctx, os.Stdout, session)
	}
	return startTUI(ctx, session, a.backend)
}

// startTUI runs the dashboard until the user quits or ctx is cancelled.
func startTUI(ctx context.Context, session *engine.Session, commands core.Commands) error {
	m := tui.NewRootModel(ctx, session, commands)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// app holds the collaborators wired from settings.
type app struct {
	backend *core.RemoteBackend
	library *library.Cache
	store   *reconcile.Store
	coord   *effects.Coordinator
}

// newApp wires the backend, installed-games cache, store and side-effect
// coordinator. A cache that cannot be opened is logged and skipped.
func newApp(settings *config.Settings, libraryPath string, opts ...reconcile.Option) (*app, error) {
	backend, err := newBackend(settings)
	if err != nil {
		return nil, err
	}

	a := &app{backend: backend}
	if libraryPath != "" {
		if lib, err := library.Open(libraryPath); err != nil {
			utils.Debug("library cache unavailable: %v", err)
		} else {
			a.library = lib
			backend.Library = lib
		}
	}

	var marker effects.UpdateMarker
	if uc := core.NewUpdateClient(settings.Updates.APIURL, settings.Updates.Token, settings.Backend.RequestTimeout); uc != nil {
		marker = uc
	}
	a.coord = effects.NewCoordinator(backend, marker, effects.Options{
		Notify:      settings.General.NotifyOnComplete,
		TaskTimeout: settings.Effects.TaskTimeout,
	})
	a.store = reconcile.NewStore(types.ConvertRuntimeConfig(settings.ToRuntimeConfig()), opts...)
	return a, nil
}

func (a *app) Close() {
	_ = a.backend.Shutdown()
	if a.library != nil {
		if err := a.library.Close(); err != nil {
			utils.Debug("closing library cache: %v", err)
		}
	}
}

// newBackend builds the backend client from settings and the persistent flags.
func newBackend(settings *config.Settings) (*core.RemoteBackend, error) {
	target := strings.TrimSpace(globalBackend)
	if target == "" {
		target = settings.Backend.URL
	}
	if target == "" {
		return nil, errors.New("no backend configured. pass --backend or set GAMEDASH_BACKEND_URL")
	}
	baseURL, err := resolveConnectBaseURL(target, insecureHTTP)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(globalToken)
	if token == "" {
		token = settings.Backend.Token
	}
	return core.NewRemoteBackend(baseURL, token, settings.Backend.RequestTimeout), nil
}

// loadSettings reads the settings file and applies environment overrides.
// A broken settings file falls back to defaults.
func loadSettings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		utils.Debug("failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	if err := settings.ApplyEnv(); err != nil {
		utils.Debug("%v", err)
	}
	return settings
}

// initializeGlobalState sets up directories, logging and the theme, and
// returns the effective settings.
func initializeGlobalState() (*config.Settings, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create app directories: %w", err)
	}

	utils.ConfigureDebug(config.GetLogsDir())
	settings := loadSettings()
	utils.CleanupLogs(settings.General.LogRetentionCount)
	tui.ApplyTheme(settings.General.Theme)

	return settings, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalBackend, "backend", "", "Download backend address or URL (or set GAMEDASH_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&globalToken, "token", "", "Bearer token for the backend (or set GAMEDASH_BACKEND_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&insecureHTTP, "insecure-http", false, "Allow plain HTTP for non-loopback backends")
	rootCmd.Flags().Bool("headless", false, "Print transitions to stdout instead of starting the dashboard")
	rootCmd.SetVersionTemplate("gamedash version {{.Version}}\n")
}
