package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides, e.g. GAMEDASH_BACKEND_URL.
const EnvPrefix = "gamedash"

// envOverrides lists the settings that may come from the environment.
// Pointer fields distinguish "unset" from zero values.
type envOverrides struct {
	BackendURL          string         `envconfig:"BACKEND_URL"`
	BackendToken        string         `envconfig:"BACKEND_TOKEN"`
	UpdatesAPIURL       string         `envconfig:"UPDATES_API_URL"`
	UpdatesToken        string         `envconfig:"UPDATES_TOKEN"`
	ProgressTolerance   *float64       `envconfig:"PROGRESS_TOLERANCE"`
	MinProgressInterval *time.Duration `envconfig:"MIN_PROGRESS_INTERVAL"`
	NotifyOnComplete    *bool          `envconfig:"NOTIFY_ON_COMPLETE"`
}

// ApplyEnv overlays GAMEDASH_* environment variables onto s.
func (s *Settings) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.BackendURL != "" {
		s.Backend.URL = env.BackendURL
	}
	if env.BackendToken != "" {
		s.Backend.Token = env.BackendToken
	}
	if env.UpdatesAPIURL != "" {
		s.Updates.APIURL = env.UpdatesAPIURL
	}
	if env.UpdatesToken != "" {
		s.Updates.Token = env.UpdatesToken
	}
	if env.ProgressTolerance != nil {
		s.Reconciler.ProgressTolerance = *env.ProgressTolerance
	}
	if env.MinProgressInterval != nil {
		s.Reconciler.MinProgressInterval = *env.MinProgressInterval
	}
	if env.NotifyOnComplete != nil {
		s.General.NotifyOnComplete = *env.NotifyOnComplete
	}
	return nil
}
