package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General    GeneralSettings    `json:"general"`
	Reconciler ReconcilerSettings `json:"reconciler"`
	Backend    BackendSettings    `json:"backend"`
	Updates    UpdateSettings     `json:"updates"`
	Effects    EffectSettings     `json:"effects"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	NotifyOnComplete  bool `json:"notify_on_complete"`
	Theme             int  `json:"theme"`
	LogRetentionCount int  `json:"log_retention_count"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// ReconcilerSettings tunes how the progress feed is filtered.
type ReconcilerSettings struct {
	ProgressTolerance   float64       `json:"progress_tolerance"`
	MinProgressInterval time.Duration `json:"min_progress_interval"`
	PercentWindow       int           `json:"percent_window"`
	SpeedWindow         int           `json:"speed_window"`
}

// BackendSettings locates the download backend.
type BackendSettings struct {
	URL            string        `json:"url"`
	Token          string        `json:"token"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// UpdateSettings configures the remote update-bookkeeping API.
type UpdateSettings struct {
	APIURL string `json:"api_url"`
	Token  string `json:"token"`
}

// EffectSettings configures completion side effects.
type EffectSettings struct {
	TaskTimeout time.Duration `json:"task_timeout"`
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "bool", "duration", "float64"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "notify_on_complete", Label: "Notify on Complete", Description: "Show a system notification when a download completes or fails.", Type: "bool"},
			{Key: "theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
		"Reconciler": {
			{Key: "progress_tolerance", Label: "Progress Tolerance", Description: "Percentage points a progress sample may drop before it is rejected as stale.", Type: "float64"},
			{Key: "min_progress_interval", Label: "Min Progress Interval", Description: "Progress samples closer together than this are dropped (e.g., 100ms).", Type: "duration"},
			{Key: "percent_window", Label: "Percent Window", Description: "Number of samples averaged for the displayed percentage.", Type: "int"},
			{Key: "speed_window", Label: "Speed Window", Description: "Number of samples averaged for the displayed speed.", Type: "int"},
		},
		"Backend": {
			{Key: "url", Label: "Backend URL", Description: "Base URL of the download backend (e.g. http://127.0.0.1:1700).", Type: "string"},
			{Key: "token", Label: "Backend Token", Description: "Bearer token for the download backend.", Type: "string"},
			{Key: "request_timeout", Label: "Request Timeout", Description: "Timeout for backend commands (e.g., 30s).", Type: "duration"},
		},
		"Updates": {
			{Key: "api_url", Label: "Update API URL", Description: "Remote API used to mark updates as downloaded. Leave empty to skip.", Type: "string"},
			{Key: "token", Label: "Update API Token", Description: "Bearer token for the update API.", Type: "string"},
		},
		"Effects": {
			{Key: "task_timeout", Label: "Side Effect Timeout", Description: "Timeout for each completion side effect (e.g., 10s).", Type: "duration"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Reconciler", "Backend", "Updates", "Effects"}
}

// CategorySection returns the JSON section of Settings that holds the keys of
// a metadata category.
func CategorySection(category string) string {
	return strings.ToLower(category)
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			NotifyOnComplete:  true,
			Theme:             ThemeAdaptive,
			LogRetentionCount: 5,
		},
		Reconciler: ReconcilerSettings{
			ProgressTolerance:   5,
			MinProgressInterval: 100 * time.Millisecond,
			PercentWindow:       3,
			SpeedWindow:         5,
		},
		Backend: BackendSettings{
			URL:            "http://127.0.0.1:1700",
			RequestTimeout: 30 * time.Second,
		},
		Effects: EffectSettings{
			TaskTimeout: 10 * time.Second,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// RuntimeConfig is the subset of Settings the reconciler consumes.
type RuntimeConfig struct {
	ProgressTolerance   float64
	MinProgressInterval time.Duration
	PercentWindow       int
	SpeedWindow         int
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		ProgressTolerance:   s.Reconciler.ProgressTolerance,
		MinProgressInterval: s.Reconciler.MinProgressInterval,
		PercentWindow:       s.Reconciler.PercentWindow,
		SpeedWindow:         s.Reconciler.SpeedWindow,
	}
}
