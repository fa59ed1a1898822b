package types

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a single download as shown on the dashboard.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusExtracting  Status = "extracting"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// Terminal reports whether no further mutation is accepted in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// backendStatuses maps the strings the download backend reports to a Status.
// Anything not listed here is an unknown signal.
var backendStatuses = map[string]Status{
	"starting":    StatusStarting,
	"queued":      StatusStarting,
	"pending":     StatusStarting,
	"downloading": StatusDownloading,
	"resumed":     StatusDownloading,
	"active":      StatusDownloading,
	"paused":      StatusPaused,
	"extracting":  StatusExtracting,
	"installing":  StatusExtracting,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"error":       StatusError,
	"failed":      StatusError,
}

// ParseStatus maps a backend status string to a Status. The second return
// value is false for unrecognized strings.
func ParseStatus(raw string) (Status, bool) {
	s, ok := backendStatuses[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// transitions lists the legal non-identity moves between non-terminal states.
// Any non-terminal state may additionally move to completed or error.
var transitions = map[Status][]Status{
	StatusStarting:    {StatusDownloading, StatusExtracting},
	StatusDownloading: {StatusPaused, StatusExtracting},
	StatusPaused:      {StatusDownloading, StatusExtracting},
	StatusExtracting:  {},
}

// CanTransition reports whether a record in state from may move to state to.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if from == to || to.Terminal() {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DownloadRecord is the reconciled, UI-safe view of one download.
type DownloadRecord struct {
	DownloadID string `json:"download_id"`
	GameID     string `json:"game_id"`
	GameName   string `json:"game_name,omitempty"`
	GameCover  string `json:"game_cover,omitempty"`
	Status     Status `json:"status"`

	Downloaded int64 `json:"downloaded"`
	Total      int64 `json:"total"`

	Percentage         float64 `json:"percentage"`          // last accepted raw value, 0-100
	SmoothedPercentage float64 `json:"smoothed_percentage"` // never decreases
	Speed              float64 `json:"speed"`               // bytes per second
	SmoothedSpeed      float64 `json:"smoothed_speed"`
	ETA                int64   `json:"eta"` // seconds, advisory

	Error         string `json:"error,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`

	InstallPath string `json:"install_path,omitempty"`
	Executable  string `json:"executable,omitempty"`
	Version     string `json:"version,omitempty"`
	IsUpdate    bool   `json:"is_update,omitempty"`

	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether the download is still expected to change.
func (r DownloadRecord) Active() bool {
	return !r.Status.Terminal()
}
