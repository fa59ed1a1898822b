package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names an event on the wire (the SSE event name).
type Kind string

const (
	KindStatus   Kind = "status"
	KindProgress Kind = "progress"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// Event is one lifecycle message from the download backend. The concrete
// types below are the only implementations.
type Event interface {
	ID() string
	Kind() Kind
	isEvent()
}

// StatusMsg reports a lifecycle change. Empty optional fields mean "unknown",
// not "cleared".
type StatusMsg struct {
	DownloadID string `json:"download_id"`
	GameID     string `json:"game_id"`
	GameName   string `json:"game_name,omitempty"`
	GameCover  string `json:"game_cover,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Version    string `json:"version,omitempty"`
	IsUpdate   bool   `json:"is_update,omitempty"`
}

// ProgressMsg represents a progress update from the downloader
type ProgressMsg struct {
	DownloadID string  `json:"download_id"`
	GameID     string  `json:"game_id"`
	GameName   string  `json:"game_name,omitempty"`
	GameCover  string  `json:"game_cover,omitempty"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"` // 0-100
	Speed      float64 `json:"speed"`      // bytes per second
	ETA        int64   `json:"eta"`        // seconds
}

// DownloadCompleteMsg signals that the download finished successfully
type DownloadCompleteMsg struct {
	DownloadID  string `json:"download_id"`
	GameID      string `json:"game_id"`
	InstallPath string `json:"install_path"`
	Executable  string `json:"executable"`
	Version     string `json:"version,omitempty"`
	IsUpdate    bool   `json:"is_update,omitempty"`
}

// DownloadErrorMsg signals that an error occurred
type DownloadErrorMsg struct {
	DownloadID string
	GameID     string
	Err        error
}

func (m StatusMsg) ID() string           { return m.DownloadID }
func (m ProgressMsg) ID() string         { return m.DownloadID }
func (m DownloadCompleteMsg) ID() string { return m.DownloadID }
func (m DownloadErrorMsg) ID() string    { return m.DownloadID }

func (StatusMsg) Kind() Kind           { return KindStatus }
func (ProgressMsg) Kind() Kind         { return KindProgress }
func (DownloadCompleteMsg) Kind() Kind { return KindComplete }
func (DownloadErrorMsg) Kind() Kind    { return KindError }

func (StatusMsg) isEvent()           {}
func (ProgressMsg) isEvent()         {}
func (DownloadCompleteMsg) isEvent() {}
func (DownloadErrorMsg) isEvent()    {}

// Message returns the error text, or a generic message if none was sent.
func (m DownloadErrorMsg) Message() string {
	if m.Err == nil || m.Err.Error() == "" {
		return "download failed"
	}
	return m.Err.Error()
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		DownloadID string `json:"download_id"`
		GameID     string `json:"game_id"`
		Err        string `json:"error,omitempty"`
	}

	out := encoded{
		DownloadID: m.DownloadID,
		GameID:     m.GameID,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		DownloadID string          `json:"download_id"`
		GameID     string          `json:"game_id"`
		Err        json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.DownloadID = aux.DownloadID
	m.GameID = aux.GameID
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	// Most common case: backend sends the error as a string.
	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Structured errors such as {"message": "..."}.
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(aux.Err, &obj); err == nil && obj.Message != "" {
		m.Err = errors.New(obj.Message)
		return nil
	}

	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// ErrUnknownKind is returned by Decode for event names it does not handle.
var ErrUnknownKind = errors.New("unknown event kind")

// Decode parses the JSON payload of an event of the given kind.
func Decode(kind Kind, data []byte) (Event, error) {
	var ev Event
	var err error
	switch kind {
	case KindStatus:
		var m StatusMsg
		err = json.Unmarshal(data, &m)
		ev = m
	case KindProgress:
		var m ProgressMsg
		err = json.Unmarshal(data, &m)
		ev = m
	case KindComplete:
		var m DownloadCompleteMsg
		err = json.Unmarshal(data, &m)
		ev = m
	case KindError:
		var m DownloadErrorMsg
		err = json.Unmarshal(data, &m)
		ev = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", kind, err)
	}
	if ev.ID() == "" {
		return nil, fmt.Errorf("%s event without download_id", kind)
	}
	return ev, nil
}

// Envelope is the self-describing form of an event used in recorded event logs.
// AtMillis is the arrival offset from the start of the recording.
type Envelope struct {
	Event    Event
	AtMillis int64
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Event == nil {
		return nil, errors.New("envelope without event")
	}
	data, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Kind     Kind            `json:"event"`
		AtMillis int64           `json:"at_ms"`
		Data     json.RawMessage `json:"data"`
	}{e.Event.Kind(), e.AtMillis, data})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var aux struct {
		Kind     Kind            `json:"event"`
		AtMillis int64           `json:"at_ms"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ev, err := Decode(aux.Kind, aux.Data)
	if err != nil {
		return err
	}
	e.Event = ev
	e.AtMillis = aux.AtMillis
	return nil
}
