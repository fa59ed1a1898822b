package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vfaronov/httpheader"

	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/library"
	"github.com/surge-downloader/gamedash/internal/utils"
)

const (
	minReconnectDelay = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// RemoteBackend implements Backend over the backend's HTTP API.
type RemoteBackend struct {
	BaseURL   string
	Token     string
	Client    *http.Client
	SSEClient *http.Client

	// Library, if set, is replaced with the backend's list on every refresh.
	Library *library.Cache

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRemoteBackend creates a new remote backend client.
func NewRemoteBackend(baseURL string, token string, timeout time.Duration) *RemoteBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteBackend{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		Client:    &http.Client{Timeout: timeout},
		SSEClient: &http.Client{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// apiError is returned for any response with a status code of 400 or above.
func apiError(resp *http.Response) error {
	// Limit error body read to 1KB to prevent DoS
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
}

func (s *RemoteBackend) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	if ctx == nil {
		ctx = s.ctx
	}
	return sendJSON(ctx, s.Client, s.Token, method, s.BaseURL+path, body)
}

// sendJSON sends an optionally JSON-encoded body with bearer auth and turns
// error statuses into errors.
func sendJSON(ctx context.Context, client *http.Client, token, method, target string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, apiError(resp)
	}

	return resp, nil
}

// post sends a command and discards the response body.
func (s *RemoteBackend) post(ctx context.Context, path string, body interface{}) error {
	resp, err := s.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return drain(resp)
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Snapshot returns the downloads the backend currently has in flight.
func (s *RemoteBackend) Snapshot(ctx context.Context) ([]types.DownloadRecord, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/list", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var records []types.DownloadRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return records, nil
}

// Pause pauses an active download.
func (s *RemoteBackend) Pause(ctx context.Context, id string) error {
	return s.post(ctx, "/pause?id="+url.QueryEscape(id), nil)
}

// Resume resumes a paused download.
func (s *RemoteBackend) Resume(ctx context.Context, id string) error {
	return s.post(ctx, "/resume?id="+url.QueryEscape(id), nil)
}

// Cancel stops a download.
func (s *RemoteBackend) Cancel(ctx context.Context, id string) error {
	return s.post(ctx, "/cancel?id="+url.QueryEscape(id), nil)
}

// PersistInstalledVersion records the version now installed for a game.
func (s *RemoteBackend) PersistInstalledVersion(ctx context.Context, gameID, version string) error {
	err := s.post(ctx, "/installed/version", map[string]string{
		"game_id": gameID,
		"version": version,
	})
	if err != nil {
		return err
	}
	if s.Library != nil {
		if err := s.Library.SetVersion(ctx, gameID, version); err != nil {
			utils.Debug("core: failed to update cached version for %s: %v", gameID, err)
		}
	}
	return nil
}

// RefreshInstalledGames asks the backend to rescan installed games and
// replaces the local cache with the result.
func (s *RemoteBackend) RefreshInstalledGames(ctx context.Context) error {
	resp, err := s.doRequest(ctx, http.MethodPost, "/installed/refresh", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var games []library.Game
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return fmt.Errorf("failed to decode installed games: %w", err)
	}
	if s.Library == nil {
		return nil
	}
	if err := s.Library.Replace(ctx, games); err != nil {
		return fmt.Errorf("failed to cache installed games: %w", err)
	}
	return nil
}

// EmitEvent broadcasts a named event to every open dashboard window.
func (s *RemoteBackend) EmitEvent(ctx context.Context, name string, payload any) error {
	return s.post(ctx, "/emit", map[string]any{
		"id":      uuid.NewString(),
		"name":    name,
		"payload": payload,
	})
}

// ShowNotification asks the backend to show a system notification.
func (s *RemoteBackend) ShowNotification(ctx context.Context, title, body string) error {
	return s.post(ctx, "/notify", map[string]string{
		"title": title,
		"body":  body,
	})
}

// Shutdown stops the backend client and any open event streams.
func (s *RemoteBackend) Shutdown() error {
	s.cancel()
	return nil
}

// StreamEvents returns a channel that receives real-time download events via SSE.
func (s *RemoteBackend) StreamEvents(ctx context.Context) (<-chan events.Event, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.ctx.Done():
			stop()
		case <-ctx.Done():
		}
	}()
	ch := make(chan events.Event, types.EventChannelBuffer)
	go s.streamWithReconnect(ctx, ch)
	return ch, stop, nil
}

func (s *RemoteBackend) streamWithReconnect(ctx context.Context, ch chan events.Event) {
	defer close(ch)
	backoff := minReconnectDelay
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ctx.Done():
			return
		default:
		}

		connected, err := s.connectSSE(ctx, ch)
		if err == nil {
			return
		}
		if connected {
			backoff = minReconnectDelay
		}
		utils.Debug("core: event stream interrupted, retrying in %s: %v", backoff, err)

		select {
		case <-s.ctx.Done():
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < maxReconnectDelay {
			backoff *= 2
			if backoff > maxReconnectDelay {
				backoff = maxReconnectDelay
			}
		}
	}
}

// connectSSE reads one SSE connection until it fails. connected reports
// whether the stream was established before the failure. A nil error means
// the stream was stopped by the caller.
func (s *RemoteBackend) connectSSE(ctx context.Context, ch chan events.Event) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/events", nil)
	if err != nil {
		return false, err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := s.SSEClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || s.ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("failed to connect to event stream: %s", resp.Status)
	}
	if mtype, _ := httpheader.ContentType(resp.Header); mtype != "text/event-stream" {
		return false, fmt.Errorf("unexpected event stream content type %q", mtype)
	}

	err = readEvents(ctx, resp.Body, ch)
	if ctx.Err() != nil || s.ctx.Err() != nil {
		return true, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return true, err
}

// readEvents parses an SSE body and delivers decoded events until the body
// ends or fails. Progress is dropped when ch is full; lifecycle events wait
// for room.
func readEvents(ctx context.Context, body io.Reader, ch chan<- events.Event) error {
	reader := bufio.NewReader(body)
	for {
		eventType := ""
		var dataLines []string

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			line = strings.TrimRight(line, "\r\n")

			// Blank line dispatches event
			if line == "" {
				break
			}
			// Comment/heartbeat
			if strings.HasPrefix(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			}
		}

		if eventType == "" || len(dataLines) == 0 {
			continue
		}

		ev, err := events.Decode(events.Kind(eventType), []byte(strings.Join(dataLines, "\n")))
		if err != nil {
			utils.Debug("core: skipping %s event: %v", eventType, err)
			continue
		}

		if ev.Kind() != events.KindProgress {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// Non-blocking send
		select {
		case ch <- ev:
		default:
			utils.Debug("core: event buffer full, dropped progress for %s", ev.ID())
		}
	}
}
