package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/surge-downloader/gamedash/internal/utils"
)

// UpdateClient talks to the remote update service.
type UpdateClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewUpdateClient returns nil when baseURL is empty so callers can treat the
// update service as not configured.
func NewUpdateClient(baseURL, token string, timeout time.Duration) *UpdateClient {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UpdateClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// MarkDownloaded tells the update service that version of gameID was fetched.
func (c *UpdateClient) MarkDownloaded(ctx context.Context, gameID, version string) error {
	if c.Token == "" {
		return fmt.Errorf("update service token is not set")
	}

	resp, err := sendJSON(ctx, c.Client, c.Token, http.MethodPost, c.BaseURL+"/updates/downloaded", map[string]string{
		"game_id": gameID,
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s %s as downloaded: %w", gameID, version, err)
	}
	_ = drain(resp)
	utils.Debug("core: marked %s %s as downloaded", gameID, version)
	return nil
}
