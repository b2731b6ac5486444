// Package remote is the HTTP client for the role service. The engine only
// depends on the service's success/failure contract; response bodies
// beyond the enable-all role list are ignored.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"role-state-sync/internal/domain"
)

const (
	setRolePath        = "/roles/set-role"
	enableAllRolesPath = "/test-mode/enable-all-roles"

	requestIDHeader = "X-Request-ID"
)

// Client talks to the remote role service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetRole asks the service to persist role as the session's current role.
// Any non-2xx response is a rejection.
func (c *Client) SetRole(ctx context.Context, role domain.Role) error {
	body := map[string]string{"role": string(role)}
	resp, err := c.post(ctx, setRolePath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("set-role rejected with status %d", resp.StatusCode)
	}
	return nil
}

// EnableAllRoles asks the service to unlock every role for identity and
// returns the list the service reports as enabled.
func (c *Client) EnableAllRoles(ctx context.Context, identity string) (domain.RoleSet, error) {
	body := map[string]string{"identity": identity}
	resp, err := c.post(ctx, enableAllRolesPath, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enable-all-roles rejected with status %d", resp.StatusCode)
	}

	var payload struct {
		Roles []domain.Role `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode enable-all-roles response: %w", err)
	}
	return domain.NewRoleSet(payload.Roles...), nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return resp, nil
}
