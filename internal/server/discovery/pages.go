// Package discovery propagates the backing-store list to the frontend
// deployment platform so the static site knows which stores to read from.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Propagator pushes the current store-name list to an external consumer.
// Propagation is best-effort: callers log failures and move on.
type Propagator interface {
	PropagateStoreList(ctx context.Context, names []string) error
}

// PagesClient updates the REPOS environment variable of a Cloudflare
// Pages project. The frontend build reads it to enumerate stores.
type PagesClient struct {
	apiToken  string
	accountID string
	project   string
	baseURL   string
	client    *http.Client
}

// NewPagesClient builds a propagator for the given Pages project.
func NewPagesClient(apiToken, accountID, project string) *PagesClient {
	return &PagesClient{
		apiToken:  apiToken,
		accountID: accountID,
		project:   project,
		baseURL:   "https://api.cloudflare.com/client/v4",
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the client has enough credentials to call the API.
func (c *PagesClient) Configured() bool {
	return c.apiToken != "" && c.accountID != "" && c.project != ""
}

// PropagateStoreList PATCHes the project so the REPOS env var holds a
// comma-separated list of store names, in both production and preview.
func (c *PagesClient) PropagateStoreList(ctx context.Context, names []string) error {
	if !c.Configured() {
		return nil
	}

	value := strings.Join(names, ",")
	envVar := map[string]any{"REPOS": map[string]string{"value": value}}
	payload := map[string]any{
		"deployment_configs": map[string]any{
			"production": map[string]any{"env_vars": envVar},
			"preview":    map[string]any{"env_vars": envVar},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payload marshal error: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/pages/projects/%s", c.baseURL, c.accountID, c.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request build error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pages api error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pages api status %d", resp.StatusCode)
	}
	return nil
}
