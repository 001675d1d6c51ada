// This file implements DeployService: fan-out of deploy hook triggers so
// the static frontend rebuilds after content changes.
package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
)

// TriggerResult records the outcome of one store's deploy trigger.
type TriggerResult struct {
	StoreID   int64  `json:"store_id,omitempty"`
	StoreName string `json:"store_name,omitempty"`
	URL       string `json:"url,omitempty"`
	Status    int    `json:"status,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// DeployService POSTs to deploy hooks after uploads and deletions.
type DeployService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	client      *http.Client
	globalHook  string
}

func NewDeployService(m repomanager.RepositoryManager, logger logging.Logger, globalHook string) *DeployService {
	return &DeployService{
		repomanager: m,
		logger:      logger,
		client:      &http.Client{Timeout: 30 * time.Second},
		globalHook:  globalHook,
	}
}

// Trigger fires each store's deploy hook concurrently, falling back to the
// global hook for stores without one, and reports a result per store. A
// store with no hook at all is recorded as a non-fatal failure. The
// aggregate succeeds when at least one trigger did.
func (s *DeployService) Trigger(ctx context.Context) (bool, []TriggerResult, error) {
	all, err := s.repomanager.Stores().List(ctx)
	if err != nil {
		return false, nil, err
	}

	// With no store rows yet the global hook is still worth firing.
	if len(all) == 0 {
		if strings.TrimSpace(s.globalHook) == "" {
			return false, nil, nil
		}
		r := s.post(ctx, s.globalHook)
		return r.Success, []TriggerResult{r}, nil
	}

	results := make([]TriggerResult, len(all))
	var wg sync.WaitGroup
	for i, st := range all {
		url := strings.TrimSpace(st.DeployHookURL)
		if url == "" {
			url = strings.TrimSpace(s.globalHook)
		}
		if url == "" {
			results[i] = TriggerResult{StoreID: st.ID, StoreName: st.Name, Error: "no hook configured"}
			continue
		}
		wg.Add(1)
		go func(i int, id int64, name, url string) {
			defer wg.Done()
			r := s.post(ctx, url)
			r.StoreID = id
			r.StoreName = name
			results[i] = r
		}(i, st.ID, st.Name, url)
	}
	wg.Wait()

	any := false
	for _, r := range results {
		if r.Success {
			any = true
		} else {
			s.logger.Warn(ctx, "deploy hook failed",
				"store", r.StoreName, "url", r.URL, "status", r.Status, "error", r.Error)
		}
	}
	return any, results, nil
}

func (s *DeployService) post(ctx context.Context, url string) TriggerResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return TriggerResult{URL: url, Error: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return TriggerResult{URL: url, Error: err.Error()}
	}
	defer resp.Body.Close()

	return TriggerResult{
		URL:     url,
		Status:  resp.StatusCode,
		Success: resp.StatusCode >= 200 && resp.StatusCode <= 299,
	}
}
