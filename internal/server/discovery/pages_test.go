package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesClient_PropagateStoreList(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewPagesClient("tok", "acc1", "imghost")
	c.baseURL = srv.URL

	err := c.PropagateStoreList(context.Background(), []string{"images-001", "images-002"})
	require.NoError(t, err)

	assert.Equal(t, "/accounts/acc1/pages/projects/imghost", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)

	configs := gotBody["deployment_configs"].(map[string]any)
	prod := configs["production"].(map[string]any)["env_vars"].(map[string]any)
	repos := prod["REPOS"].(map[string]any)
	assert.Equal(t, "images-001,images-002", repos["value"])
}

func TestPagesClient_Unconfigured(t *testing.T) {
	c := NewPagesClient("", "", "")
	assert.False(t, c.Configured())

	// No credentials means a silent no-op, not an error.
	err := c.PropagateStoreList(context.Background(), []string{"images-001"})
	assert.NoError(t, err)
}

func TestPagesClient_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewPagesClient("tok", "acc1", "imghost")
	c.baseURL = srv.URL

	err := c.PropagateStoreList(context.Background(), []string{"images-001"})
	assert.ErrorContains(t, err, "status 403")
}
