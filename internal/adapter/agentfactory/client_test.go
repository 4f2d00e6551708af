package agentfactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, basePath+"/agent", r.URL.Path)
		assert.Equal(t, "bd_1", r.Header.Get("X-Business-Domain"))
		w.Write([]byte(`{"id":"agent-1"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).CreateAgent(context.Background(), map[string]any{"name": "a"}, "t", "bd_1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.ID)
	assert.Equal(t, defaultVersion, got.Version)
}

func TestCreateAgent_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).CreateAgent(context.Background(), map[string]any{}, "t", "")
	require.ErrorIs(t, err, domain.ErrServiceRejected)
}

func TestGetAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, basePath+"/agent/agent-1", r.URL.Path)
		w.Write([]byte(`{"id":"agent-1","version":"v2"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).GetAgent(context.Background(), "agent-1", "t", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", got["version"])
}
