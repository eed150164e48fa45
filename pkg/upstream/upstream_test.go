package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/thing", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	u := New("thing", srv.URL+"/", time.Second, BreakerSettings{})
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, u.GetJSON(context.Background(), "/v1/thing", map[string]string{"id": "7"}, &out))
	assert.Equal(t, 42, out.Value)
}

func TestGetJSON_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	u := New("flaky", srv.URL, time.Second, BreakerSettings{MaxFailures: 2, OpenFor: time.Minute})
	var out map[string]any
	for i := 0; i < 2; i++ {
		assert.Error(t, u.GetJSON(context.Background(), "/", nil, &out))
	}
	assert.Equal(t, gobreaker.StateOpen, u.State())

	err := u.GetJSON(context.Background(), "/", nil, &out)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSON_NotConfigured(t *testing.T) {
	u := New("none", "", time.Second, BreakerSettings{})
	var out map[string]any
	assert.ErrorIs(t, u.GetJSON(context.Background(), "/", nil, &out), ErrNotConfigured)
}
