package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	client := New(config.HttpClient{Timeout: time.Second, MaxIdleConns: 2, MaxIdleConnsPerHost: 2})

	resp, err := client.HTTP().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, time.Second, client.HTTP().Timeout)
}

func TestClient_ServeStopsOnCancel(t *testing.T) {
	client := New(config.HttpClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Serve(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "httpclient", client.String())
}
