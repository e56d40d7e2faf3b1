package endpoint

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_ServesAndShutsDown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	e := New(config.Server{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := e.Addr(addrCtx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "hello", string(body))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint did not stop")
	}
}

func TestEndpoint_ListenFailureIsReturned(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	e := New(config.Server{Addr: occupied.Addr().String()}, http.NotFoundHandler())

	err = e.Serve(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
