package live

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = user.User{Id: 7, Username: "alice"}

func startServer(t *testing.T, ps *pubsub.PubSub, keepAlive time.Duration) *httptest.Server {
	handler := NewLiveHandler(ps, keepAlive)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") == "" {
			handler.Stream(w, r)
			return
		}
		handler.Stream(w, r.WithContext(user.WithUser(r.Context(), testUser)))
	}))
	t.Cleanup(server.Close)
	return server
}

func open(t *testing.T, server *httptest.Server) (*bufio.Reader, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "alice")
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected\n", readLine(t, reader))
	assert.Equal(t, "\n", readLine(t, reader))
	return reader, cancel
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestHandler_Stream(t *testing.T) {
	t.Run("should write user messages as events", func(t *testing.T) {
		// given
		ps := pubsub.New(8)
		server := startServer(t, ps, time.Minute)
		reader, cancel := open(t, server)
		defer cancel()

		// when
		require.NoError(t, ps.Publish(pubsub.NewMessage(context.Background(), pubsub.UserTopic(testUser.Id),
			pubsub.TypeBudgetThresholdReached, pubsub.BudgetThresholdReached{Category: "Food", Month: "2025-03"})))

		// then
		assert.Equal(t, "event: budget.threshold_reached\n", readLine(t, reader))
		data := readLine(t, reader)
		assert.True(t, strings.HasPrefix(data, "data: {"))
		assert.Contains(t, data, `"category":"Food"`)
		assert.Equal(t, "\n", readLine(t, reader))
	})

	t.Run("should skip other users", func(t *testing.T) {
		ps := pubsub.New(8)
		server := startServer(t, ps, time.Minute)
		reader, cancel := open(t, server)
		defer cancel()

		require.NoError(t, ps.Publish(pubsub.NewMessage(context.Background(), pubsub.UserTopic(99), "other", "x")))
		require.NoError(t, ps.Publish(pubsub.NewMessage(context.Background(), pubsub.UserTopic(testUser.Id), "mine", "y")))

		assert.Equal(t, "event: mine\n", readLine(t, reader))
		assert.Equal(t, "data: \"y\"\n", readLine(t, reader))
	})

	t.Run("should send keep-alive comments", func(t *testing.T) {
		ps := pubsub.New(8)
		server := startServer(t, ps, 20*time.Millisecond)
		reader, cancel := open(t, server)
		defer cancel()

		assert.Equal(t, ": keep-alive\n", readLine(t, reader))
	})

	t.Run("should unsubscribe when the client disconnects", func(t *testing.T) {
		ps := pubsub.New(8)
		server := startServer(t, ps, time.Minute)
		_, cancel := open(t, server)
		require.Equal(t, 1, ps.Subscribers(pubsub.UserTopic(testUser.Id)))

		cancel()

		assert.Eventually(t, func() bool {
			return ps.Subscribers(pubsub.UserTopic(testUser.Id)) == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("should reject anonymous clients", func(t *testing.T) {
		ps := pubsub.New(8)
		server := startServer(t, ps, time.Minute)

		resp, err := server.Client().Get(server.URL)

		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
