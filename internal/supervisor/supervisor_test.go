package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
)

func testConfig() config.Supervisor {
	return config.Supervisor{
		FailureThreshold: 10,
		FailureDecay:     1,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	}
}

// flakyService fails the first `failures` runs, then blocks until stopped.
type flakyService struct {
	failures int32
	starts   atomic.Int32
	started  chan struct{}
}

func (s *flakyService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failures {
		return errors.New("crashed")
	}
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

type steadyService struct {
	starts atomic.Int32
}

func (s *steadyService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

type oneShotService struct {
	starts atomic.Int32
}

func (s *oneShotService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	return suture.ErrDoNotRestart
}

func TestTree_RestartsFailedChildOnly(t *testing.T) {
	tree := New(testConfig())
	steady := &steadyService{}
	flaky := &flakyService{failures: 2, started: make(chan struct{})}
	tree.Add("steady", steady)
	tree.Add("flaky", flaky)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-flaky.started:
	case <-time.After(5 * time.Second):
		t.Fatal("flaky service was not restarted")
	}
	cancel()
	<-errCh

	assert.Equal(t, int32(3), flaky.starts.Load())
	assert.Equal(t, int32(1), steady.starts.Load())
}

func TestTree_DoNotRestart(t *testing.T) {
	tree := New(testConfig())
	oneShot := &oneShotService{}
	steady := &steadyService{}
	tree.Add("one-shot", oneShot)
	tree.Add("steady", steady)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-errCh

	assert.Equal(t, int32(1), oneShot.starts.Load())
	assert.Equal(t, int32(1), steady.starts.Load())
}

func TestTree_ChildrenInBootOrder(t *testing.T) {
	tree := New(testConfig())
	for _, name := range []string{"telemetry", "database", "pubsub", "httpclient", "endpoint"} {
		tree.Add(name, &steadyService{})
	}

	require.Equal(t, []string{"telemetry", "database", "pubsub", "httpclient", "endpoint"}, tree.Children())
	assert.Equal(t, "database", namedService{name: "database"}.String())
}
