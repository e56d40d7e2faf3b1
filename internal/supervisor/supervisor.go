package supervisor

import (
	"context"
	"sync"

	"github.com/fundwise/fundwise/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

const rootName = "fundwise"

// Tree is the application process tree. Children are restarted one-for-one:
// a failing child is restarted alone while its siblings keep running.
type Tree struct {
	root *suture.Supervisor

	mu       sync.Mutex
	children []string
}

func New(cfg config.Supervisor) *Tree {
	spec := suture.Spec{
		EventHook:        logEvent,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	return &Tree{root: suture.New(rootName, spec)}
}

// Add registers a child under name. Children start in the order they are added.
func (t *Tree) Add(name string, svc suture.Service) {
	t.mu.Lock()
	t.children = append(t.children, name)
	t.mu.Unlock()
	t.root.Add(namedService{name: name, svc: svc})
	log.Debugf("supervisor: registered child %s", name)
}

// Children returns child names in boot order.
func (t *Tree) Children() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.children...)
}

// Serve runs the tree until ctx is done or a child terminates the tree.
func (t *Tree) Serve(ctx context.Context) error {
	log.Infof("supervisor: starting %d children", len(t.Children()))
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServices lists children that did not stop within the shutdown timeout.
func (t *Tree) UnstoppedServices() []string {
	report, err := t.root.UnstoppedServiceReport()
	if err != nil {
		log.Warnf("supervisor: unable to build unstopped service report: %v", err)
		return nil
	}
	names := make([]string, 0, len(report))
	for _, unstopped := range report {
		names = append(names, unstopped.Name)
	}
	return names
}

type namedService struct {
	name string
	svc  suture.Service
}

func (n namedService) Serve(ctx context.Context) error {
	return n.svc.Serve(ctx)
}

func (n namedService) String() string {
	return n.name
}

func logEvent(e suture.Event) {
	entry := log.WithFields(e.Map())
	switch ev := e.(type) {
	case suture.EventServiceTerminate:
		if ev.Restarting {
			entry.Warnf("supervisor: %s terminated, restarting: %v", ev.ServiceName, ev.Err)
		} else {
			entry.Infof("supervisor: %s terminated: %v", ev.ServiceName, ev.Err)
		}
	case suture.EventServicePanic:
		entry.Errorf("supervisor: %s panicked: %s", ev.ServiceName, ev.PanicMsg)
	case suture.EventBackoff:
		entry.Warnf("supervisor: %s entering backoff", ev.SupervisorName)
	case suture.EventResume:
		entry.Infof("supervisor: %s resuming", ev.SupervisorName)
	case suture.EventStopTimeout:
		entry.Errorf("supervisor: %s did not stop in time", ev.ServiceName)
	default:
		entry.Info(e.String())
	}
}
