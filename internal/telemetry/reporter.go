package telemetry

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Poller returns a snapshot of measurements for one subsystem.
type Poller func() map[string]any

// Reporter periodically samples registered pollers and logs one structured line per poller.
type Reporter struct {
	interval time.Duration

	mu      sync.RWMutex
	pollers map[string]Poller
}

func NewReporter(interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reporter{
		interval: interval,
		pollers:  make(map[string]Poller),
	}
}

// Register adds or replaces the poller under name.
func (r *Reporter) Register(name string, poller Poller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollers[name] = poller
}

func (r *Reporter) Serve(ctx context.Context) error {
	log.Debugf("telemetry reporter started, interval %s", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Report()
		}
	}
}

func (r *Reporter) String() string {
	return "telemetry"
}

// Report samples every poller once. A panicking poller is logged and skipped.
func (r *Reporter) Report() map[string]map[string]any {
	r.mu.RLock()
	names := make([]string, 0, len(r.pollers))
	for name := range r.pollers {
		names = append(names, name)
	}
	pollers := make(map[string]Poller, len(r.pollers))
	for name, p := range r.pollers {
		pollers[name] = p
	}
	r.mu.RUnlock()
	sort.Strings(names)

	snapshot := make(map[string]map[string]any, len(names))
	for _, name := range names {
		measurements, ok := poll(name, pollers[name])
		if !ok {
			continue
		}
		snapshot[name] = measurements
		log.WithField("poller", name).WithFields(measurements).Info("telemetry")
	}
	return snapshot
}

func poll(name string, p Poller) (measurements map[string]any, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("telemetry poller %s panicked: %v", name, rec)
			ok = false
		}
	}()
	return p(), true
}

// RuntimePoller reports goroutine and heap usage of the process.
func RuntimePoller() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"goroutines":  runtime.NumGoroutine(),
		"heap_alloc":  m.HeapAlloc,
		"heap_inuse":  m.HeapInuse,
		"num_gc":      m.NumGC,
		"total_alloc": m.TotalAlloc,
	}
}
