package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Pinger is the part of the pool the health loop depends on.
type Pinger interface {
	Ping(ctx context.Context) error
	Reset()
	Stat() *pgxpool.Stat
}

// PoolService supervises the connection pool. It pings on an interval and, after
// maxFailed consecutive failures, resets the pool and exits with an error so the
// supervisor restarts it.
type PoolService struct {
	pool      Pinger
	interval  time.Duration
	maxFailed int

	failedPings atomic.Int64
	resets      atomic.Int64
}

func NewPoolService(pool Pinger, interval time.Duration, maxFailed int) *PoolService {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if maxFailed <= 0 {
		maxFailed = 1
	}
	return &PoolService{pool: pool, interval: interval, maxFailed: maxFailed}
}

func (s *PoolService) Serve(ctx context.Context) error {
	log.Debug("database pool service started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.interval)
			err := s.pool.Ping(pingCtx)
			cancel()
			if err == nil {
				consecutive = 0
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consecutive++
			s.failedPings.Add(1)
			log.Warnf("database ping failed (%d/%d): %v", consecutive, s.maxFailed, err)
			if consecutive >= s.maxFailed {
				s.pool.Reset()
				s.resets.Add(1)
				return fmt.Errorf("database unreachable after %d pings: %w", consecutive, err)
			}
		}
	}
}

func (s *PoolService) String() string {
	return "database"
}

// Stats reports pool usage for telemetry.
func (s *PoolService) Stats() map[string]any {
	stat := s.pool.Stat()
	stats := map[string]any{
		"failed_pings": s.failedPings.Load(),
		"resets":       s.resets.Load(),
	}
	if stat != nil {
		stats["total_conns"] = stat.TotalConns()
		stats["idle_conns"] = stat.IdleConns()
		stats["acquired_conns"] = stat.AcquiredConns()
		stats["max_conns"] = stat.MaxConns()
		stats["acquire_count"] = stat.AcquireCount()
	}
	return stats
}
