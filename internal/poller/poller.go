// Package poller keeps Prometheus group gauges fresh by periodically
// fetching the daemon status in the background.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/michaelfortunato/pueue-webui/internal/backend"
	"github.com/michaelfortunato/pueue-webui/internal/cache"
	"github.com/michaelfortunato/pueue-webui/internal/stats"
	"github.com/michaelfortunato/pueue-webui/pkg/telemetry"
)

// pollTimeout bounds one poll cycle; the request path imposes no timeout of
// its own, so the poller must.
const pollTimeout = 10 * time.Second

// Poller fetches status snapshots through the shared cache, so a UI poll
// and a metrics poll within the same TTL window cost one daemon call.
type Poller struct {
	backend backend.Backend
	cache   *cache.StatusCache
	logger  *slog.Logger

	mu         sync.Mutex
	lastDigest string
}

func New(b backend.Backend, c *cache.StatusCache, logger *slog.Logger) *Poller {
	return &Poller{backend: b, cache: c, logger: logger}
}

// Start schedules polls per the cron expression (e.g. "@every 5s") and
// returns a stop function that waits for a running poll to finish.
func (p *Poller) Start(schedule string) (stop func(), err error) {
	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddFunc(schedule, p.Poll); err != nil {
		return nil, fmt.Errorf("poll schedule %q: %w", schedule, err)
	}
	runner.Start()
	p.logger.Info("status poller started", slog.String("schedule", schedule))
	return func() { <-runner.Stop().Done() }, nil
}

// Poll runs one cycle: fetch (or reuse) a snapshot, export the per-group
// gauges, count digest changes.
func (p *Poller) Poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	entry, ok := p.cache.Get()
	if !ok {
		snapshot, err := p.backend.Status(ctx)
		if err != nil {
			p.logger.Warn("status poll failed", slog.String("error", err.Error()))
			return
		}
		derived, digest := stats.Compute(snapshot)
		entry = p.cache.Put(snapshot, derived, digest)
	}

	for group, groupStats := range entry.Stats.Groups {
		telemetry.GroupTasks.WithLabelValues(group, "queued").Set(float64(groupStats.Queued))
		telemetry.GroupTasks.WithLabelValues(group, "running").Set(float64(groupStats.Running))
		telemetry.GroupTasks.WithLabelValues(group, "paused").Set(float64(groupStats.Paused))
		telemetry.GroupTasks.WithLabelValues(group, "done").Set(float64(groupStats.Done))
		telemetry.GroupTasks.WithLabelValues(group, "failed").Set(float64(groupStats.Failed))
	}

	p.mu.Lock()
	if p.lastDigest != "" && p.lastDigest != entry.Digest {
		telemetry.DigestChanges.Inc()
	}
	p.lastDigest = entry.Digest
	p.mu.Unlock()
}
