package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// departureAttempts bounds the retries of a departure notice write once the
// participant has been removed.
const departureAttempts = 3

// departureTimeout bounds the notice writes of one departure. They outlive
// the sweep context: a committed eviction always gets its notice attempts.
const departureTimeout = 5 * time.Second

// EvictionWorker periodically removes participants that stopped sending
// heartbeats and announces each departure exactly once.
type EvictionWorker struct {
	log      *slog.Logger
	presence contract.Evictor
	notices  contract.SystemRecorder
	clock    contract.Clock
	interval time.Duration
	timeout  time.Duration
}

// SweepReport summarizes one tick.
type SweepReport struct {
	Candidates int
	Evicted    []string
	// Renewed counts candidates whose conditional delete found them changed.
	Renewed int
	Failed  int
}

func NewEvictionWorker(
	log *slog.Logger,
	presence contract.Evictor,
	notices contract.SystemRecorder,
	clock contract.Clock,
	interval, timeout time.Duration,
) *EvictionWorker {
	return &EvictionWorker{
		log:      log,
		presence: presence,
		notices:  notices,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
	}
}

func (w *EvictionWorker) Run(ctx context.Context) error {
	w.log.Info("Starting eviction worker", "interval", w.interval, "timeout", w.timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping eviction worker")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick bounds a sweep by the interval: a sweep still running when the next
// one is due is abandoned, and its leftovers are picked up again.
func (w *EvictionWorker) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	start := time.Now()
	report := w.Sweep(tickCtx)
	observability.SweepDuration.Observe(time.Since(start).Seconds())

	if report.Candidates > 0 {
		w.log.Info("Sweep done",
			"candidates", report.Candidates,
			"evicted", len(report.Evicted),
			"renewed", report.Renewed,
			"failed", report.Failed)
	}
}

// Sweep evicts every participant last seen before now - timeout. Each
// candidate is removed with a delete conditioned on the LastSeen value just
// read, and only a delete that actually removed it produces a departure
// notice. A failure on one candidate never stops the others.
func (w *EvictionWorker) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	// Stored LastSeen values have millisecond precision.
	cutoff := w.clock.Now().Add(-w.timeout).Truncate(time.Millisecond)

	stale, err := w.presence.Stale(ctx, cutoff)
	if err != nil {
		observability.EvictionFailures.Inc()
		w.log.Error("Failed to list stale participants", "err", err)
		return report
	}
	report.Candidates = len(stale)

	for _, participant := range stale {
		if ctx.Err() != nil {
			w.log.Warn("Sweep abandoned, remaining candidates left for next tick",
				"remaining", report.Candidates-len(report.Evicted)-report.Renewed-report.Failed)
			break
		}

		evicted, err := w.presence.Evict(ctx, participant)
		if err != nil {
			report.Failed++
			observability.EvictionFailures.Inc()
			w.log.Error("Failed to evict participant", "name", participant.Name, "err", err)
			continue
		}
		if !evicted {
			report.Renewed++
			w.log.Debug("Participant renewed before eviction", "name", participant.Name)
			continue
		}

		observability.ParticipantsEvicted.Inc()
		if err := w.announceDeparture(ctx, participant.Name); err != nil {
			report.Failed++
			observability.EvictionFailures.Inc()
			w.log.Error("Participant evicted without departure notice", "name", participant.Name, "err", err)
			continue
		}
		report.Evicted = append(report.Evicted, participant.Name)
	}
	return report
}

func (w *EvictionWorker) announceDeparture(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), departureTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= departureAttempts; attempt++ {
		if _, err = w.notices.RecordSystemEvent(ctx, name, domain.LeftText); err == nil {
			return nil
		}
		w.log.Warn("Departure notice failed", "name", name, "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
