package workers

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// MonitoringWorker periodically samples the process and the participant
// registry into Prometheus gauges.
type MonitoringWorker struct {
	log          *slog.Logger
	participants contract.ParticipantLister
	interval     time.Duration
}

func NewMonitoringWorker(
	log *slog.Logger,
	participants contract.ParticipantLister,
	interval time.Duration,
) *MonitoringWorker {
	return &MonitoringWorker{log: log, participants: participants, interval: interval}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping monitoring worker")
			return nil
		case <-ticker.C:
			w.Sample(ctx)
		}
	}
}

// Sample updates every gauge once. A failing source leaves its gauge at the
// previous value.
func (w *MonitoringWorker) Sample(ctx context.Context) {
	if participants, err := w.participants.List(ctx); err != nil {
		w.log.Error("Error while counting participants", "err", err)
	} else {
		observability.ActiveParticipants.Set(float64(len(participants)))
	}

	stats, err := observability.SelfStats()
	if err != nil {
		w.log.Debug("Error while retrieving process stats", "err", err)
		return
	}
	observability.ProcessCPUPercent.Set(stats.CpuPercent)
	observability.ProcessRSSBytes.Set(float64(stats.RamBytes))
}
