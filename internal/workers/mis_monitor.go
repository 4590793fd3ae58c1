package workers

import (
	"context"
	"time"

	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/services"
)

// MISMonitor probes every enabled external database on a schedule and
// publishes the result as plp_mis_connection_up.
type MISMonitor struct {
	svc     *services.MISConnectionService
	metrics *metrics.MetricsRegistry
	timeout time.Duration
}

func NewMISMonitor(svc *services.MISConnectionService, reg *metrics.MetricsRegistry, timeout time.Duration) *MISMonitor {
	return &MISMonitor{svc: svc, metrics: reg, timeout: timeout}
}

// Start runs a check immediately, then once per interval until ctx is done.
func (m *MISMonitor) Start(ctx context.Context, interval time.Duration) {
	logging.Info("MIS monitor starting", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.CheckConnections(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info("MIS monitor shutting down")
			return
		case <-ticker.C:
			m.CheckConnections(ctx)
		}
	}
}

// CheckConnections probes each enabled connection once and returns how many
// were reachable. Disabled connections drop out of the gauge.
func (m *MISMonitor) CheckConnections(ctx context.Context) int {
	conns, err := m.svc.List(ctx)
	if err != nil {
		logging.Error("MIS monitor failed to list connections", "error", err.Error())
		return 0
	}

	up := 0
	for _, c := range conns {
		if !c.Enabled {
			m.metrics.ConnectionUp.DeleteLabelValues(c.Name)
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := m.svc.Test(probeCtx, c.ID)
		cancel()

		if err != nil {
			logging.Warn("MIS connection unreachable", "connection", c.Name, "error", err.Error())
			m.metrics.ConnectionUp.WithLabelValues(c.Name).Set(0)
			continue
		}
		m.metrics.ConnectionUp.WithLabelValues(c.Name).Set(1)
		up++
	}

	logging.Debug("MIS monitor check complete", "connections", len(conns), "up", up)
	return up
}
