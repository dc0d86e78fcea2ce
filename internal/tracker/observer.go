package tracker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/caseydemo/workout-app/internal/optimistic"
)

const (
	outcomeConfirmed  = "confirmed"
	outcomeRolledBack = "rolled_back"
)

// observer records metrics for every settled remote call and logs rollbacks.
type observer struct {
	logger *slog.Logger
}

func (o observer) Settled(category string, op optimistic.Op, err error, elapsed time.Duration) {
	outcome := outcomeConfirmed
	if err != nil {
		outcome = outcomeRolledBack
	}
	operationsCounter.WithLabelValues(category, string(op), outcome).Inc()
	operationDuration.WithLabelValues(category, string(op)).Observe(elapsed.Seconds())

	if err == nil {
		o.logger.Debug("optimistic operation confirmed", "category", category, "op", op, "elapsed", elapsed)
		return
	}

	attrs := []any{"category", category, "op", op, "elapsed", elapsed, "error", err}
	var remoteErr *optimistic.RemoteOperationError
	if errors.As(err, &remoteErr) && remoteErr.ID != "" {
		attrs = append(attrs, "id", remoteErr.ID)
	}
	if op == optimistic.OpLoad {
		o.logger.Error("initial load failed", attrs...)
		return
	}
	o.logger.Warn("optimistic change rolled back", attrs...)
}
