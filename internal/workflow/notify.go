package workflow

import (
	"context"
	"log/slog"

	"podwatch/internal/logging"
)

// publish exports metrics and sends the run notification. Neither outcome
// changes the run result.
func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, s *Summary) {
	if path := o.cfg.Metrics.TextfilePath; path != "" {
		if err := WriteMetrics(path, s); err != nil {
			logging.WarnWithContext(logger, "metrics export failed", "metrics_export",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path is writable"),
				logging.String(logging.FieldImpact, "node_exporter keeps the previous run's values"),
			)
		}
	}

	// Cancelled runs still report what they finished.
	notifyCtx := context.WithoutCancel(ctx)
	if err := o.deps.Notifier.NotifyRunCompleted(notifyCtx, s.Report()); err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run summary not delivered"),
		)
	}
}
