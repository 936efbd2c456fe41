package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/corefollow/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one record per event to logger.
// Step and search records are at debug level; rollbacks warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{"operation", e.Operation, "step", e.Step, "time", e.Elapsed}
			if e.Result != nil {
				attrs = append(attrs, "power", e.Result.Power, "ppm", e.Result.Boron, "asi", e.Result.ASI)
			}
			logger.DebugContext(ctx, "step_end", attrs...)
		},
		OnRollback: func(ctx context.Context, e *domain.StepEvent) {
			logger.WarnContext(ctx, "step_rollback",
				"operation", e.Operation,
				"step", e.Step,
				"time", e.Elapsed,
				"error", e.Err,
			)
		},
		OnSearch: func(ctx context.Context, e *domain.SearchEvent) {
			logger.DebugContext(ctx, "search",
				"mode", e.Mode.String(),
				"iterations", e.Iterations,
				"residual", e.Residual,
				"converged", e.Converged,
			)
		},
		OnMargin: func(ctx context.Context, e *domain.MarginEvent) {
			if e.Result == nil {
				return
			}
			logger.InfoContext(ctx, "shutdown_margin",
				"margin", e.Result.Margin,
				"stuck_rod", e.Result.StuckRod,
				"sufficient", e.Result.Sufficient(),
			)
		},
	}
}
