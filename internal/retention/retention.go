// Package retention expires threads that were cleared and never used
// again. A cleared thread keeps its metadata and pair index so the
// conversation can resume; when nobody resumes it within the configured
// age, the sweeper deletes the leftovers.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"pulsechat/pkg/config"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/store"
)

const defaultCron = "0 3 * * *"

// Start launches the sweep scheduler when retention is enabled. The
// returned cancel func stops it.
func Start(ctx context.Context, cfg config.Retention) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}
	logger.Info("retention_enabled", "cron", cronExpr, "min_age", cfg.MinAge.Duration().String(), "dry_run", cfg.DryRun)

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick and runs one sweep.
func runScheduler(ctx context.Context, cfg config.Retention, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		next, err := gronx.NextTickAfter(cronExpr, time.Now().UTC(), false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := RunOnce(cfg); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps immediately and returns how many threads were deleted.
// Exposed so tests and admin triggers can run a sweep on demand.
func RunOnce(cfg config.Retention) (int, error) {
	minAge := cfg.MinAge.Duration()
	if minAge <= 0 {
		minAge = 30 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-minAge).UnixNano()

	threads, err := store.ListThreads()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, t := range threads {
		if t.ClearedTS == 0 || t.ClearedTS > cutoff {
			continue
		}
		// a message after the clear revives the thread
		if t.LastMessageTS != 0 {
			continue
		}
		if cfg.DryRun {
			logger.Info("retention_would_delete", "thread", t.ID, "cleared_ts", t.ClearedTS)
			continue
		}
		if err := store.DeleteThread(t.ID); err != nil {
			logger.Error("retention_delete_failed", "thread", t.ID, "error", err)
			continue
		}
		deleted++
		if cfg.BatchSize > 0 && deleted >= cfg.BatchSize {
			break
		}
	}
	logger.Info("retention_run_complete", "deleted", deleted, "scanned", len(threads))
	return deleted, nil
}
