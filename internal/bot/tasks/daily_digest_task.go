package tasks

import (
	"context"
	"fmt"
	"time"
)

func newDailyDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_digest")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting daily digest...")
		startTime := time.Now()

		err := deps.Digest.RunNow(ctx)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Daily digest finished with errors", "error", err, "duration", duration)
			return fmt.Errorf("daily digest: %w", err)
		}

		log.InfoContext(ctx, "Daily digest completed", "duration", duration)
		return nil
	}
}
