package tasks

import (
	"context"
	"fmt"
)

// newProcedureRemindersTask polls the reminder clock. It runs every poll interval, so
// it only logs at debug level.
func newProcedureRemindersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "procedure_reminders")

	return func(ctx context.Context) error {
		if err := deps.Reminders.Run(ctx); err != nil {
			log.WarnContext(ctx, "Some reminders could not be delivered", "error", err)
			return fmt.Errorf("procedure reminders: %w", err)
		}
		log.DebugContext(ctx, "Reminder poll completed")
		return nil
	}
}
