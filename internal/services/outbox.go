// Package services – post-commit side effects
//
// Claims and inspections stage secondary effects (emails, notification rows,
// image moves) while their transaction is open and run them only after it
// commits. Each task is independently fire-and-forget: a failure is logged
// with the task name and swallowed, never propagated to the caller of the
// primary operation, and never rolls back the committed entity.
package services

import "github.com/rs/zerolog"

// afterCommit runs one staged side-effect task, catching and logging any
// failure. Tasks must be independent: a failed one does not stop the rest.
func afterCommit(lg zerolog.Logger, task string, fn func() error) {
	if err := fn(); err != nil {
		lg.Error().Err(err).Str("task", task).Msg("post-commit side effect failed")
	}
}
