package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// sagaStep is one unit of a multi-step provisioning workflow with an
// attached compensating action.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSaga executes steps in order. When a step fails, every previously
// completed step is compensated in reverse order before the failure is
// returned. A failure of the very first step returns the original error
// untouched: nothing happened yet, so there is nothing to dress up.
// Compensation failures are collected and surfaced alongside the original
// error so an operator can intervene manually.
func runSaga(ctx context.Context, steps []sagaStep) error {
	for i, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}
		if i == 0 {
			return err
		}

		var cleanup error
		for j := i - 1; j >= 0; j-- {
			if steps[j].undo == nil {
				continue
			}
			if undoErr := steps[j].undo(ctx); undoErr != nil {
				cleanup = errors.Join(cleanup, fmt.Errorf("undoing %s: %w", steps[j].name, undoErr))
			}
		}

		return &domain.ProvisioningError{Step: step.name, Err: err, Cleanup: cleanup}
	}
	return nil
}
