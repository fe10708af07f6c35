package executor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/record"
)

type undoStep struct {
	desc string
	fn   func() error
}

// undoLog accumulates compensating actions for the steps of one statement
// and replays them newest first when a later step fails.
type undoLog struct {
	stmtID string
	steps  []undoStep
}

func (u *undoLog) push(desc string, fn func() error) {
	u.steps = append(u.steps, undoStep{desc: desc, fn: fn})
}

// insert adds row to rel through the executor's insert hook and records the
// matching delete.
func (u *undoLog) insert(e *Executor, rel *heap.Table, row record.Row) error {
	h, err := e.insertRowFn(rel, row)
	if err != nil {
		return err
	}
	u.push(fmt.Sprintf("delete %s%s", rel.Name, h), func() error {
		return rel.Delete(h)
	})
	return nil
}

// rollback runs every step in reverse and joins their failures onto cause.
func (u *undoLog) rollback(cause error) error {
	errs := []error{cause}
	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if err := s.fn(); err != nil {
			slog.Warn("executor: undo step failed", "stmt_id", u.stmtID, "step", s.desc, "err", err)
			errs = append(errs, fmt.Errorf("undo %s: %w", s.desc, err))
		}
	}
	u.steps = nil
	return errors.Join(errs...)
}
