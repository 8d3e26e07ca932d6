package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/debounce"
)

// LiveEditor stages keystroke-level edits and commits each field through
// EditField once it has been quiet for the debounce delay.
type LiveEditor struct {
	engine   *Engine
	debounce *debounce.Debouncer
	onCommit func(rows []int, field catalog.Field, committed string, err error)
}

// NewLiveEditor returns an editor over e. onCommit, when set, is called after
// every commit with its outcome.
func NewLiveEditor(e *Engine, delay time.Duration, onCommit func([]int, catalog.Field, string, error)) *LiveEditor {
	return &LiveEditor{engine: e, debounce: debounce.New(delay), onCommit: onCommit}
}

// Stage replaces any staged value for the same rows and field and restarts
// the quiet period.
func (l *LiveEditor) Stage(rows []int, field catalog.Field, value string) {
	rows = slices.Clone(rows)
	key := fmt.Sprintf("%s:%v", field, rows)
	l.debounce.Trigger(key, func() {
		committed, err := l.engine.EditField(context.Background(), rows, field, value)
		if err != nil {
			l.engine.logger.Warn("staged edit rejected", zap.Stringer("field", field), zap.Error(err))
		}
		if l.onCommit != nil {
			l.onCommit(rows, field, committed, err)
		}
	})
}

// Flush commits every staged edit now.
func (l *LiveEditor) Flush() { l.debounce.Flush() }

// Pending reports how many edits are staged.
func (l *LiveEditor) Pending() int { return l.debounce.Pending() }

// Stop drops staged edits and waits for running commits.
func (l *LiveEditor) Stop() { l.debounce.Stop() }
