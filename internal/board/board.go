// Package board keeps the in-memory task list behind the board view: it is
// rebuilt on load, patched by "tasks changed" events and filtered locally.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

type State int

const (
	Unmounted State = iota
	Loading
	Loaded
	LoadError
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadError:
		return "load-error"
	default:
		return "unmounted"
	}
}

// ErrStaleLoad is returned by Load when a newer Load started before it
// finished; its result was discarded.
var ErrStaleLoad = errors.New("board: load superseded")

// TaskSource is the slice of the task service the board needs.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Layout int

const (
	// Columns groups tasks by status.
	Columns Layout = iota
	// Chronological is a single list sorted by date and time, for narrow
	// terminals.
	Chronological
)

// LayoutFor picks the grouped layout when the viewport is at least wide.
func LayoutFor(width, wide int) Layout {
	if width < wide {
		return Chronological
	}
	return Columns
}

// Column is one status group of the filtered view.
type Column struct {
	Status models.Status
	Tasks  []models.Task
}

func (c Column) Count() int {
	return len(c.Tasks)
}

type Board struct {
	mu      sync.Mutex
	source  TaskSource
	logger  *zap.Logger
	state   State
	loadErr error
	tasks   []models.Task
	filter  string
	gen     uint64
}

func New(source TaskSource, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{source: source, logger: logger}
}

// Load fetches the full list. Only the most recent call may apply its
// result; an older one returns ErrStaleLoad and leaves the board untouched.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.state = Loading
	b.mu.Unlock()

	tasks, err := b.source.ListTasks(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		b.logger.Debug("discarding superseded board load", zap.Uint64("generation", gen))
		return ErrStaleLoad
	}
	if err != nil {
		b.state = LoadError
		b.loadErr = err
		b.tasks = nil
		return fmt.Errorf("load tasks: %w", err)
	}

	b.state = Loaded
	b.loadErr = nil
	b.tasks = tasks
	b.logger.Debug("board loaded", zap.Int("tasks", len(tasks)))
	return nil
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err is the error of the last failed load.
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

// SetFilter sets the title substring filter. It never fetches.
func (b *Board) SetFilter(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = strings.ToLower(strings.TrimSpace(query))
}

func (b *Board) Filter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// Visible returns the cached tasks whose rendered title contains the filter,
// in server order.
func (b *Board) Visible() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visibleLocked()
}

func (b *Board) visibleLocked() []models.Task {
	out := make([]models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if b.filter == "" || strings.Contains(strings.ToLower(t.DisplayTitle()), b.filter) {
			out = append(out, t)
		}
	}
	return out
}

// Columns groups the visible tasks by status, one column per canonical
// status even when empty.
func (b *Board) Columns() []Column {
	visible := b.Visible()

	cols := make([]Column, len(models.Statuses))
	index := make(map[models.Status]int, len(models.Statuses))
	for i, s := range models.Statuses {
		cols[i] = Column{Status: s}
		index[s] = i
	}
	for _, t := range visible {
		i, ok := index[t.Status]
		if !ok {
			i = index[models.StatusPending]
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

// Chronological returns the visible tasks ordered by due date then time.
// Tasks without a date sort last.
func (b *Board) Chronological() []models.Task {
	visible := b.Visible()
	sort.SliceStable(visible, func(i, j int) bool {
		a, c := visible[i], visible[j]
		if (a.Date == "") != (c.Date == "") {
			return c.Date == ""
		}
		if a.Date != c.Date {
			return a.Date < c.Date
		}
		return a.Time < c.Time
	})
	return visible
}

// Task returns the cached task with id.
func (b *Board) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// Delete removes the task on the server and then from the cache. A failure
// leaves both the cache and the state as they were.
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.source.DeleteTask(ctx, id); err != nil {
		b.logger.Debug("delete failed", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	b.Apply(events.Deleted(id))
	return nil
}

// Apply patches the cache with a change. Changes arriving while the board is
// not loaded are dropped; the next load fetches them anyway.
func (b *Board) Apply(change events.TaskChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Loaded {
		return
	}

	switch change.Kind {
	case events.Delete:
		for i, t := range b.tasks {
			if t.ID == change.ID {
				b.tasks = append(b.tasks[:i:i], b.tasks[i+1:]...)
				return
			}
		}
	case events.Upsert:
		if change.Task.ID == "" {
			return
		}
		for i, t := range b.tasks {
			if t.ID == change.Task.ID {
				b.tasks[i] = change.Task
				return
			}
		}
		b.tasks = append(b.tasks, change.Task)
	}
}

// Mount subscribes the board to bus and returns the unsubscribe func.
func (b *Board) Mount(bus *events.Bus) func() {
	return bus.Subscribe(b.Apply)
}

// Reset returns the board to Unmounted and drops the cache. In-flight loads
// become stale.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.state = Unmounted
	b.tasks = nil
	b.loadErr = nil
}
