package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

type fakeSource struct {
	mu        sync.Mutex
	tasks     []models.Task
	listErr   error
	deleteErr error
	deleted   []string
	// gate, when set, blocks the next ListTasks until it is closed; entered
	// is closed once that call is blocked.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeSource) ListTasks(ctx context.Context) ([]models.Task, error) {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	snapshot := append([]models.Task(nil), f.tasks...)
	f.mu.Unlock()

	if gate != nil {
		close(f.entered)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return snapshot, nil
}

func (f *fakeSource) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "1", Title: "Buy milk", Date: "2024-05-02", Time: "09:00", Status: models.StatusPending},
		{ID: "2", Title: "Write report", Date: "2024-05-01", Time: "18:00", Status: models.StatusInProgress},
		{ID: "3", Title: "Call mum", Date: "2024-05-01", Time: "08:00", Status: models.StatusDone},
		{ID: "4", Detail: "milk for the cat", Status: models.StatusPending},
	}
}

func loaded(t *testing.T) (*Board, *fakeSource) {
	t.Helper()
	src := &fakeSource{tasks: sampleTasks()}
	b := New(src, nil)
	require.NoError(t, b.Load(context.Background()))
	require.Equal(t, Loaded, b.State())
	return b, src
}

func counts(cols []Column) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Count()
	}
	return out
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestLoadGroupsByStatus(t *testing.T) {
	b, _ := loaded(t)

	cols := b.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, models.StatusPending, cols[0].Status)
	assert.Equal(t, models.StatusInProgress, cols[1].Status)
	assert.Equal(t, models.StatusDone, cols[2].Status)
	assert.Equal(t, []int{2, 1, 1}, counts(cols))
}

func TestChronologicalOrder(t *testing.T) {
	b, _ := loaded(t)
	assert.Equal(t, []string{"3", "2", "1", "4"}, ids(b.Chronological()))
}

func TestFilterIsIdempotent(t *testing.T) {
	b, src := loaded(t)

	b.SetFilter("MILK")
	once := ids(b.Visible())
	b.SetFilter("MILK")
	b.SetFilter("MILK")
	twice := ids(b.Visible())

	assert.Equal(t, []string{"1", "4"}, once, "matches the rendered title, including the detail fallback")
	assert.Equal(t, once, twice)
	assert.Equal(t, []int{2, 0, 0}, counts(b.Columns()))
	assert.Len(t, src.tasks, 4)

	b.SetFilter("")
	assert.Len(t, b.Visible(), 4)
}

func TestDeleteRemovesFromEveryGrouping(t *testing.T) {
	b, src := loaded(t)

	require.NoError(t, b.Delete(context.Background(), "1"))

	assert.Equal(t, []string{"1"}, src.deleted)
	assert.Equal(t, []int{1, 1, 1}, counts(b.Columns()))
	assert.NotContains(t, ids(b.Chronological()), "1")
	_, ok := b.Task("1")
	assert.False(t, ok)
	assert.Equal(t, Loaded, b.State())
}

func TestFailedDeleteStaysLoaded(t *testing.T) {
	b, src := loaded(t)
	src.deleteErr = errors.New("HTTP 500")

	err := b.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, src.deleteErr)
	assert.Equal(t, Loaded, b.State())
	assert.Equal(t, []int{2, 1, 1}, counts(b.Columns()))
}

func TestFailedReloadMovesToLoadError(t *testing.T) {
	b, src := loaded(t)
	src.listErr = errors.New("offline")

	err := b.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, LoadError, b.State())
	assert.ErrorIs(t, b.Err(), src.listErr)
	assert.Empty(t, b.Visible())
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{
		tasks:   []models.Task{{ID: "old", Title: "old"}},
		gate:    gate,
		entered: make(chan struct{}),
	}
	b := New(src, nil)

	first := make(chan error, 1)
	go func() { first <- b.Load(context.Background()) }()

	select {
	case <-src.entered:
	case <-time.After(time.Second):
		t.Fatal("first load never reached the source")
	}

	src.mu.Lock()
	src.tasks = []models.Task{{ID: "new", Title: "new"}}
	src.mu.Unlock()

	require.NoError(t, b.Load(context.Background()))
	close(gate)

	assert.ErrorIs(t, <-first, ErrStaleLoad)
	assert.Equal(t, []string{"new"}, ids(b.Visible()))
	assert.Equal(t, Loaded, b.State())
}

func TestApplyUpsertAndDeleteFromBus(t *testing.T) {
	b, _ := loaded(t)
	bus := events.NewBus()
	unsubscribe := b.Mount(bus)

	bus.Publish(events.Upserted(models.Task{ID: "2", Title: "Write report", Status: models.StatusDone}))
	bus.Publish(events.Upserted(models.Task{ID: "9", Title: "New one", Status: models.StatusInProgress}))
	bus.Publish(events.Deleted("3"))

	assert.Equal(t, []int{2, 1, 1}, counts(b.Columns()))
	task, ok := b.Task("2")
	require.True(t, ok)
	assert.Equal(t, models.StatusDone, task.Status)

	unsubscribe()
	bus.Publish(events.Deleted("9"))
	_, ok = b.Task("9")
	assert.True(t, ok, "unsubscribed boards ignore changes")
	assert.Zero(t, bus.Subscribers())
}

func TestApplyBeforeLoadIsDropped(t *testing.T) {
	b := New(&fakeSource{}, nil)
	b.Apply(events.Upserted(models.Task{ID: "1", Title: "x"}))
	assert.Equal(t, Unmounted, b.State())
	assert.Empty(t, b.Visible())
}

func TestLayoutFor(t *testing.T) {
	assert.Equal(t, Chronological, LayoutFor(60, 100))
	assert.Equal(t, Columns, LayoutFor(100, 100))
	assert.Equal(t, Columns, LayoutFor(160, 100))
}
