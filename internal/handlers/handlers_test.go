package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/apitest"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/services"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

const email = "ana@example.com"

type tokenSession struct {
	token string
}

func (s *tokenSession) Token() string       { return s.token }
func (s *tokenSession) Authenticated() bool { return s.token != "" }

func fixedNow() time.Time {
	return time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local)
}

type fixture struct {
	backend *apitest.Backend
	session *tokenSession
	deps    views.Deps
	changes []events.TaskChange
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend, origin := apitest.Start(t)
	backend.AddUser("ana", email, "Secret123")
	session := &tokenSession{token: backend.Issue(email)}
	client := api.NewClient(origin+apitest.BasePath, session, 2*time.Second, nil)

	f := &fixture{
		backend: backend,
		session: session,
		deps: views.Deps{
			Tasks: services.NewTaskService(client),
			Bus:   events.NewBus(),
			Now:   fixedNow,
		},
	}
	unsubscribe := f.deps.Bus.Subscribe(func(c events.TaskChange) {
		f.changes = append(f.changes, c)
	})
	t.Cleanup(unsubscribe)
	return f
}

func (f *fixture) seed(id, title, date, clock, status string) {
	f.backend.SeedTask(email, map[string]interface{}{
		"_id": id, "title": title, "date": date, "time": clock, "status": status,
	})
}

func decode(t *testing.T, resp *MCPResponse, target interface{}) {
	t.Helper()
	require.NotNil(t, resp)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "text", resp.Content[0].Type)
	require.NoError(t, json.Unmarshal([]byte(resp.Content[0].Text), target))
}

func TestHandlersRequireSession(t *testing.T) {
	f := newFixture(t)
	f.session.token = ""
	ctx := context.Background()

	_, err := NewBoardHandler(f.deps, f.session).Handle(ctx, nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = NewAgendaHandler(f.deps, f.session).Handle(ctx, nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = NewTasksHandler(f.deps, f.session).Create(ctx, map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.Zero(t, f.backend.Requests("GET /tasks"))
	assert.Zero(t, f.backend.Requests("POST /tasks"))
}

func TestBoardGroupsByStatus(t *testing.T) {
	f := newFixture(t)
	f.seed("t1", "Buy milk", "2026-10-20", "09:00", "pendiente")
	f.seed("t2", "Write report", "2026-10-10", "18:00", "doing")
	f.seed("t3", "File taxes", "2026-10-01", "10:00", "done")

	resp, err := NewBoardHandler(f.deps, f.session).Handle(context.Background(), nil)
	require.NoError(t, err)

	var board BoardResponse
	decode(t, resp, &board)

	require.Len(t, board.Columns, 3)
	assert.Equal(t, "pending", board.Columns[0].Status)
	assert.Equal(t, "Pendiente", board.Columns[0].Label)
	assert.Equal(t, 1, board.Columns[0].Count)
	assert.Equal(t, "in-progress", board.Columns[1].Status)
	assert.True(t, board.Columns[1].Tasks[0].IsOverdue)
	assert.Equal(t, "done", board.Columns[2].Status)
	assert.False(t, board.Columns[2].Tasks[0].IsOverdue)

	assert.Equal(t, 3, board.Summary.TotalTasks)
	assert.Equal(t, 1, board.Summary.OverdueTasks)
	assert.Equal(t, 1, board.Summary.DueThisWeek)
}

func TestBoardFilters(t *testing.T) {
	f := newFixture(t)
	f.seed("t1", "Buy milk", "2026-10-20", "09:00", "pending")
	f.seed("t2", "Buy bread", "2026-10-21", "09:00", "done")
	f.seed("t3", "Write report", "2026-10-22", "09:00", "pending")
	h := NewBoardHandler(f.deps, f.session)

	resp, err := h.Handle(context.Background(), map[string]interface{}{
		"query":         "  BUY ",
		"status_filter": "active",
	})
	require.NoError(t, err)

	var board BoardResponse
	decode(t, resp, &board)
	assert.Equal(t, "buy", board.Query)
	require.Len(t, board.Columns, 2)
	assert.Equal(t, 1, board.Columns[0].Count)
	assert.Equal(t, "t1", board.Columns[0].Tasks[0].ID)
	assert.Zero(t, board.Columns[1].Count)

	_, err = h.Handle(context.Background(), map[string]interface{}{"status_filter": "someday"})
	assert.EqualError(t, err, `unknown status filter "someday"`)
}

func TestBoardTruncatesColumns(t *testing.T) {
	f := newFixture(t)
	f.seed("t1", "A", "2026-10-20", "09:00", "pending")
	f.seed("t2", "B", "2026-10-19", "09:00", "pending")
	f.seed("t3", "C", "", "", "pending")

	resp, err := NewBoardHandler(f.deps, f.session).Handle(context.Background(), map[string]interface{}{"limit": 2})
	require.NoError(t, err)

	var board BoardResponse
	decode(t, resp, &board)
	col := board.Columns[0]
	assert.Equal(t, 3, col.Count)
	assert.True(t, col.Truncated)
	require.Len(t, col.Tasks, 2)
	assert.Equal(t, "t2", col.Tasks[0].ID)
	assert.Equal(t, "t1", col.Tasks[1].ID)
}

func TestAgendaBuckets(t *testing.T) {
	f := newFixture(t)
	f.seed("overdue", "Renew passport", "2026-10-10", "09:00", "pending")
	f.seed("today", "Call mom", "2026-10-18", "18:00", "pending")
	f.seed("week", "Write report", "2026-10-21", "09:00", "in-progress")
	f.seed("later", "Plan trip", "2026-12-01", "09:00", "pending")
	f.seed("undated", "Read book", "", "", "pending")
	f.seed("finished", "File taxes", "2026-10-01", "09:00", "done")

	resp, err := NewAgendaHandler(f.deps, f.session).Handle(context.Background(), nil)
	require.NoError(t, err)

	var agenda AgendaResponse
	decode(t, resp, &agenda)

	assert.Equal(t, AgendaSummary{Overdue: 1, Today: 1, ThisWeek: 1, Later: 1, Undated: 1}, agenda.Summary)
	require.Len(t, agenda.Overdue, 1)
	assert.Equal(t, "overdue", agenda.Overdue[0].ID)
	assert.Equal(t, "Overdue by 8 days, not started", agenda.Overdue[0].Reason)
	assert.Equal(t, "today", agenda.Today[0].ID)
	assert.Equal(t, "Due today, not started", agenda.Today[0].Reason)
	assert.Equal(t, "week", agenda.ThisWeek[0].ID)
	assert.Equal(t, "Due in 3 days", agenda.ThisWeek[0].Reason)
	assert.Equal(t, "later", agenda.Later[0].ID)
	assert.Equal(t, "undated", agenda.Undated[0].ID)

	require.Len(t, agenda.Urgent, 1)
	assert.Equal(t, "overdue", agenda.Urgent[0].ID)
	assert.Equal(t, 105, agenda.Urgent[0].UrgencyScore)
}

func TestAgendaIncludeDone(t *testing.T) {
	f := newFixture(t)
	f.seed("finished", "File taxes", "2026-10-01", "09:00", "done")

	resp, err := NewAgendaHandler(f.deps, f.session).Handle(context.Background(), map[string]interface{}{"include_done": true})
	require.NoError(t, err)

	var agenda AgendaResponse
	decode(t, resp, &agenda)
	assert.Empty(t, agenda.Overdue)
	assert.Empty(t, agenda.Today)
	assert.Equal(t, 1, agenda.Summary.Completed)
	require.Len(t, agenda.Completed, 1)
	assert.Zero(t, agenda.Completed[0].UrgencyScore)
	assert.Empty(t, agenda.Urgent)
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	h := NewTasksHandler(f.deps, f.session)

	resp, err := h.Create(context.Background(), map[string]interface{}{
		"title": "Buy milk",
		"date":  "2024-05-01",
		"time":  "09:00",
	})
	require.NoError(t, err)

	var result TaskResult
	decode(t, resp, &result)
	require.NotNil(t, result.Task)
	assert.NotEmpty(t, result.Task.ID)
	assert.Equal(t, "pending", result.Task.Status)

	stored := f.backend.Tasks(email)
	require.Len(t, stored, 1)
	assert.Equal(t, "Buy milk", stored[0]["title"])

	require.Len(t, f.changes, 1)
	assert.Equal(t, events.Upsert, f.changes[0].Kind)
	assert.Equal(t, result.Task.ID, f.changes[0].ID)
}

func TestCreateTaskValidatesBeforeSending(t *testing.T) {
	f := newFixture(t)
	h := NewTasksHandler(f.deps, f.session)

	_, err := h.Create(context.Background(), map[string]interface{}{
		"date":   "01/05/2024",
		"time":   "9am",
		"status": "someday",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task: date: ")
	assert.Contains(t, err.Error(), "title: El título es obligatorio")
	assert.Zero(t, f.backend.Requests("POST /tasks"))
	assert.Empty(t, f.changes)
}

func TestUpdateTaskChangesOnlyGivenFields(t *testing.T) {
	f := newFixture(t)
	f.seed("t1", "Buy milk", "2024-05-01", "09:00", "pending")

	resp, err := NewTasksHandler(f.deps, f.session).Update(context.Background(), map[string]interface{}{
		"id":     "t1",
		"status": "completada",
	})
	require.NoError(t, err)

	var result TaskResult
	decode(t, resp, &result)
	assert.Equal(t, "task updated", result.Message)

	stored := f.backend.Tasks(email)
	require.Len(t, stored, 1)
	assert.Equal(t, "Buy milk", stored[0]["title"])
	assert.Equal(t, "2024-05-01", stored[0]["date"])
	assert.Equal(t, "done", stored[0]["status"])
	require.Len(t, f.changes, 1)
	assert.Equal(t, "t1", f.changes[0].ID)
}

func TestUpdateTaskErrors(t *testing.T) {
	f := newFixture(t)
	h := NewTasksHandler(f.deps, f.session)

	_, err := h.Update(context.Background(), map[string]interface{}{"title": "x"})
	assert.EqualError(t, err, "id is required")

	_, err = h.Update(context.Background(), map[string]interface{}{"id": "missing"})
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, 404))
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	f.seed("t1", "Buy milk", "2024-05-01", "09:00", "pending")

	resp, err := NewTasksHandler(f.deps, f.session).Delete(context.Background(), map[string]interface{}{"id": "t1"})
	require.NoError(t, err)

	var result TaskResult
	decode(t, resp, &result)
	assert.Equal(t, "t1", result.ID)
	assert.Empty(t, f.backend.Tasks(email))
	require.Len(t, f.changes, 1)
	assert.Equal(t, events.Delete, f.changes[0].Kind)
}

func inZone(t *testing.T, name string) {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	saved := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = saved })
}

func TestCalendarDaysAcrossDSTChange(t *testing.T) {
	inZone(t, "America/New_York")
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.Local)

	assert.Equal(t, 2, calendarDays(now, time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local)))
	assert.Equal(t, -2, calendarDays(time.Date(2026, 3, 9, 9, 0, 0, 0, time.Local), now))
	assert.Equal(t, 2, calendarDays(
		time.Date(2026, 10, 31, 12, 0, 0, 0, time.Local),
		time.Date(2026, 11, 2, 9, 0, 0, 0, time.Local)))
}

func TestAgendaAcrossDSTChange(t *testing.T) {
	inZone(t, "America/New_York")
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.Local)
	h := NewAgendaHandler(views.Deps{}, &tokenSession{token: "t"})

	soon := models.Task{ID: "soon", Title: "Water plants", Date: "2026-03-09", Time: "09:00", Status: models.StatusPending}
	assert.Equal(t, "Due in 2 days, not started", h.urgencyReason(soon, now))

	later := models.Task{ID: "later", Title: "Dentist", Date: "2026-03-15", Time: "09:00", Status: models.StatusInProgress}
	agenda := h.buildAgenda([]models.Task{soon, later}, AgendaRequest{Limit: DefaultTaskLimit}, now)
	require.Len(t, agenda.ThisWeek, 1)
	assert.Equal(t, "soon", agenda.ThisWeek[0].ID)
	require.Len(t, agenda.Later, 1)
	assert.Equal(t, "later", agenda.Later[0].ID)
	assert.Equal(t, 8, *agenda.Later[0].DaysUntilDue)
}
