// Package handlers implements the MCP tools. Each handler takes the tool's
// raw arguments and answers with an indented JSON document for the agent.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

const (
	DefaultTaskLimit  = 20
	MaxTasksHardLimit = 100
)

// ErrNotSignedIn is returned while no session token is stored.
var ErrNotSignedIn = errors.New("not signed in: run kairo and log in first")

// Session reports whether a bearer token is available.
type Session interface {
	Authenticated() bool
}

type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type MCPResponse struct {
	Content []MCPContent `json:"content"`
}

func textResponse(v interface{}) (*MCPResponse, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &MCPResponse{
		Content: []MCPContent{
			{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}

// decodeParams copies the tool arguments into req, keeping the defaults
// already set on it for absent keys.
func decodeParams(params map[string]interface{}, req interface{}) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTaskLimit
	case limit > MaxTasksHardLimit:
		return MaxTasksHardLimit
	}
	return limit
}

type TaskSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Detail       string `json:"detail,omitempty"`
	Status       string `json:"status"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	IsOverdue    bool   `json:"is_overdue"`
	DaysUntilDue *int   `json:"days_until_due,omitempty"`
}

func summarize(task models.Task, now time.Time) TaskSummary {
	overdue, days := dueDateInfo(task, now)
	return TaskSummary{
		ID:           task.ID,
		Title:        task.DisplayTitle(),
		Detail:       task.Detail,
		Status:       string(task.Status),
		Date:         task.Date,
		Time:         task.Time,
		IsOverdue:    overdue,
		DaysUntilDue: days,
	}
}

// dueDateInfo reports whether an unfinished task is past due and how many
// calendar days remain (negative when overdue).
func dueDateInfo(task models.Task, now time.Time) (bool, *int) {
	due, ok := task.Due()
	if !ok {
		return false, nil
	}
	days := calendarDays(now, due)
	overdue := task.Status != models.StatusDone && due.Before(now)
	return overdue, &days
}

// calendarDays counts local calendar days from from to to. The dates are
// compared as UTC midnights so DST transitions do not shorten a day.
func calendarDays(from, to time.Time) int {
	from, to = from.In(time.Local), to.In(time.Local)
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// sortByDue orders tasks by due date, undated last.
func sortByDue(tasks []models.Task) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Date == "") != (b.Date == "") {
			return b.Date == ""
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Time < b.Time
	})
	return sorted
}

func invalidTask(errs validation.Errors) error {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, errs[field]))
	}
	return fmt.Errorf("invalid task: %s", strings.Join(parts, "; "))
}

type TaskResult struct {
	Message string       `json:"message"`
	Task    *TaskSummary `json:"task,omitempty"`
	ID      string       `json:"id,omitempty"`
}

// TasksHandler creates, updates and deletes tasks. Every change is published
// on the bus like the interactive screens do.
type TasksHandler struct {
	deps    views.Deps
	session Session
	form    *views.TaskNew
}

func NewTasksHandler(deps views.Deps, session Session) *TasksHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &TasksHandler{deps: deps, session: session, form: views.NewTaskNew(deps)}
}

type CreateTaskRequest struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// UpdateTaskRequest only changes the fields that are present.
type UpdateTaskRequest struct {
	ID     string  `json:"id"`
	Title  *string `json:"title"`
	Detail *string `json:"detail"`
	Date   *string `json:"date"`
	Time   *string `json:"time"`
	Status *string `json:"status"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

func (h *TasksHandler) publish(change events.TaskChange) {
	if h.deps.Bus != nil {
		h.deps.Bus.Publish(change)
	}
}

func (h *TasksHandler) Create(ctx context.Context, params map[string]interface{}) (*MCPResponse, error) {
	if !h.session.Authenticated() {
		return nil, ErrNotSignedIn
	}

	req := CreateTaskRequest{Status: string(models.StatusPending)}
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	form := views.TaskForm{
		Title:  req.Title,
		Detail: req.Detail,
		Date:   req.Date,
		Time:   req.Time,
		Status: req.Status,
	}
	if errs := h.form.Validate(form); !errs.Empty() {
		return nil, invalidTask(errs)
	}

	task, err := h.deps.Tasks.CreateTask(ctx, form.Input())
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	h.publish(events.Upserted(*task))
	h.deps.Logger.Debug("task created", zap.String("task_id", task.ID))

	summary := summarize(*task, h.deps.Now())
	return textResponse(TaskResult{Message: "task created", Task: &summary})
}

func (h *TasksHandler) Update(ctx context.Context, params map[string]interface{}) (*MCPResponse, error) {
	if !h.session.Authenticated() {
		return nil, ErrNotSignedIn
	}

	var req UpdateTaskRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, errors.New("id is required")
	}

	existing, err := h.deps.Tasks.GetTask(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", req.ID, err)
	}

	form := views.FormFor(*existing)
	overlay := []struct {
		value  *string
		target *string
	}{
		{req.Title, &form.Title},
		{req.Detail, &form.Detail},
		{req.Date, &form.Date},
		{req.Time, &form.Time},
		{req.Status, &form.Status},
	}
	for _, o := range overlay {
		if o.value != nil {
			*o.target = *o.value
		}
	}
	if errs := h.form.Validate(form); !errs.Empty() {
		return nil, invalidTask(errs)
	}

	task, err := h.deps.Tasks.UpdateTask(ctx, req.ID, form.Input())
	if err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", req.ID, err)
	}
	h.publish(events.Upserted(*task))

	summary := summarize(*task, h.deps.Now())
	return textResponse(TaskResult{Message: "task updated", Task: &summary})
}

func (h *TasksHandler) Delete(ctx context.Context, params map[string]interface{}) (*MCPResponse, error) {
	if !h.session.Authenticated() {
		return nil, ErrNotSignedIn
	}

	var req DeleteTaskRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, errors.New("id is required")
	}

	if err := h.deps.Tasks.DeleteTask(ctx, req.ID); err != nil {
		return nil, fmt.Errorf("failed to delete task %s: %w", req.ID, err)
	}
	h.publish(events.Deleted(req.ID))

	return textResponse(TaskResult{Message: "task deleted", ID: req.ID})
}
