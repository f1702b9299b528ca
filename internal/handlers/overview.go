package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/board"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

// BoardHandler answers with the board grouped by status, filtered the same
// way the search box filters it.
type BoardHandler struct {
	deps    views.Deps
	session Session
}

func NewBoardHandler(deps views.Deps, session Session) *BoardHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &BoardHandler{deps: deps, session: session}
}

type BoardRequest struct {
	Query        string `json:"query"`
	StatusFilter string `json:"status_filter"`
	Limit        int    `json:"limit"`
}

type ColumnView struct {
	Status    string        `json:"status"`
	Label     string        `json:"label"`
	Count     int           `json:"count"`
	Tasks     []TaskSummary `json:"tasks"`
	Truncated bool          `json:"truncated,omitempty"`
}

type BoardSummary struct {
	TotalTasks   int `json:"total_tasks"`
	OverdueTasks int `json:"overdue_tasks"`
	DueThisWeek  int `json:"due_this_week"`
	UndatedTasks int `json:"undated_tasks"`
}

type BoardResponse struct {
	Summary BoardSummary `json:"summary"`
	Query   string       `json:"query,omitempty"`
	Columns []ColumnView `json:"columns"`
}

func (h *BoardHandler) Handle(ctx context.Context, params map[string]interface{}) (*MCPResponse, error) {
	if !h.session.Authenticated() {
		return nil, ErrNotSignedIn
	}

	req := BoardRequest{StatusFilter: "all", Limit: DefaultTaskLimit}
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	req.Limit = clampLimit(req.Limit)

	include, err := statusFilter(req.StatusFilter)
	if err != nil {
		return nil, err
	}

	store := board.New(h.deps.Tasks, h.deps.Logger)
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	store.SetFilter(req.Query)

	now := h.deps.Now()
	response := BoardResponse{Query: store.Filter()}
	for _, col := range store.Columns() {
		if !include(col.Status) {
			continue
		}
		response.Columns = append(response.Columns, h.buildColumn(col, req.Limit, now))
		h.addToSummary(&response.Summary, col.Tasks, now)
	}

	return textResponse(response)
}

func (h *BoardHandler) buildColumn(col board.Column, limit int, now time.Time) ColumnView {
	view := ColumnView{
		Status: string(col.Status),
		Label:  col.Status.Label(),
		Count:  col.Count(),
		Tasks:  []TaskSummary{},
	}
	for i, task := range sortByDue(col.Tasks) {
		if i == limit {
			view.Truncated = true
			break
		}
		view.Tasks = append(view.Tasks, summarize(task, now))
	}
	return view
}

func (h *BoardHandler) addToSummary(summary *BoardSummary, tasks []models.Task, now time.Time) {
	for _, task := range tasks {
		summary.TotalTasks++

		overdue, days := dueDateInfo(task, now)
		switch {
		case days == nil:
			summary.UndatedTasks++
		case overdue:
			summary.OverdueTasks++
		case *days <= 7 && task.Status != models.StatusDone:
			summary.DueThisWeek++
		}
	}
}

// statusFilter accepts "all", "active" (everything not done) or any status
// spelling the task form accepts.
func statusFilter(raw string) (func(models.Status) bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return func(models.Status) bool { return true }, nil
	case "active":
		return func(s models.Status) bool { return s != models.StatusDone }, nil
	}
	want, ok := models.LookupStatus(raw)
	if !ok {
		return nil, fmt.Errorf("unknown status filter %q", raw)
	}
	return func(s models.Status) bool { return s == want }, nil
}
