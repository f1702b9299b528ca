package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

const urgentThreshold = 70

// AgendaHandler buckets unfinished tasks by when they are due and ranks the
// most urgent ones.
type AgendaHandler struct {
	deps    views.Deps
	session Session
}

func NewAgendaHandler(deps views.Deps, session Session) *AgendaHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &AgendaHandler{deps: deps, session: session}
}

type AgendaRequest struct {
	TimeHorizon string `json:"time_horizon"`
	IncludeDone bool   `json:"include_done"`
	Limit       int    `json:"limit"`
}

type AgendaItem struct {
	TaskSummary
	UrgencyScore int    `json:"urgency_score"`
	Reason       string `json:"reason,omitempty"`
}

type AgendaSummary struct {
	Overdue   int `json:"overdue"`
	Today     int `json:"today"`
	ThisWeek  int `json:"this_week"`
	Later     int `json:"later"`
	Undated   int `json:"undated"`
	Completed int `json:"completed,omitempty"`
}

type AgendaResponse struct {
	Summary  AgendaSummary `json:"summary"`
	Urgent   []AgendaItem  `json:"urgent"`
	Overdue  []AgendaItem  `json:"overdue"`
	Today    []AgendaItem  `json:"today"`
	ThisWeek []AgendaItem  `json:"this_week"`
	Later    []AgendaItem  `json:"later"`
	Undated  []AgendaItem  `json:"undated"`

	// Completed is only filled when done tasks are requested.
	Completed []AgendaItem `json:"completed,omitempty"`
}

func (h *AgendaHandler) Handle(ctx context.Context, params map[string]interface{}) (*MCPResponse, error) {
	if !h.session.Authenticated() {
		return nil, ErrNotSignedIn
	}

	req := AgendaRequest{TimeHorizon: "week", Limit: DefaultTaskLimit}
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	req.Limit = clampLimit(req.Limit)

	tasks, err := h.deps.Tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	response := h.buildAgenda(tasks, req, h.deps.Now())
	return textResponse(response)
}

func (h *AgendaHandler) buildAgenda(tasks []models.Task, req AgendaRequest, now time.Time) AgendaResponse {
	response := AgendaResponse{
		Urgent:   []AgendaItem{},
		Overdue:  []AgendaItem{},
		Today:    []AgendaItem{},
		ThisWeek: []AgendaItem{},
		Later:    []AgendaItem{},
		Undated:  []AgendaItem{},
	}
	horizon := horizonEnd(req.TimeHorizon, now)

	for _, task := range sortByDue(tasks) {
		if task.Status == models.StatusDone && !req.IncludeDone {
			continue
		}

		item := AgendaItem{
			TaskSummary:  summarize(task, now),
			UrgencyScore: h.urgencyScore(task, now, horizon),
			Reason:       h.urgencyReason(task, now),
		}

		bucket, counter := h.bucketFor(&response, item)
		*counter++
		if len(*bucket) < req.Limit {
			*bucket = append(*bucket, item)
		}

		if item.UrgencyScore >= urgentThreshold {
			response.Urgent = append(response.Urgent, item)
		}
	}

	sort.SliceStable(response.Urgent, func(i, j int) bool {
		return response.Urgent[i].UrgencyScore > response.Urgent[j].UrgencyScore
	})
	if len(response.Urgent) > 10 {
		response.Urgent = response.Urgent[:10]
	}

	return response
}

func (h *AgendaHandler) bucketFor(r *AgendaResponse, item AgendaItem) (*[]AgendaItem, *int) {
	switch {
	case item.Status == string(models.StatusDone):
		return &r.Completed, &r.Summary.Completed
	case item.DaysUntilDue == nil:
		return &r.Undated, &r.Summary.Undated
	case item.IsOverdue:
		return &r.Overdue, &r.Summary.Overdue
	case *item.DaysUntilDue <= 0:
		return &r.Today, &r.Summary.Today
	case *item.DaysUntilDue <= 7:
		return &r.ThisWeek, &r.Summary.ThisWeek
	}
	return &r.Later, &r.Summary.Later
}

func horizonEnd(horizon string, now time.Time) time.Time {
	switch horizon {
	case "today":
		return now.AddDate(0, 0, 1)
	case "month":
		return now.AddDate(0, 1, 0)
	default:
		return now.AddDate(0, 0, 7)
	}
}

func (h *AgendaHandler) urgencyScore(task models.Task, now, horizon time.Time) int {
	due, ok := task.Due()
	if !ok || task.Status == models.StatusDone {
		return 0
	}

	score := 20
	if due.Before(now) {
		score += 40
		daysOverdue := -calendarDays(now, due)
		switch {
		case daysOverdue > 7:
			score += 30
		case daysOverdue > 3:
			score += 20
		default:
			score += 10
		}
	} else if due.Before(horizon) {
		daysUntil := calendarDays(now, due)
		switch {
		case daysUntil <= 1:
			score += 25
		case daysUntil <= 3:
			score += 15
		case daysUntil <= 7:
			score += 10
		}
	}

	if task.Status == models.StatusPending {
		score += 15
	}
	return score
}

func (h *AgendaHandler) urgencyReason(task models.Task, now time.Time) string {
	due, ok := task.Due()
	if !ok || task.Status == models.StatusDone {
		return ""
	}

	var reasons []string
	if due.Before(now) {
		switch days := -calendarDays(now, due); days {
		case 0:
			reasons = append(reasons, "Overdue since earlier today")
		case 1:
			reasons = append(reasons, "Overdue by 1 day")
		default:
			reasons = append(reasons, fmt.Sprintf("Overdue by %d days", days))
		}
	} else {
		switch days := calendarDays(now, due); {
		case days == 0:
			reasons = append(reasons, "Due today")
		case days == 1:
			reasons = append(reasons, "Due tomorrow")
		case days <= 3:
			reasons = append(reasons, fmt.Sprintf("Due in %d days", days))
		}
	}

	if task.Status == models.StatusPending && len(reasons) > 0 {
		reasons = append(reasons, "not started")
	}
	return strings.Join(reasons, ", ")
}
