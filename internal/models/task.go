package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists the canonical statuses in board column order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// ParseStatus folds the lexical variants the backend and older clients use
// into a canonical status. Unknown values are pending.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in-progress", "in_progress", "in progress", "doing", "progress",
		"en progreso", "en_progreso", "en-progreso":
		return StatusInProgress
	case "done", "completada", "completado", "completo", "completed", "complete", "hecho":
		return StatusDone
	default:
		return StatusPending
	}
}

// LookupStatus is the strict variant used for user input: it rejects
// anything that is not a known spelling.
func LookupStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", false
	case "pending", "pendiente", "todo", "to-do":
		return StatusPending, true
	}
	s := ParseStatus(raw)
	if s == StatusPending {
		return "", false
	}
	return s, true
}

func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "En progreso"
	case StatusDone:
		return "Completada"
	default:
		return "Pendiente"
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	str, _ := v.(string)
	*s = ParseStatus(str)
	return nil
}

// FlexibleID accepts identifiers the backend sends either as JSON strings or
// numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		*id = FlexibleID(value)
	case float64:
		*id = FlexibleID(strconv.FormatFloat(value, 'f', -1, 64))
	case nil:
		*id = ""
	default:
		*id = FlexibleID(fmt.Sprintf("%v", value))
	}
	return nil
}

type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status Status `json:"status"`
}

// UnmarshalJSON reads both `_id` and `id`, falls back to `name` for the
// title, and migrates a combined `dueAt` timestamp into date and time.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		MongoID FlexibleID `json:"_id"`
		ID      FlexibleID `json:"id"`
		Title   string     `json:"title"`
		Name    string     `json:"name"`
		Detail  string     `json:"detail"`
		Date    string     `json:"date"`
		Time    string     `json:"time"`
		DueAt   string     `json:"dueAt"`
		Status  Status     `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = string(raw.MongoID)
	if t.ID == "" {
		t.ID = string(raw.ID)
	}
	t.Title = raw.Title
	if t.Title == "" {
		t.Title = raw.Name
	}
	t.Detail = raw.Detail
	t.Date = normalizeDate(raw.Date)
	t.Time = raw.Time
	t.Status = raw.Status
	if t.Status == "" {
		t.Status = StatusPending
	}

	if (t.Date == "" || t.Time == "") && raw.DueAt != "" {
		if due, err := time.Parse(time.RFC3339, raw.DueAt); err == nil {
			if t.Date == "" {
				t.Date = due.Format(DateLayout)
			}
			if t.Time == "" {
				t.Time = due.Format(TimeLayout)
			}
		}
	}
	return nil
}

// normalizeDate trims an ISO timestamp ("2024-05-01T00:00:00.000Z") down to
// its date part.
func normalizeDate(s string) string {
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		return s[:len(DateLayout)]
	}
	return s
}

// DisplayTitle is the title shown on the board.
func (t Task) DisplayTitle() string {
	switch {
	case strings.TrimSpace(t.Title) != "":
		return t.Title
	case strings.TrimSpace(t.Detail) != "":
		return t.Detail
	default:
		return "(Sin título)"
	}
}

// Due combines date and time in the local zone. ok is false when the date
// cannot be parsed; a missing time means midnight.
func (t Task) Due() (due time.Time, ok bool) {
	d, err := time.ParseInLocation(DateLayout, t.Date, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	if clock, err := time.Parse(TimeLayout, t.Time); err == nil {
		d = time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local)
	}
	return d, true
}

// Input returns the canonical write payload for the task.
func (t Task) Input() TaskInput {
	return TaskInput{
		Title:  t.Title,
		Detail: t.Detail,
		Date:   t.Date,
		Time:   t.Time,
		Status: t.Status,
	}
}

// TaskInput is the body of POST /tasks and PUT /tasks/:id.
type TaskInput struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status Status `json:"status"`
}

// Task builds the local view of a task from the submitted fields.
func (in TaskInput) Task(id string) Task {
	return Task{
		ID:     id,
		Title:  in.Title,
		Detail: in.Detail,
		Date:   in.Date,
		Time:   in.Time,
		Status: in.Status,
	}
}
