package models

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":     StatusPending,
		"pendiente":   StatusPending,
		"":            StatusPending,
		"whatever":    StatusPending,
		"doing":       StatusInProgress,
		"En progreso": StatusInProgress,
		"en_progreso": StatusInProgress,
		"in-progress": StatusInProgress,
		"done":        StatusDone,
		"Completada":  StatusDone,
		"completo":    StatusDone,
		" completed ": StatusDone,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseStatus(raw), "ParseStatus(%q)", raw)
	}
}

func TestLookupStatus(t *testing.T) {
	s, ok := LookupStatus("pendiente")
	assert.True(t, ok)
	assert.Equal(t, StatusPending, s)

	s, ok = LookupStatus("doing")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)

	_, ok = LookupStatus("")
	assert.False(t, ok)
	_, ok = LookupStatus("someday")
	assert.False(t, ok)
}

func TestTaskUnmarshalIdentifierVariants(t *testing.T) {
	var tasks []Task
	body := `[
		{"_id": "abc", "title": "Mongo style", "status": "completada"},
		{"id": 42, "name": "Numeric id", "status": "doing"},
		{"id": "x1", "title": "No status"}
	]`
	require.NoError(t, json.Unmarshal([]byte(body), &tasks))
	require.Len(t, tasks, 3)

	assert.Equal(t, "abc", tasks[0].ID)
	assert.Equal(t, StatusDone, tasks[0].Status)

	assert.Equal(t, "42", tasks[1].ID)
	assert.Equal(t, "Numeric id", tasks[1].Title)
	assert.Equal(t, StatusInProgress, tasks[1].Status)

	assert.Equal(t, StatusPending, tasks[2].Status)
}

func TestTaskUnmarshalMigratesDueAt(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"t","dueAt":"2024-05-01T09:30:00Z"}`), &task))
	assert.Equal(t, "2024-05-01", task.Date)
	assert.Equal(t, "09:30", task.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","title":"t","date":"2024-06-02T00:00:00.000Z","time":"10:00"}`), &task))
	assert.Equal(t, "2024-06-02", task.Date)
	assert.Equal(t, "10:00", task.Time)
}

func TestTaskMarshalUsesCanonicalStatus(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"1","title":"t","status":"en progreso"}`), &task))

	out, err := json.Marshal(task.Input())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t","detail":"","date":"","time":"","status":"in-progress"}`, string(out))
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "A", Task{Title: "A", Detail: "B"}.DisplayTitle())
	assert.Equal(t, "B", Task{Title: "  ", Detail: "B"}.DisplayTitle())
	assert.Equal(t, "(Sin título)", Task{}.DisplayTitle())
}

func TestDue(t *testing.T) {
	due, ok := Task{Date: "2024-05-01", Time: "09:15"}.Due()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 15, 0, 0, time.Local), due)

	due, ok = Task{Date: "2024-05-01"}.Due()
	require.True(t, ok)
	assert.Equal(t, 0, due.Hour())

	_, ok = Task{Date: "soon"}.Due()
	assert.False(t, ok)
}

func TestUserUnmarshalAndAge(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","name":"Ana","lastname":"Ruiz","birthdate":"2000-07-04T00:00:00.000Z","email":"ana@example.com"}`), &u))

	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ana", u.Username)
	assert.Equal(t, "2000-07-04", u.Birthdate)

	age, ok := u.Age(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 26, age)

	_, ok = User{}.Age(time.Now())
	assert.False(t, ok)
}

func TestProfileUpdateEmpty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.Empty())
	assert.False(t, ProfileUpdate{Email: "a@b.co"}.Empty())
}

func TestDueKeepsWallClockOnDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	saved := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = saved })

	due, ok := Task{Date: "2026-03-08", Time: "09:00"}.Due()
	require.True(t, ok)
	assert.Equal(t, 9, due.Hour())
	assert.Equal(t, 0, due.Minute())
}
