package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/apitest"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/auth"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/board"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/services"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/storage"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

const (
	email    = "ana@example.com"
	password = "Secret123"
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
}

type harness struct {
	backend *apitest.Backend
	session *auth.Session
	deps    views.Deps
	out     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend, origin := apitest.Start(t)
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	session, err := auth.NewSession(store, nil)
	require.NoError(t, err)

	client := api.NewClient(origin+apitest.BasePath, session, 2*time.Second, nil)
	return &harness{
		backend: backend,
		session: session,
		deps: views.Deps{
			Users:     services.NewUserService(client, session),
			Tasks:     services.NewTaskService(client),
			Passwords: services.NewPasswordService(client),
			Bus:       events.NewBus(),
			Validator: validation.New().WithClock(fixedNow),
			Now:       fixedNow,
		},
	}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.backend.AddUser("ana", email, password)
	require.NoError(t, h.session.SetToken(h.backend.Issue(email), email))
}

// navigate mounts fragment with script as the user's input. The board
// screen exits immediately.
func (h *harness) navigate(t *testing.T, loader router.Loader, fragment, script string) (*App, *router.Location) {
	t.Helper()

	prompt := NewPrompter(strings.NewReader(script), &h.out)
	app := NewApp(h.deps, prompt, Options{
		RunBoard: func(ctx context.Context, model tea.Model) (tea.Model, error) {
			return model, nil
		},
	})
	t.Cleanup(app.Close)

	loc := router.NewLocation(fragment)
	r := router.New(loader, router.NewDocument(&h.out), loc, h.session, nil)
	app.Register(r)

	require.NoError(t, r.Handle(context.Background(), loc.Hash()))
	return app, loc
}

type failingLoader struct{}

func (failingLoader) Load(ctx context.Context, view router.View) (string, error) {
	return "", errors.New("Error loading view: " + string(view))
}

func closed(loc *router.Location) bool {
	select {
	case _, ok := <-loc.Changes():
		return !ok
	default:
		return false
	}
}

func TestLoginScreenSignsIn(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("ana", email, password)

	app, loc := h.navigate(t, router.BundledLoader{}, "#/login", "nope\n"+email+"\n"+password+"\ns\n")

	assert.Contains(t, h.out.String(), "Ingresa un correo válido")
	assert.True(t, h.session.Authenticated())
	assert.Equal(t, "#/board", loc.Hash())
	assert.Equal(t, "Bienvenido 👋", app.pendingToast)
}

func TestLoginScreenRetriesAfterWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("ana", email, password)

	_, loc := h.navigate(t, router.BundledLoader{}, "#/login",
		email+"\nWrong1234\ns\n"+email+"\n"+password+"\ns\n")

	assert.Contains(t, h.out.String(), "Correo o contraseña inválidos")
	assert.Equal(t, "#/board", loc.Hash())
}

func TestTypedFragmentNavigates(t *testing.T) {
	h := newHarness(t)

	_, loc := h.navigate(t, router.BundledLoader{}, "#/login", "#/register\n")

	assert.Equal(t, "#/register", loc.Hash())
}

func TestQuitClosesLocation(t *testing.T) {
	h := newHarness(t)

	_, loc := h.navigate(t, router.BundledLoader{}, "#/login", ":q\n")

	assert.True(t, closed(loc))
}

func TestRegisterScreen(t *testing.T) {
	h := newHarness(t)

	script := strings.Join([]string{"Ana", "Pérez", "2015-01-01", "2000-01-01", email, password, password}, "\n") + "\n"
	_, loc := h.navigate(t, router.BundledLoader{}, "#/register", script)

	assert.Contains(t, h.out.String(), "Debes tener al menos 13 años")
	assert.Contains(t, h.out.String(), "Cuenta creada con éxito 🎉")
	assert.Equal(t, "#/login", loc.Hash())
	assert.Equal(t, 1, h.backend.Requests("POST /users"))
}

func TestTaskNewScreen(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	script := "\nBuy milk\n\n2024-05-01\n09:00\n\n"
	app, loc := h.navigate(t, router.BundledLoader{}, router.Route{View: router.ViewTaskNew}.Fragment(), script)

	assert.Contains(t, h.out.String(), "El título es obligatorio")
	assert.Equal(t, "#/board", loc.Hash())
	assert.Equal(t, "Tarea creada correctamente", app.pendingToast)

	tasks := h.backend.Tasks(email)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0]["title"])
	assert.Equal(t, "pending", tasks[0]["status"])
}

func TestTaskEditScreenKeepsUnchangedFields(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	id := h.backend.SeedTask(email, map[string]interface{}{
		"title": "Buy milk", "date": "2024-05-01", "time": "09:00", "status": "pending",
	})

	route := router.Route{View: router.ViewTaskEdit, Param: id}
	_, loc := h.navigate(t, router.BundledLoader{}, route.Fragment(), "Buy oat milk\n\n\n\nen progreso\n")

	assert.Equal(t, "#/board", loc.Hash())
	tasks := h.backend.Tasks(email)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy oat milk", tasks[0]["title"])
	assert.Equal(t, "2024-05-01", tasks[0]["date"])
	assert.Equal(t, "in-progress", tasks[0]["status"])
}

func TestTaskEditScreenMissingTaskReturnsToBoard(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	route := router.Route{View: router.ViewTaskEdit, Param: "missing"}
	app, loc := h.navigate(t, router.BundledLoader{}, route.Fragment(), "")

	assert.Equal(t, "Error al cargar la tarea", app.pendingToast)
	assert.Equal(t, "#/board", loc.Hash())
}

func TestProfileScreen(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, loc := h.navigate(t, router.BundledLoader{}, "#/update", "Ana María\n\n\n\n")

	out := h.out.String()
	assert.Contains(t, out, "Datos actuales")
	assert.Contains(t, out, "Datos actualizados correctamente ✅")
	assert.True(t, closed(loc))
}

func TestLoadErrorScreenRetries(t *testing.T) {
	h := newHarness(t)

	_, loc := h.navigate(t, failingLoader{}, "#/login", "\n")

	assert.Contains(t, h.out.String(), "No se pudo cargar la vista")
	assert.Equal(t, "#/login", loc.Hash())
	select {
	case _, ok := <-loc.Changes():
		assert.True(t, ok)
	default:
		t.Fatal("retry did not signal a navigation")
	}
}

func TestBoardScreenQuitClosesLocation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, loc := h.navigate(t, router.BundledLoader{}, "#/board", "")

	assert.True(t, closed(loc))
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// settle runs cmd and feeds the load and delete results back to m.
func settle(m *boardModel, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			settle(m, c)
		}
	case loadedMsg, deletedMsg:
		m.Update(msg)
	}
}

func loadedBoard(t *testing.T, h *harness) *boardModel {
	t.Helper()
	h.signIn(t)
	h.backend.SeedTask(email, map[string]interface{}{
		"_id": "t1", "title": "Buy milk", "date": "2024-05-02", "time": "09:00", "status": "pending",
	})
	h.backend.SeedTask(email, map[string]interface{}{
		"_id": "t2", "title": "Write report", "date": "2024-05-01", "time": "18:00", "status": "in-progress",
	})

	view := views.NewBoard(h.deps)
	t.Cleanup(view.Unmount)
	m := newBoardModel(context.Background(), view, Options{SpinnerMin: time.Millisecond, SpinnerMax: time.Second}, "")
	m.Update(loadedMsg{out: view.Mount(context.Background())})
	require.Equal(t, board.Loaded, m.store.State())
	return m
}

func TestBoardModelRendersColumns(t *testing.T) {
	m := loadedBoard(t, newHarness(t))
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})

	view := m.View()
	assert.Contains(t, view, "Pendiente")
	assert.Contains(t, view, "En progreso")
	assert.Contains(t, view, "Completada")
	assert.Contains(t, view, "Buy milk")
	assert.Contains(t, view, "Write report")
}

func TestBoardModelNarrowIsChronological(t *testing.T) {
	m := loadedBoard(t, newHarness(t))
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 40})

	assert.Equal(t, board.Chronological, m.layout)
	task, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "t2", task.ID)

	view := m.View()
	assert.Less(t, strings.Index(view, "Write report"), strings.Index(view, "Buy milk"))
}

func TestBoardModelSearchFiltersLive(t *testing.T) {
	m := loadedBoard(t, newHarness(t))

	m.Update(key("/"))
	for _, r := range "MILK" {
		m.Update(key(string(r)))
	}
	assert.Equal(t, "milk", m.store.Filter())
	require.Len(t, m.ordered(), 1)

	m.Update(key("backspace"))
	assert.Equal(t, "mil", m.store.Filter())

	m.Update(key("esc"))
	assert.False(t, m.searching)
	assert.Len(t, m.ordered(), 2)
}

func TestBoardModelNavigationKeys(t *testing.T) {
	tests := []struct {
		keys []string
		want router.Route
	}{
		{[]string{"n"}, router.Route{View: router.ViewTaskNew}},
		{[]string{"p"}, router.Route{View: router.ViewUpdate}},
		{[]string{"e"}, router.Route{View: router.ViewTaskEdit, Param: "t1"}},
		{[]string{"j", "enter"}, router.Route{View: router.ViewTaskEdit, Param: "t2"}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.keys, "+"), func(t *testing.T) {
			m := loadedBoard(t, newHarness(t))

			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = m.Update(key(k))
			}
			assert.True(t, isQuit(cmd))
			assert.Equal(t, tt.want, m.next.Redirect)
		})
	}
}

func TestBoardModelDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	m := loadedBoard(t, h)

	m.Update(key("d"))
	assert.Equal(t, "t1", m.confirming)
	assert.Contains(t, m.View(), "¿Eliminar esta nota?")

	_, cmd := m.Update(key("n"))
	assert.Nil(t, cmd)
	assert.Len(t, h.backend.Tasks(email), 2)

	m.Update(key("d"))
	_, cmd = m.Update(key("s"))
	settle(m, cmd)

	assert.Len(t, h.backend.Tasks(email), 1)
	assert.Len(t, m.ordered(), 1)
	assert.Equal(t, "Nota eliminada 🗑️", m.toast)
}

func TestBoardModelToastExpiresBySequence(t *testing.T) {
	m := loadedBoard(t, newHarness(t))

	m.showToast("primero")
	first := m.toastSeq
	m.showToast("segundo")

	m.Update(toastExpiredMsg{seq: first})
	assert.Equal(t, "segundo", m.toast)

	m.Update(toastExpiredMsg{seq: m.toastSeq})
	assert.Empty(t, m.toast)
}

func TestBoardModelLogout(t *testing.T) {
	h := newHarness(t)
	m := loadedBoard(t, h)

	_, cmd := m.Update(key("l"))

	assert.True(t, isQuit(cmd))
	assert.Equal(t, router.Route{View: router.ViewLogin}, m.next.Redirect)
	assert.Equal(t, "Sesión cerrada 👋", m.next.Toast)
	assert.False(t, h.session.Authenticated())
	assert.Equal(t, board.Unmounted, m.store.State())
}

func TestBoardModelLoadFailure(t *testing.T) {
	h := newHarness(t)
	m := loadedBoard(t, h)
	h.backend.Fail("GET /tasks", 400, "boom")

	_, cmd := m.Update(key("r"))
	settle(m, cmd)

	assert.Equal(t, board.LoadError, m.store.State())
	assert.Contains(t, m.View(), "boom")
}
