package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/board"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/loading"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

const spinnerInterval = 120 * time.Millisecond

type (
	loadedMsg       struct{ out views.Outcome }
	deletedMsg      struct{ out views.Outcome }
	toastExpiredMsg struct{ seq int }
	spinnerTickMsg  struct{}
)

// boardModel is the interactive board. It leaves the program when the user
// navigates away; next then holds where to go.
type boardModel struct {
	ctx     context.Context
	view    *views.Board
	store   *board.Board
	opts    Options
	spinner *loading.Indicator

	width  int
	layout board.Layout
	cursor int

	searching bool
	query     string

	// confirming is the id of the task waiting for a delete confirmation.
	confirming string

	toast    string
	toastSeq int
	message  string

	next views.Outcome
}

func newBoardModel(ctx context.Context, view *views.Board, opts Options, toast string) *boardModel {
	opts = opts.withDefaults()
	return &boardModel{
		ctx:     ctx,
		view:    view,
		store:   view.Store(),
		opts:    opts,
		spinner: loading.New(opts.SpinnerMin, opts.SpinnerMax, nil),
		layout:  board.Columns,
		query:   view.Store().Filter(),
		toast:   toast,
	}
}

func (m *boardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load(true)}
	if m.toast != "" {
		cmds = append(cmds, m.expireToast())
	}
	return tea.Batch(cmds...)
}

func (m *boardModel) load(mount bool) tea.Cmd {
	m.spinner.Start()
	m.message = ""
	ctx, view := m.ctx, m.view
	return tea.Batch(
		func() tea.Msg {
			if mount {
				return loadedMsg{out: view.Mount(ctx)}
			}
			return loadedMsg{out: view.Reload(ctx)}
		},
		spinnerTick(),
	)
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg { return spinnerTickMsg{} })
}

func (m *boardModel) remove(id string) tea.Cmd {
	m.spinner.Start()
	ctx, view := m.ctx, m.view
	return tea.Batch(
		func() tea.Msg { return deletedMsg{out: view.Delete(ctx, id)} },
		spinnerTick(),
	)
}

// showToast replaces the current toast; only the latest one's timer clears it.
func (m *boardModel) showToast(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.toast = text
	return m.expireToast()
}

func (m *boardModel) expireToast() tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(m.opts.ToastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// leave stores where to go and stops the program.
func (m *boardModel) leave(out views.Outcome) tea.Cmd {
	m.next = out
	return tea.Quit
}

// ordered lists visible tasks in the order they are drawn.
func (m *boardModel) ordered() []models.Task {
	if m.layout == board.Chronological {
		return m.store.Chronological()
	}
	var tasks []models.Task
	for _, col := range m.store.Columns() {
		tasks = append(tasks, col.Tasks...)
	}
	return tasks
}

func (m *boardModel) selected() (models.Task, bool) {
	tasks := m.ordered()
	if len(tasks) == 0 {
		return models.Task{}, false
	}
	m.clamp(len(tasks))
	return tasks[m.cursor], true
}

func (m *boardModel) clamp(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.layout = board.LayoutFor(msg.Width, m.opts.WideWidth)
		return m, nil

	case loadedMsg:
		m.spinner.Stop()
		if msg.out.Failed {
			m.message = msg.out.Message
			return m, m.showToast(msg.out.Toast)
		}
		m.clamp(len(m.ordered()))
		return m, nil

	case deletedMsg:
		m.spinner.Stop()
		m.clamp(len(m.ordered()))
		return m, m.showToast(msg.out.Toast)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case spinnerTickMsg:
		if m.spinner.Visible() || m.store.State() == board.Loading {
			return m, spinnerTick()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.confirming != "":
			return m, m.handleConfirm(msg)
		case m.searching:
			m.handleSearch(msg)
			return m, nil
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *boardModel) handleConfirm(msg tea.KeyMsg) tea.Cmd {
	id := m.confirming
	m.confirming = ""
	switch strings.ToLower(msg.String()) {
	case "s", "y":
		return m.remove(id)
	}
	return nil
}

func (m *boardModel) handleSearch(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		return
	case tea.KeyEsc:
		m.searching = false
		m.query = ""
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	default:
		return
	}
	m.view.Search(m.query)
	m.cursor = 0
}

func (m *boardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.leave(views.Outcome{})
	case "/":
		m.searching = true
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ordered())-1 {
			m.cursor++
		}
	case "r":
		return m.load(false)
	case "n":
		return m.leave(m.view.Create())
	case "p":
		return m.leave(m.view.Profile())
	case "e", "enter":
		if task, ok := m.selected(); ok {
			return m.leave(m.view.Edit(task.ID))
		}
	case "d":
		if task, ok := m.selected(); ok {
			m.confirming = task.ID
		}
	case "l":
		out := m.view.Logout()
		if out.Redirects() {
			return m.leave(out)
		}
		return m.showToast(out.Toast)
	}
	return nil
}

func (m *boardModel) View() string {
	var b strings.Builder
	m.writeHeader(&b)

	switch m.store.State() {
	case board.LoadError:
		b.WriteString(errorStyle.Render(m.message))
		b.WriteString("\n")
	case board.Loaded:
		if m.layout == board.Chronological {
			m.writeList(&b)
		} else {
			m.writeColumns(&b)
		}
	}

	m.writeFooter(&b)
	return b.String()
}

func (m *boardModel) writeHeader(b *strings.Builder) {
	b.WriteString(titleStyle.Render("KAIRO · Tablero"))
	if m.spinner.Visible() {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render("Cargando…"))
	}
	b.WriteString("\n")

	switch {
	case m.searching:
		fmt.Fprintf(b, "Buscar: %s▏\n", m.query)
	case m.query != "":
		b.WriteString(mutedStyle.Render("Filtro: " + m.query))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *boardModel) taskLine(t models.Task, selected bool) string {
	prefix, title := "  ", t.DisplayTitle()
	if selected {
		prefix, title = selectedStyle.Render("› "), selectedStyle.Render(title)
	}
	line := prefix + title
	if when := strings.TrimSpace(t.Date + " " + t.Time); when != "" {
		line += " " + mutedStyle.Render(when)
	}
	return line
}

func (m *boardModel) writeColumns(b *strings.Builder) {
	width := 28
	if m.width > 0 {
		if w := m.width/3 - 4; w > width {
			width = w
		}
	}

	index := 0
	var rendered []string
	for _, col := range m.store.Columns() {
		var c strings.Builder
		c.WriteString(statusStyle(col.Status).Render(col.Status.Label()))
		c.WriteString(" ")
		c.WriteString(badgeStyle.Render(fmt.Sprint(col.Count())))
		c.WriteString("\n")
		if col.Count() == 0 {
			c.WriteString(mutedStyle.Render("  Sin tareas"))
		}
		for i, t := range col.Tasks {
			if i > 0 {
				c.WriteString("\n")
			}
			c.WriteString(m.taskLine(t, index == m.cursor))
			index++
		}
		rendered = append(rendered, columnStyle.Width(width).Render(c.String()))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")
}

func (m *boardModel) writeList(b *strings.Builder) {
	tasks := m.store.Chronological()
	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render("No hay tareas"))
		b.WriteString("\n")
		return
	}
	for i, t := range tasks {
		b.WriteString(m.taskLine(t, i == m.cursor))
		b.WriteString(" ")
		b.WriteString(statusStyle(t.Status).Render("[" + t.Status.Label() + "]"))
		b.WriteString("\n")
	}
}

func (m *boardModel) writeFooter(b *strings.Builder) {
	b.WriteString("\n")
	if m.confirming != "" {
		b.WriteString(errorStyle.Render("¿Eliminar esta nota? (s/N)"))
		b.WriteString("\n")
	}
	if m.toast != "" {
		b.WriteString(toastStyle.Render(m.toast))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("n nueva · e editar · d eliminar · / buscar · r recargar · p perfil · l salir de la sesión · q salir"))
	b.WriteString("\n")
}
