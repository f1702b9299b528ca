package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

// Options tune the terminal front-end. Zero values fall back to the
// defaults of the configuration package.
type Options struct {
	WideWidth     int
	ToastDuration time.Duration
	SpinnerMin    time.Duration
	SpinnerMax    time.Duration
	AltScreen     bool
	// RunBoard runs the board program; tests replace it.
	RunBoard func(ctx context.Context, model tea.Model) (tea.Model, error)
}

func (o Options) withDefaults() Options {
	if o.WideWidth <= 0 {
		o.WideWidth = 100
	}
	if o.ToastDuration <= 0 {
		o.ToastDuration = 2200 * time.Millisecond
	}
	if o.SpinnerMin <= 0 {
		o.SpinnerMin = 800 * time.Millisecond
	}
	if o.SpinnerMax <= 0 {
		o.SpinnerMax = 4 * time.Second
	}
	return o
}

// App owns one controller per screen and binds them to the router.
type App struct {
	prompt *Prompter
	out    io.Writer
	opts   Options

	login    *views.Login
	register *views.Register
	forgot   *views.Forgot
	reset    *views.Reset
	profile  *views.Profile
	taskNew  *views.TaskNew
	taskEdit *views.TaskEdit
	board    *views.Board

	// pendingToast is shown by the next screen; set when a redirect would
	// otherwise hide it.
	pendingToast string
}

func NewApp(deps views.Deps, prompt *Prompter, opts Options) *App {
	opts = opts.withDefaults()
	a := &App{
		prompt:   prompt,
		out:      prompt.Out(),
		opts:     opts,
		login:    views.NewLogin(deps),
		register: views.NewRegister(deps),
		forgot:   views.NewForgot(deps),
		reset:    views.NewReset(deps),
		profile:  views.NewProfile(deps),
		taskNew:  views.NewTaskNew(deps),
		taskEdit: views.NewTaskEdit(deps),
		board:    views.NewBoard(deps),
	}
	if a.opts.RunBoard == nil {
		a.opts.RunBoard = a.runProgram
	}
	return a
}

// Register installs every screen's initializer on r.
func (a *App) Register(r *router.Router) {
	r.Register(router.ViewLogin, a.loginScreen)
	r.Register(router.ViewRegister, a.registerScreen)
	r.Register(router.ViewForgot, a.forgotScreen)
	r.Register(router.ViewReset, a.resetScreen)
	r.Register(router.ViewUpdate, a.profileScreen)
	r.Register(router.ViewTaskNew, a.taskNewScreen)
	r.Register(router.ViewTaskEdit, a.taskEditScreen)
	r.Register(router.ViewBoard, a.boardScreen)
	r.OnLoadError(a.loadErrorScreen)
}

// Close releases the board subscription.
func (a *App) Close() {
	a.board.Unmount()
}

type field struct {
	key     string
	label   string
	secret  bool
	current string
	value   *string
}

// fill asks every field in order, asking again while the field's own rule
// fails.
func (a *App) fill(fields []field, check func() validation.Errors) error {
	for _, f := range fields {
		for {
			var (
				v   string
				err error
			)
			if f.secret {
				v, err = a.prompt.Secret(f.label)
			} else {
				v, err = a.prompt.Ask(f.label, f.current)
			}
			if err != nil {
				return err
			}
			*f.value = v

			msg, bad := check()[f.key]
			if !bad {
				break
			}
			printFieldError(a.out, msg)
		}
	}
	return nil
}

// leave handles a prompt error: quit closes the app, a typed fragment
// navigates, anything else is returned.
func (a *App) leave(m *router.Mount, err error) error {
	var nav *Navigate
	switch {
	case errors.Is(err, ErrQuit):
		m.Nav.Close()
		return nil
	case errors.As(err, &nav):
		m.Nav.Go(nav.Fragment)
		return nil
	}
	return err
}

// apply shows an outcome and reports whether the screen is done.
func (a *App) apply(m *router.Mount, out views.Outcome) bool {
	if out.Busy {
		fmt.Fprintln(a.out, mutedStyle.Render("Espera, la solicitud anterior sigue en curso…"))
		return false
	}

	keys := make([]string, 0, len(out.Fields))
	for k := range out.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printFieldError(a.out, out.Fields[k])
	}

	printMessage(a.out, out.Message, out.Failed)

	if out.Redirects() {
		if out.Redirect.View == router.ViewBoard {
			a.pendingToast = out.Toast
		} else {
			printToast(a.out, out.Toast)
		}
		m.Go(out.Redirect)
		return true
	}
	printToast(a.out, out.Toast)
	return false
}

func (a *App) loginScreen(ctx context.Context, m *router.Mount) error {
	printToast(a.out, a.takeToast())
	for {
		var form views.LoginForm
		check := func() validation.Errors { return a.login.Validate(form) }
		err := a.fill([]field{
			{key: "email", label: "Correo", value: &form.Email},
			{key: "password", label: "Contraseña", secret: true, value: &form.Password},
		}, check)
		if err != nil {
			return a.leave(m, err)
		}

		form.Terms, err = a.prompt.Confirm("¿Aceptas los términos y condiciones?")
		if err != nil {
			return a.leave(m, err)
		}

		if a.apply(m, a.login.Submit(ctx, form)) {
			return nil
		}
	}
}

func (a *App) registerScreen(ctx context.Context, m *router.Mount) error {
	for {
		var form views.RegisterForm
		check := func() validation.Errors { return a.register.Validate(form) }
		err := a.fill([]field{
			{key: "username", label: "Nombres", value: &form.Username},
			{key: "lastname", label: "Apellidos", value: &form.Lastname},
			{key: "birthdate", label: "Fecha de nacimiento (AAAA-MM-DD)", value: &form.Birthdate},
			{key: "email", label: "Correo", value: &form.Email},
			{key: "password", label: "Contraseña", secret: true, value: &form.Password},
			{key: "confirm", label: "Confirma la contraseña", secret: true, value: &form.Confirm},
		}, check)
		if err != nil {
			return a.leave(m, err)
		}

		if a.apply(m, a.register.Submit(ctx, form)) {
			return nil
		}
	}
}

func (a *App) forgotScreen(ctx context.Context, m *router.Mount) error {
	for {
		var form views.ForgotForm
		check := func() validation.Errors { return a.forgot.Validate(form) }
		if err := a.fill([]field{{key: "email", label: "Correo", value: &form.Email}}, check); err != nil {
			return a.leave(m, err)
		}

		if a.apply(m, a.forgot.Submit(ctx, form)) {
			return nil
		}
	}
}

func (a *App) resetScreen(ctx context.Context, m *router.Mount) error {
	for {
		var form views.ResetForm
		check := func() validation.Errors { return a.reset.Validate(form) }
		err := a.fill([]field{
			{key: "password", label: "Nueva contraseña", secret: true, value: &form.Password},
			{key: "confirm", label: "Confirma la contraseña", secret: true, value: &form.Confirm},
		}, check)
		if err != nil {
			return a.leave(m, err)
		}

		if a.apply(m, a.reset.Submit(ctx, m.Route.Param, form)) {
			return nil
		}
	}
}

func (a *App) printSnapshot(s views.Snapshot) {
	fmt.Fprintln(a.out, titleStyle.Render("Datos actuales"))
	fmt.Fprintf(a.out, "  Nombres:   %s\n  Apellidos: %s\n  Edad:      %s\n  Correo:    %s\n\n",
		s.Username, s.Lastname, s.Age, s.Email)
}

func (a *App) profileScreen(ctx context.Context, m *router.Mount) error {
	current, err := a.profile.Current(ctx)
	if !m.Current() {
		return nil
	}
	if err != nil {
		printMessage(a.out, "No se pudieron cargar tus datos", true)
	} else {
		a.printSnapshot(current)
	}
	fmt.Fprintln(a.out, mutedStyle.Render("Escribe #/board para volver al tablero."))

	for {
		var form views.ProfileForm
		check := func() validation.Errors { return a.profile.Validate(form) }
		err := a.fill([]field{
			{key: "username", label: "Nombres", value: &form.Username},
			{key: "lastname", label: "Apellidos", value: &form.Lastname},
			{key: "age", label: "Edad", value: &form.Age},
			{key: "email", label: "Correo", value: &form.Email},
		}, check)
		if err != nil {
			return a.leave(m, err)
		}

		out := a.profile.Submit(ctx, form)
		if a.apply(m, out.Outcome) {
			return nil
		}
		if out.Current != nil {
			a.printSnapshot(*out.Current)
		}
	}
}

func (a *App) taskFields(form *views.TaskForm) []field {
	return []field{
		{key: "title", label: "Título", current: form.Title, value: &form.Title},
		{key: "detail", label: "Detalle", current: form.Detail, value: &form.Detail},
		{key: "date", label: "Fecha (AAAA-MM-DD)", current: form.Date, value: &form.Date},
		{key: "time", label: "Hora (HH:MM)", current: form.Time, value: &form.Time},
		{key: "status", label: "Estado (pendiente / en progreso / completada)", current: form.Status, value: &form.Status},
	}
}

func (a *App) taskNewScreen(ctx context.Context, m *router.Mount) error {
	fmt.Fprintln(a.out, mutedStyle.Render("Escribe #/board para cancelar."))
	for {
		form := views.TaskForm{Status: "pendiente"}
		check := func() validation.Errors { return a.taskNew.Validate(form) }
		if err := a.fill(a.taskFields(&form), check); err != nil {
			return a.leave(m, err)
		}
		if a.apply(m, a.taskNew.Submit(ctx, form)) {
			return nil
		}
	}
}

func (a *App) taskEditScreen(ctx context.Context, m *router.Mount) error {
	id := m.Route.Param
	loaded, out := a.taskEdit.Load(ctx, id)
	if !m.Current() {
		return nil
	}
	if out.Failed {
		a.apply(m, out)
		return nil
	}
	fmt.Fprintln(a.out, mutedStyle.Render("Escribe #/board para cancelar."))

	for {
		form := loaded
		check := func() validation.Errors { return a.taskEdit.Validate(form) }
		if err := a.fill(a.taskFields(&form), check); err != nil {
			return a.leave(m, err)
		}

		if a.apply(m, a.taskEdit.Submit(ctx, id, form)) {
			return nil
		}
	}
}

func (a *App) loadErrorScreen(ctx context.Context, m *router.Mount) error {
	_, err := a.prompt.Ask("Enter para reintentar, #/ruta para ir a otra vista o :q para salir", "")
	if err != nil {
		return a.leave(m, err)
	}
	m.Nav.Go(m.Route.Fragment())
	return nil
}

func (a *App) takeToast() string {
	t := a.pendingToast
	a.pendingToast = ""
	return t
}

func (a *App) boardScreen(ctx context.Context, m *router.Mount) error {
	model := newBoardModel(ctx, a.board, a.opts, a.takeToast())

	final, err := a.opts.RunBoard(ctx, model)
	if err != nil {
		return fmt.Errorf("board screen: %w", err)
	}

	bm, ok := final.(*boardModel)
	if !ok || !bm.next.Redirects() {
		m.Nav.Close()
		return nil
	}
	if bm.next.Redirect.View != router.ViewBoard {
		printToast(a.out, bm.next.Toast)
	}
	m.Go(bm.next.Redirect)
	return nil
}

func (a *App) runProgram(ctx context.Context, model tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(a.out)}
	if a.opts.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(model, opts...).Run()
}
