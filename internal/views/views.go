// Package views holds one controller per screen. Controllers validate typed
// form models, call the services and describe what the screen should do next
// as an Outcome; they know nothing about the terminal.
package views

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/loading"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/services"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
)

// Deps are shared by every controller. Spinner and Logger may be nil.
type Deps struct {
	Users     *services.UserService
	Tasks     *services.TaskService
	Passwords *services.PasswordService
	Bus       *events.Bus
	Validator *validation.Validator
	Spinner   *loading.Indicator
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Validator == nil {
		d.Validator = validation.New().WithClock(d.Now)
	}
	return d
}

// Outcome tells the screen what to show after a submit.
type Outcome struct {
	// Fields holds per-field errors; when non-empty nothing was sent.
	Fields validation.Errors
	// Message is the inline form-level message; Failed marks it as an error.
	Message string
	Failed  bool
	Toast   string
	// Redirect, when its View is set, is where to navigate next.
	Redirect router.Route
	// Busy means a previous submit is still running; nothing was done.
	Busy bool
}

func (o Outcome) Invalid() bool {
	return len(o.Fields) > 0
}

func (o Outcome) Redirects() bool {
	return o.Redirect.View != ""
}

func invalid(errs validation.Errors) Outcome {
	return Outcome{Fields: errs, Failed: true}
}

// submitGuard marks a submit control busy and drives the spinner while a
// request runs.
type submitGuard struct {
	mu      sync.Mutex
	busy    bool
	spinner *loading.Indicator
}

func (g *submitGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// run calls fn unless a previous call is still running, in which case it
// reports false.
func (g *submitGuard) run(fn func()) bool {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return false
	}
	g.busy = true
	g.mu.Unlock()

	if g.spinner != nil {
		g.spinner.Start()
	}
	defer func() {
		if g.spinner != nil {
			g.spinner.Stop()
		}
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()

	fn()
	return true
}

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAuth
	KindConflict
	KindServer
	KindNetwork
)

// Classify buckets a service error.
func Classify(err error) ErrorKind {
	if api.IsNetwork(err) {
		return KindNetwork
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return KindOther
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized,
		apiErr.Status == http.StatusLocked,
		apiErr.Status == http.StatusTooManyRequests:
		return KindAuth
	case apiErr.Status == http.StatusConflict:
		return KindConflict
	case apiErr.Status >= 500:
		return KindServer
	}
	return KindOther
}

const (
	msgNetwork  = "No se pudo conectar con el servidor. Revisa tu conexión."
	msgServer   = "Error del servidor. Intenta de nuevo más tarde."
	msgConflict = "Este correo ya está registrado"
	msgLocked   = "Cuenta bloqueada temporalmente. Intenta más tarde."
	msgTooMany  = "Demasiados intentos. Espera un momento e intenta de nuevo."
	msgUnknown  = "Ocurrió un error inesperado"
)

// wording overrides the generic text of a bucket for one screen.
type wording struct {
	auth     string
	conflict string
	fallback string
}

// describe turns err into user-facing text.
func describe(err error, c wording) string {
	switch Classify(err) {
	case KindNetwork:
		return msgNetwork
	case KindServer:
		return msgServer
	case KindConflict:
		if c.conflict != "" {
			return c.conflict
		}
		return msgConflict
	case KindAuth:
		switch {
		case api.IsStatus(err, http.StatusLocked):
			return msgLocked
		case api.IsStatus(err, http.StatusTooManyRequests):
			return msgTooMany
		case c.auth != "":
			return c.auth
		}
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	if c.fallback != "" {
		return c.fallback
	}
	return msgUnknown
}
