package views

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/board"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
)

// Board drives the board screen over the reconciliation store.
type Board struct {
	deps        Deps
	store       *board.Board
	unsubscribe func()
}

func NewBoard(deps Deps) *Board {
	deps = deps.withDefaults()
	return &Board{deps: deps, store: board.New(deps.Tasks, deps.Logger)}
}

func (v *Board) Store() *board.Board {
	return v.store
}

// Mount subscribes to task changes and loads the list. It is safe to call
// again on the next navigation; the previous subscription is replaced.
func (v *Board) Mount(ctx context.Context) Outcome {
	v.Unmount()
	if v.deps.Bus != nil {
		v.unsubscribe = v.store.Mount(v.deps.Bus)
	}
	return v.Reload(ctx)
}

func (v *Board) Unmount() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

// Reload refetches the list. A superseded reload reports nothing.
func (v *Board) Reload(ctx context.Context) Outcome {
	err := v.store.Load(ctx)
	switch {
	case err == nil:
		return Outcome{}
	case errors.Is(err, board.ErrStaleLoad):
		return Outcome{}
	}
	v.deps.Logger.Debug("board load failed", zap.Error(err))
	msg := describe(err, wording{fallback: "Error al cargar notas"})
	return Outcome{Failed: true, Message: msg, Toast: msg}
}

func (v *Board) Search(query string) {
	v.store.SetFilter(query)
}

// Delete removes a task the user already confirmed. The board stays loaded
// whatever the result.
func (v *Board) Delete(ctx context.Context, id string) Outcome {
	if err := v.store.Delete(ctx, id); err != nil {
		return Outcome{Failed: true, Toast: describe(err, wording{fallback: "Error al eliminar"})}
	}
	return Outcome{Toast: "Nota eliminada 🗑️"}
}

func (v *Board) Edit(id string) Outcome {
	return Outcome{Redirect: router.Route{View: router.ViewTaskEdit, Param: id}}
}

func (v *Board) Create() Outcome {
	return Outcome{Redirect: router.Route{View: router.ViewTaskNew}}
}

func (v *Board) Profile() Outcome {
	return Outcome{Redirect: router.Route{View: router.ViewUpdate}}
}

// Logout clears the session and returns to login.
func (v *Board) Logout() Outcome {
	v.Unmount()
	v.store.Reset()
	if err := v.deps.Users.Logout(); err != nil {
		v.deps.Logger.Warn("failed to clear session", zap.Error(err))
		return Outcome{Failed: true, Toast: "No se pudo cerrar la sesión"}
	}
	return Outcome{Toast: "Sesión cerrada 👋", Redirect: router.Route{View: router.ViewLogin}}
}
