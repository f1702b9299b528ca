package views

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
)

// TaskForm is shared by the create and edit screens. Status accepts any
// known spelling ("pendiente", "en progreso", "done"...).
type TaskForm struct {
	Title  string `form:"title" validate:"required,max=50"`
	Detail string `form:"detail" validate:"max=500"`
	Date   string `form:"date" validate:"required,isodate"`
	Time   string `form:"time" validate:"required,clock"`
	Status string `form:"status" validate:"required,taskstatus"`
}

var taskMessages = validation.Messages{
	"title.required":  "El título es obligatorio",
	"title.max":       "El título admite máximo 50 caracteres",
	"detail":          "El detalle admite máximo 500 caracteres",
	"date.required":   "La fecha es obligatoria",
	"date.isodate":    "Usa el formato AAAA-MM-DD",
	"time.required":   "La hora es obligatoria",
	"time.clock":      "Usa el formato HH:MM",
	"status":          "Selecciona un estado",
	"status.required": "Selecciona un estado",
}

func (f TaskForm) trimmed() TaskForm {
	return TaskForm{
		Title:  strings.TrimSpace(f.Title),
		Detail: strings.TrimSpace(f.Detail),
		Date:   strings.TrimSpace(f.Date),
		Time:   strings.TrimSpace(f.Time),
		Status: strings.TrimSpace(f.Status),
	}
}

// Input is the canonical payload of a valid form.
func (f TaskForm) Input() models.TaskInput {
	f = f.trimmed()
	status, _ := models.LookupStatus(f.Status)
	return models.TaskInput{
		Title:  f.Title,
		Detail: f.Detail,
		Date:   f.Date,
		Time:   f.Time,
		Status: status,
	}
}

// FormFor fills a form with the stored values of task.
func FormFor(task models.Task) TaskForm {
	return TaskForm{
		Title:  task.Title,
		Detail: task.Detail,
		Date:   task.Date,
		Time:   task.Time,
		Status: string(task.Status),
	}
}

// CanSave reports whether the save control is enabled: it needs a title.
func (f TaskForm) CanSave() bool {
	return strings.TrimSpace(f.Title) != ""
}

func validateTask(v *validation.Validator, f TaskForm) validation.Errors {
	return v.Struct(f.trimmed(), taskMessages)
}

var toBoard = router.Route{View: router.ViewBoard}

type TaskNew struct {
	deps  Deps
	guard submitGuard
}

func NewTaskNew(deps Deps) *TaskNew {
	deps = deps.withDefaults()
	return &TaskNew{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *TaskNew) Busy() bool { return v.guard.Busy() }

func (v *TaskNew) Validate(f TaskForm) validation.Errors {
	return validateTask(v.deps.Validator, f)
}

// Submit creates the task, announces it on the bus and returns to the board.
func (v *TaskNew) Submit(ctx context.Context, f TaskForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}
	in := f.Input()

	var out Outcome
	ran := v.guard.run(func() {
		task, err := v.deps.Tasks.CreateTask(ctx, in)
		if err != nil {
			v.deps.Logger.Debug("create task failed", zap.Error(err))
			if api.IsStatus(err, http.StatusUnauthorized) {
				out = Outcome{Failed: true, Toast: "Debes iniciar sesión para crear tareas"}
				return
			}
			out = Outcome{Failed: true, Message: "Error al crear tarea: " + describe(err, wording{})}
			return
		}
		if v.deps.Bus != nil {
			v.deps.Bus.Publish(events.Upserted(*task))
		}
		out = Outcome{Toast: "Tarea creada correctamente", Redirect: toBoard}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}

type TaskEdit struct {
	deps  Deps
	guard submitGuard
}

func NewTaskEdit(deps Deps) *TaskEdit {
	deps = deps.withDefaults()
	return &TaskEdit{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *TaskEdit) Busy() bool { return v.guard.Busy() }

func (v *TaskEdit) Validate(f TaskForm) validation.Errors {
	return validateTask(v.deps.Validator, f)
}

// Load fetches the task being edited. On failure the outcome carries the toast
// and sends the user back to the board.
func (v *TaskEdit) Load(ctx context.Context, id string) (TaskForm, Outcome) {
	task, err := v.deps.Tasks.GetTask(ctx, id)
	if err != nil {
		v.deps.Logger.Debug("load task failed", zap.String("task_id", id), zap.Error(err))
		return TaskForm{}, Outcome{Failed: true, Toast: "Error al cargar la tarea", Redirect: toBoard}
	}
	return FormFor(*task), Outcome{}
}

// Submit updates the task, announces it on the bus and returns to the board.
func (v *TaskEdit) Submit(ctx context.Context, id string, f TaskForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}
	in := f.Input()

	var out Outcome
	ran := v.guard.run(func() {
		task, err := v.deps.Tasks.UpdateTask(ctx, id, in)
		if err != nil {
			v.deps.Logger.Debug("update task failed", zap.String("task_id", id), zap.Error(err))
			out = Outcome{Failed: true, Message: "Error al actualizar: " + describe(err, wording{fallback: "desconocido"})}
			return
		}
		if v.deps.Bus != nil {
			v.deps.Bus.Publish(events.Upserted(*task))
		}
		out = Outcome{Toast: "Tarea actualizada correctamente", Redirect: toBoard}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}
