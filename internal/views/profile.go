package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
)

// ProfileForm holds the optional new values; blank fields are left as they
// are.
type ProfileForm struct {
	Username string `form:"username"`
	Lastname string `form:"lastname"`
	Age      string `form:"age" validate:"omitempty,intrange=13:120"`
	Email    string `form:"email" validate:"omitempty,simpleemail"`
}

var profileMessages = validation.Messages{
	"age":   "La edad debe estar entre 13 y 120",
	"email": "Ingresa un correo válido",
}

const msgNothingToUpdate = "Ingresa al menos un dato para actualizar"

func (f ProfileForm) trimmed() ProfileForm {
	return ProfileForm{
		Username: strings.TrimSpace(f.Username),
		Lastname: strings.TrimSpace(f.Lastname),
		Age:      strings.TrimSpace(f.Age),
		Email:    strings.TrimSpace(f.Email),
	}
}

// Snapshot is the current profile as the screen shows it.
type Snapshot struct {
	Username string
	Lastname string
	Age      string
	Email    string
}

type Profile struct {
	deps  Deps
	guard submitGuard
}

func NewProfile(deps Deps) *Profile {
	deps = deps.withDefaults()
	return &Profile{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *Profile) Busy() bool { return v.guard.Busy() }

// Current fetches the profile shown next to the inputs.
func (v *Profile) Current(ctx context.Context) (Snapshot, error) {
	user, err := v.deps.Users.Profile(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return v.snapshot(user), nil
}

func (v *Profile) snapshot(u *models.User) Snapshot {
	s := Snapshot{Username: u.Username, Lastname: u.Lastname, Email: u.Email}
	if age, ok := u.Age(v.deps.Now()); ok {
		s.Age = strconv.Itoa(age)
	}
	return s
}

func (v *Profile) Validate(f ProfileForm) validation.Errors {
	return v.deps.Validator.Struct(f.trimmed(), profileMessages)
}

// Update builds the request body: only filled fields, with the age sent as a
// January 1st birthdate.
func (v *Profile) Update(f ProfileForm) models.ProfileUpdate {
	f = f.trimmed()
	u := models.ProfileUpdate{
		Username: f.Username,
		Lastname: f.Lastname,
		Email:    f.Email,
	}
	if age, err := strconv.Atoi(f.Age); err == nil {
		u.Birthdate = fmt.Sprintf("%04d-01-01", v.deps.Now().Year()-age)
	}
	return u
}

// ProfileOutcome adds the refreshed profile to the outcome. Clear asks the
// screen to empty its inputs.
type ProfileOutcome struct {
	Outcome
	Current *Snapshot
	Clear   bool
}

func (v *Profile) Submit(ctx context.Context, f ProfileForm) ProfileOutcome {
	if errs := v.Validate(f); !errs.Empty() {
		return ProfileOutcome{Outcome: invalid(errs)}
	}
	update := v.Update(f)
	if update.Empty() {
		return ProfileOutcome{Outcome: Outcome{Failed: true, Message: msgNothingToUpdate}}
	}

	var out ProfileOutcome
	ran := v.guard.run(func() {
		if _, err := v.deps.Users.UpdateProfile(ctx, update); err != nil {
			out.Outcome = Outcome{Failed: true, Message: describe(err, wording{fallback: "Error al actualizar los datos ❌"})}
			return
		}
		out.Outcome = Outcome{
			Message: "Datos actualizados correctamente ✅",
			Toast:   "Perfil actualizado con éxito",
		}
		out.Clear = true

		current, err := v.Current(ctx)
		if err != nil {
			v.deps.Logger.Debug("profile reload failed", zap.Error(err))
			return
		}
		out.Current = &current
	})
	if !ran {
		return ProfileOutcome{Outcome: Outcome{Busy: true}}
	}
	return out
}
