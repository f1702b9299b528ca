package views

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
)

type LoginForm struct {
	Email    string `form:"email" validate:"required,simpleemail"`
	Password string `form:"password" validate:"required"`
	Terms    bool   `form:"terms" validate:"required"`
}

var loginMessages = validation.Messages{
	"email.required":    "Debes ingresar un correo",
	"email.simpleemail": "Ingresa un correo válido",
	"password":          "Debes ingresar tu contraseña",
	"terms":             "Debes aceptar los términos y condiciones",
}

type Login struct {
	deps  Deps
	guard submitGuard
}

func NewLogin(deps Deps) *Login {
	deps = deps.withDefaults()
	return &Login{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *Login) Busy() bool { return v.guard.Busy() }

func (v *Login) Validate(f LoginForm) validation.Errors {
	f.Email = strings.TrimSpace(f.Email)
	f.Password = strings.TrimSpace(f.Password)
	return v.deps.Validator.Struct(f, loginMessages)
}

// Submit authenticates. The session stores the token only on success.
func (v *Login) Submit(ctx context.Context, f LoginForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}

	var out Outcome
	ran := v.guard.run(func() {
		_, err := v.deps.Users.Login(ctx, models.Credentials{
			Email:    strings.TrimSpace(f.Email),
			Password: strings.TrimSpace(f.Password),
		})
		if err != nil {
			v.deps.Logger.Debug("login failed", zap.Error(err))
			out = Outcome{Failed: true, Message: describe(err, wording{
				auth:     "Correo o contraseña inválidos",
				fallback: "Error al iniciar sesión",
			})}
			return
		}
		out = Outcome{Toast: "Bienvenido 👋", Redirect: router.Route{View: router.ViewBoard}}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}

type RegisterForm struct {
	Username  string `form:"username" validate:"required"`
	Lastname  string `form:"lastname" validate:"required"`
	Birthdate string `form:"birthdate" validate:"required,isodate,minage=13"`
	Email     string `form:"email" validate:"required,simpleemail"`
	Password  string `form:"password" validate:"password"`
	Confirm   string `form:"confirm" validate:"eqfield=Password"`
}

var registerMessages = validation.Messages{
	"username":           "Debes ingresar tus nombres",
	"lastname":           "Debes ingresar tus apellidos",
	"birthdate.required": "Selecciona tu fecha de nacimiento",
	"birthdate.isodate":  "Usa el formato AAAA-MM-DD",
	"birthdate.minage":   "Debes tener al menos 13 años",
	"email.required":     "Debes ingresar un correo",
	"email.simpleemail":  "Ingresa un correo válido",
	"password":           "La contraseña debe tener al menos 8 caracteres, una mayúscula, una minúscula y un número",
	"confirm":            "Las contraseñas no coinciden",
}

type Register struct {
	deps  Deps
	guard submitGuard
}

func NewRegister(deps Deps) *Register {
	deps = deps.withDefaults()
	return &Register{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *Register) Busy() bool { return v.guard.Busy() }

func (v *Register) Validate(f RegisterForm) validation.Errors {
	return v.deps.Validator.Struct(trimRegister(f), registerMessages)
}

func trimRegister(f RegisterForm) RegisterForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Lastname = strings.TrimSpace(f.Lastname)
	f.Birthdate = strings.TrimSpace(f.Birthdate)
	f.Email = strings.TrimSpace(f.Email)
	return f
}

func (v *Register) Submit(ctx context.Context, f RegisterForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}
	f = trimRegister(f)

	var out Outcome
	ran := v.guard.run(func() {
		_, err := v.deps.Users.Register(ctx, models.Registration{
			Username:  f.Username,
			Lastname:  f.Lastname,
			Birthdate: f.Birthdate,
			Email:     f.Email,
			Password:  f.Password,
		})
		if err != nil {
			out = Outcome{Failed: true, Message: describe(err, wording{fallback: "Error al registrar"})}
			return
		}
		out = Outcome{Toast: "Cuenta creada con éxito 🎉", Redirect: router.Route{View: router.ViewLogin}}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}

type ForgotForm struct {
	Email string `form:"email" validate:"required,simpleemail"`
}

var forgotMessages = validation.Messages{
	"email.required":    "Debes ingresar un correo",
	"email.simpleemail": "Ingresa un correo válido",
}

type Forgot struct {
	deps  Deps
	guard submitGuard
}

func NewForgot(deps Deps) *Forgot {
	deps = deps.withDefaults()
	return &Forgot{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *Forgot) Busy() bool { return v.guard.Busy() }

func (v *Forgot) Validate(f ForgotForm) validation.Errors {
	f.Email = strings.TrimSpace(f.Email)
	return v.deps.Validator.Struct(f, forgotMessages)
}

// Submit requests the reset email and returns to login.
func (v *Forgot) Submit(ctx context.Context, f ForgotForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}

	var out Outcome
	ran := v.guard.run(func() {
		msg, err := v.deps.Passwords.RequestPasswordReset(ctx, strings.TrimSpace(f.Email))
		if err != nil {
			out = Outcome{Failed: true, Message: "Error: " + describe(err, wording{})}
			return
		}
		out = Outcome{
			Message:  msg,
			Toast:    "Se ha enviado un correo de recuperación",
			Redirect: router.Route{View: router.ViewLogin},
		}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}

type ResetForm struct {
	Password string `form:"password" validate:"password"`
	Confirm  string `form:"confirm" validate:"eqfield=Password"`
}

var resetMessages = validation.Messages{
	"password": registerMessages["password"],
	"confirm":  "Las contraseñas no coinciden",
}

type Reset struct {
	deps  Deps
	guard submitGuard
}

func NewReset(deps Deps) *Reset {
	deps = deps.withDefaults()
	return &Reset{deps: deps, guard: submitGuard{spinner: deps.Spinner}}
}

func (v *Reset) Busy() bool { return v.guard.Busy() }

func (v *Reset) Validate(f ResetForm) validation.Errors {
	return v.deps.Validator.Struct(f, resetMessages)
}

// Submit sets the new password for the reset token carried by the route.
func (v *Reset) Submit(ctx context.Context, token string, f ResetForm) Outcome {
	if errs := v.Validate(f); !errs.Empty() {
		return invalid(errs)
	}

	var out Outcome
	ran := v.guard.run(func() {
		msg, err := v.deps.Passwords.ResetPassword(ctx, token, f.Password)
		if err != nil {
			out = Outcome{Failed: true, Message: describe(err, wording{fallback: "Ocurrió un error"})}
			return
		}
		if msg == "" {
			msg = "Contraseña actualizada"
		}
		out = Outcome{Message: msg, Toast: msg, Redirect: router.Route{View: router.ViewLogin}}
	})
	if !ran {
		return Outcome{Busy: true}
	}
	return out
}
