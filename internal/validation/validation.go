// Package validation runs struct-tag rules over form view-models and maps
// failures to per-field messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Errors maps a field name (its `form` tag) to its message. A field with an
// entry is invalid.
type Errors map[string]string

func (e Errors) Invalid(field string) bool {
	_, ok := e[field]
	return ok
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Messages maps "field.rule" (or just "field") to the text shown for it.
type Messages map[string]string

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New registers the custom rules: simpleemail, password, minage, isodate,
// clock, intrange (e.g. intrange=13:120, for numeric text) and taskstatus.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"simpleemail": func(fl validator.FieldLevel) bool { return ValidEmail(fl.Field().String()) },
		"password":    func(fl validator.FieldLevel) bool { return StrongPassword(fl.Field().String()) },
		"isodate":     func(fl validator.FieldLevel) bool { return validLayout("2006-01-02", fl.Field().String()) },
		"clock":       func(fl validator.FieldLevel) bool { return validLayout("15:04", fl.Field().String()) },
		"minage":      v.minAge,
		"intrange":    intRange,
		"taskstatus": func(fl validator.FieldLevel) bool {
			_, ok := models.LookupStatus(fl.Field().String())
			return ok
		},
	}
	for tag, fn := range rules {
		// Only fails on a programming error in the tag name.
		if err := v.validate.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}

	return v
}

// WithClock fixes "now" for age checks.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Struct validates s and returns one message per failing field, using the
// first failing rule of each field.
func (v *Validator) Struct(s interface{}, messages Messages) Errors {
	errs := Errors{}

	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_"] = err.Error()
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = messageFor(messages, field, fe.Tag())
	}
	return errs
}

func messageFor(messages Messages, field, tag string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := messages[field]; ok {
		return msg
	}
	return "Valor inválido"
}

func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// StrongPassword requires at least 8 characters with an upper case letter, a
// lower case letter and a digit.
func StrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// AgeOn is the age in completed years at now of someone born on birth.
func AgeOn(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func (v *Validator) minAge(fl validator.FieldLevel) bool {
	years, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	birth, err := time.Parse("2006-01-02", fl.Field().String())
	if err != nil {
		return false
	}
	now := v.now()
	if birth.After(now) {
		return false
	}
	return AgeOn(birth, now) >= years
}

func intRange(fl validator.FieldLevel) bool {
	lo, hi, ok := strings.Cut(fl.Param(), ":")
	if !ok {
		return false
	}
	low, err1 := strconv.Atoi(lo)
	high, err2 := strconv.Atoi(hi)
	n, err3 := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return n >= low && n <= high
}

func validLayout(layout, s string) bool {
	_, err := time.Parse(layout, s)
	return err == nil
}
