// Package ui is the terminal front-end: line prompts for the forms, toasts,
// and the interactive board screen.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	toastStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	columnStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
)

var statusColors = map[models.Status]lipgloss.Color{
	models.StatusPending:    lipgloss.Color("214"),
	models.StatusInProgress: lipgloss.Color("39"),
	models.StatusDone:       lipgloss.Color("42"),
}

func statusStyle(s models.Status) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(statusColors[s])
}

func printToast(w io.Writer, text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(w, toastStyle.Render(text))
}

func printFieldError(w io.Writer, text string) {
	fmt.Fprintln(w, errorStyle.Render("  ✗ "+text))
}

// printMessage shows a form-level message, red when failed.
func printMessage(w io.Writer, text string, failed bool) {
	if text == "" {
		return
	}
	if failed {
		fmt.Fprintln(w, errorStyle.Render(text))
		return
	}
	fmt.Fprintln(w, successStyle.Render(text))
}

// SpinnerLine returns an indicator callback that draws "Cargando…" on the
// current line and erases it when hidden.
func SpinnerLine(w io.Writer) func(visible bool) {
	return func(visible bool) {
		if visible {
			fmt.Fprint(w, "\r"+mutedStyle.Render("⏳ Cargando…"))
			return
		}
		fmt.Fprint(w, "\r\033[K")
	}
}

// IsTTY reports whether w is a character device.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
