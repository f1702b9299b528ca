package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrQuit is returned by prompts when the user asks to leave the app.
var ErrQuit = errors.New("ui: quit")

// Navigate is returned by prompts when the user typed a fragment such as
// "#/register" instead of a value.
type Navigate struct {
	Fragment string
}

func (n *Navigate) Error() string {
	return "navigate to " + n.Fragment
}

// Prompter reads form input line by line. Secrets are read without echo when
// the input is a terminal.
type Prompter struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

func (p *Prompter) Out() io.Writer {
	return p.out
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrQuit
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// intercept turns navigation and quit commands into errors.
func intercept(value string) error {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == ":q":
		return ErrQuit
	case strings.HasPrefix(trimmed, "#/"):
		return &Navigate{Fragment: trimmed}
	}
	return nil
}

// Ask prints label and reads a line. When current is set it is shown and an
// empty answer keeps it.
func (p *Prompter) Ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if err := intercept(line); err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == "" && current != "" {
		return current, nil
	}
	return line, nil
}

// Secret reads a value without echo on terminals.
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	var (
		line string
		err  error
	)
	if p.readSecret != nil {
		line, err = p.readSecret()
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	} else {
		line, err = p.readLine()
		if err != nil {
			return "", err
		}
	}
	if err := intercept(line); err != nil {
		return "", err
	}
	return line, nil
}

// Confirm asks a yes/no question; only "s", "si", "sí", "y" and "yes" count
// as yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s (s/N): ", question)

	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}
