package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes command output. On a terminal it pretty-prints payloads and colours
// status lines; otherwise it writes plain JSON and text so output stays pipeable.
type Printer struct {
	out    io.Writer
	styled bool
	render func(string) (string, error)
}

// NewPrinter creates a Printer for w. plain forces unstyled output.
func NewPrinter(w io.Writer, plain bool) *Printer {
	p := &Printer{out: w}
	if !plain && IsTerminal(w) {
		p.styled = true
		p.render = NewRenderer()
	}
	return p
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Styled reports whether output is decorated.
func (p *Printer) Styled() bool {
	return p.styled
}

// JSON writes v as indented JSON, highlighted when styled.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	if p.styled {
		out, err := p.render("```json\n" + string(data) + "\n```")
		if err == nil {
			_, err = io.WriteString(p.out, out)
			return err
		}
	}

	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// Line writes a plain line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success writes a green status line.
func (p *Printer) Success(format string, args ...any) {
	p.status("#22c55e", "✓", format, args...)
}

// Warn writes a yellow status line.
func (p *Printer) Warn(format string, args ...any) {
	p.status("#eab308", "!", format, args...)
}

func (p *Printer) status(color, mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !p.styled {
		fmt.Fprintln(p.out, msg)
		return
	}
	profile := termenv.ColorProfile()
	prefix := termenv.String(mark).Foreground(profile.Color(color)).Bold()
	fmt.Fprintln(p.out, prefix.String()+" "+strings.TrimSpace(msg))
}
