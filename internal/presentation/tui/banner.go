package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sessiontable banner with its version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	s1 := termenv.String(" ___ ___ ___ ___ _ ___  _  _ ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("/ __| __/ __/ __| |/ _ \\| \\| |").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("\\__ \\ _|\\__ \\__ \\ | (_) | .` |").Foreground(p.Color("#c084fc"))
	s4 := termenv.String("|___/___|___/___/_|\\___/|_|\\_| table").Foreground(p.Color("#e879f9"))
	v := termenv.String("v" + version).Faint()

	fmt.Fprintln(w)
	fmt.Fprintln(w, s1)
	fmt.Fprintln(w, s2)
	fmt.Fprintln(w, s3)
	fmt.Fprintln(w, s4, v)
	fmt.Fprintln(w)
}
