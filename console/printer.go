// Package console is the operator-facing surface: coloured status lines, the
// option menu, free-text prompts and the pause between actions.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	greenColor = lipgloss.AdaptiveColor{Light: "#116620", Dark: "#50FA7B"}
	redColor   = lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"}
	cyanColor  = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#8BE9FD"}
	dimColor   = lipgloss.AdaptiveColor{Light: "#777777", Dark: "#6272A4"}

	successStyle   = lipgloss.NewStyle().Foreground(greenColor)
	errorStyle     = lipgloss.NewStyle().Foreground(redColor)
	highlightStyle = lipgloss.NewStyle().Foreground(cyanColor)
)

const clearScreen = "\x1b[H\x1b[2J"

// Printer writes prefixed status lines.
type Printer struct {
	w        io.Writer
	useColor bool
}

// NewPrinter returns a Printer writing to w with colour enabled.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, useColor: true}
}

// SetColor enables or disables colour and screen clearing.
func (p *Printer) SetColor(enabled bool) {
	p.useColor = enabled
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.useColor {
		return s
	}
	return style.Render(s)
}

// Success prints a "[+]" line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(successStyle, "[+]"), fmt.Sprintf(format, args...))
}

// Error prints a "[-]" line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(errorStyle, "[-]"), fmt.Sprintf(format, args...))
}

// Notice prints a "[!]" line.
func (p *Printer) Notice(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(errorStyle, "[!]"), fmt.Sprintf(format, args...))
}

// Highlight returns s in the value colour.
func (p *Printer) Highlight(s string) string {
	return p.render(highlightStyle, s)
}

// Println writes s unprefixed.
func (p *Printer) Println(s string) {
	fmt.Fprintln(p.w, s)
}

// Clear wipes the terminal. It does nothing when colour is off.
func (p *Printer) Clear() {
	if p.useColor {
		fmt.Fprint(p.w, clearScreen)
	}
}
