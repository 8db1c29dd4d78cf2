// Package xterm colors terminal output.
package xterm

import "github.com/charmbracelet/lipgloss"

// Color paints a piece of text.
type Color interface {
	S(text string) string
}

type ansi struct{ style lipgloss.Style }

func bold(code string) ansi {
	return ansi{lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(code))}
}

func (a ansi) S(text string) string { return a.style.Render(text) }

type plain struct{}

func (plain) S(text string) string { return text }

// NoColor leaves text unchanged.
var NoColor Color = plain{}

// Warn marks stderr and errors.
var Warn Color = bold("1")

// Palette cycles through its colors.
type Palette []Color

func (p Palette) Choose(i int) Color {
	return p[i%len(p)]
}

// BasicColors tags worker output, one color per worker.
var BasicColors = Palette{bold("2"), bold("4"), bold("3"), bold("6"), bold("5")}
