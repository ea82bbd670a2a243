// Package ui formats command-line output for the faithdive CLI.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelSuccess
)

// Message is a headline with optional detail lines and follow-up hints
type Message struct {
	Level   Level
	Context string
	Text    string
	Details []string
	Hints   []string
	NoColor bool
}

// Format renders m.
//
//	❌ MIGRATION FAILED: no such table: weekly_studies
//	   Run pending migrations first.
//
//	   → faithdive migrate up
func (m Message) Format() string {
	var b strings.Builder

	var head *color.Color
	var symbol string
	switch m.Level {
	case LevelError:
		head, symbol = color.New(color.FgRed, color.Bold), "❌"
	case LevelWarning:
		head, symbol = color.New(color.FgYellow, color.Bold), "⚠️"
	case LevelInfo:
		head, symbol = color.New(color.FgCyan, color.Bold), "ℹ️"
	default:
		head, symbol = color.New(color.FgGreen, color.Bold), "✓"
	}
	hint := color.New(color.FgCyan)
	if m.NoColor {
		head.DisableColor()
		hint.DisableColor()
	}

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Text)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Text)
	}
	for _, d := range m.Details {
		fmt.Fprintf(&b, "   %s\n", d)
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write prints m to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// Success prints a one-line success message
func Success(w io.Writer, noColor bool, format string, args ...any) {
	Message{Level: LevelSuccess, Text: fmt.Sprintf(format, args...), NoColor: noColor}.Write(w)
}

// Warn prints a one-line warning
func Warn(w io.Writer, noColor bool, format string, args ...any) {
	Message{Level: LevelWarning, Text: fmt.Sprintf(format, args...), NoColor: noColor}.Write(w)
}

// Info prints a one-line informational message
func Info(w io.Writer, noColor bool, format string, args ...any) {
	Message{Level: LevelInfo, Text: fmt.Sprintf(format, args...), NoColor: noColor}.Write(w)
}
