package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Base styles - will be initialized based on terminal support
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style
	infoStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	pathStyle    lipgloss.Style
)

func init() {
	initStyles()
}

func initStyles() {
	if !IsTerminal() {
		successStyle = lipgloss.NewStyle()
		errorStyle = lipgloss.NewStyle()
		warningStyle = lipgloss.NewStyle()
		infoStyle = lipgloss.NewStyle()
		dimStyle = lipgloss.NewStyle()
		pathStyle = lipgloss.NewStyle()
		return
	}

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
}

func Success(text string) string { return successStyle.Render(text) }
func Error(text string) string   { return errorStyle.Render(text) }
func Warning(text string) string { return warningStyle.Render(text) }
func Info(text string) string    { return infoStyle.Render(text) }
func Dim(text string) string     { return dimStyle.Render(text) }
func Path(text string) string    { return pathStyle.Render(text) }

// Status colors an outcome or run status word.
func Status(status string) string {
	switch status {
	case "success", "completed", "move", "copy":
		return Success(status)
	case "failed", "fail":
		return Error(status)
	case "skipped", "skip", "cancelled":
		return Warning(status)
	case "planned", "dry-run", "running":
		return Info(status)
	default:
		return Dim(status)
	}
}

// SuccessMsg prints a success message
func SuccessMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Success("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg prints an error message
func ErrorMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Error("✗")+" "+fmt.Sprintf(format, args...))
}

// WarningMsg prints a warning message
func WarningMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Warning("⚠")+" "+fmt.Sprintf(format, args...))
}

// InfoMsg prints an info message
func InfoMsg(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Info("ℹ")+" "+fmt.Sprintf(format, args...))
}
