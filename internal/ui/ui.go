// Package ui holds the lipgloss styles and small render helpers shared by
// the hunt commands.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// MaxWidth is the maximum width for styled output.
const MaxWidth = 80

// Colors. The dashboard leans on the green/amber pair for its CRT look.
var (
	Green  = lipgloss.Color("2")
	Red    = lipgloss.Color("1")
	Amber  = lipgloss.Color("3")
	Cyan   = lipgloss.Color("6")
	Subtle = lipgloss.Color("8")
)

// DotState represents the state of a status dot.
type DotState int

const (
	StateLive    DotState = iota // green: live data flowing
	StateLost                    // red: connection lost
	StateWaiting                 // amber: connecting / not yet reporting
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1).
			MarginBottom(1)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Dot returns a colored ● for the given state.
func Dot(state DotState) string {
	switch state {
	case StateLive:
		return lipgloss.NewStyle().Foreground(Green).Render("●")
	case StateLost:
		return lipgloss.NewStyle().Foreground(Red).Render("●")
	case StateWaiting:
		return lipgloss.NewStyle().Foreground(Amber).Render("●")
	default:
		return "●"
	}
}

// Section renders content inside a bordered box with a bold title.
func Section(title, content string, width int) string {
	if width > MaxWidth {
		width = MaxWidth
	}
	contentWidth := max(width-4, 40)
	return sectionStyle.Width(contentWidth).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

// Metric renders one dashboard metric line: a fixed-width label and value.
func Metric(label, value string) string {
	return fmt.Sprintf("%-14s %s", label+":",
		lipgloss.NewStyle().Foreground(Green).Render(value))
}

// Countdown formats the remaining mission window as HH:MM:SS.
func Countdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// StepOK returns a green checkmark step line.
func StepOK(msg string) string {
	return lipgloss.NewStyle().Foreground(Green).Render("✔") + " " + msg
}

// StepFail returns a red cross step line.
func StepFail(msg string) string {
	return lipgloss.NewStyle().Foreground(Red).Render("✘") + " " + msg
}

// Warn returns an amber warning message (caller writes to stderr).
func Warn(msg string) string {
	return lipgloss.NewStyle().Foreground(Amber).Render("⚠") + " " + msg
}

// Error returns a red error message (caller writes to stderr).
func Error(msg string) string {
	return lipgloss.NewStyle().Foreground(Red).Render("✘") + " " + msg
}

// Row renders a two-column key-value row, with optional second pair.
func Row(k1, v1, k2, v2 string, width int) string {
	left := fmt.Sprintf("%-14s %s", k1+":", v1)
	if k2 == "" {
		return left
	}
	right := fmt.Sprintf("%s %s", k2+":", v2)
	gap := width/2 - len(left)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}
