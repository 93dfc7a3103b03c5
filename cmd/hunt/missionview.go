package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/primehuntdev/primehunt/internal/status"
	"github.com/primehuntdev/primehunt/internal/tunnel"
	"github.com/primehuntdev/primehunt/internal/ui"
)

var (
	bannerStyle = lipgloss.NewStyle().Foreground(ui.Green).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(ui.Subtle)
)

// renderMission renders one full dashboard frame.
func renderMission(d missionData, width int) string {
	if width > ui.MaxWidth {
		width = ui.MaxWidth
	}
	contentWidth := width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, bannerStyle.Render("PRIME HUNT MISSION CONTROL"))
	sections = append(sections, renderMissionSection(d, contentWidth))
	sections = append(sections, renderSolverSection(d, contentWidth))
	sections = append(sections, hintStyle.Render("q: end mission and retrieve results · refreshes every 5s"))

	return strings.Join(sections, "\n")
}

func renderMissionSection(d missionData, width int) string {
	var lines []string

	link := ui.Dot(ui.StateLost) + " down"
	switch d.tunnel {
	case tunnel.StateRunning:
		link = ui.Dot(ui.StateLive) + " up"
	case tunnel.StateStarting:
		link = ui.Dot(ui.StateWaiting) + " starting"
	}

	lines = append(lines, ui.Row("HOST", d.hostName, "TUNNEL", link, width))
	lines = append(lines, ui.Row("ENDPOINT", d.endpoint, "WEB UI", d.webURL, width))
	lines = append(lines, ui.Row("T-MINUS", ui.Countdown(d.remaining), "RESPAWNS", fmt.Sprint(d.respawns), width))

	return ui.Section("Mission", strings.Join(lines, "\n"), width)
}

func renderSolverSection(d missionData, width int) string {
	dot := ui.Dot(ui.StateWaiting)
	if !d.status.IsSentinel() {
		dot = ui.Dot(ui.StateLive)
	}

	lines := []string{
		ui.Metric("GENERATION", d.status.Generation),
		ui.Metric("LAST SSE", d.status.LastSSE),
		ui.Metric("STABILITY", d.status.LastHNorm),
		ui.Metric("STATUS", d.status.Phase) + " " + dot,
	}

	return ui.Section("Solver", strings.Join(lines, "\n"), width)
}

// plainStatusLine is a single-line rendering of a snapshot, shared by the
// one-shot status command.
func plainStatusLine(s status.RemoteStatus) string {
	return fmt.Sprintf("gen=%s sse=%s h_norm=%s status=%s",
		s.Generation, s.LastSSE, s.LastHNorm, s.Phase)
}
