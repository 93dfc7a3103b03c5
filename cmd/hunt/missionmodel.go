package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/primehuntdev/primehunt/internal/hostconfig"
	"github.com/primehuntdev/primehunt/internal/status"
	"github.com/primehuntdev/primehunt/internal/tunnel"
)

// missionData holds everything one dashboard frame displays.
type missionData struct {
	hostName string
	endpoint string
	webURL   string

	remaining time.Duration
	status    status.RemoteStatus
	tunnel    tunnel.State
	respawns  int
}

// frameMsg carries one mission tick into the dashboard.
type frameMsg struct {
	remaining time.Duration
	status    status.RemoteStatus
	tunnel    tunnel.State
	respawns  int
}

// missionDoneMsg signals that the loop has finalized and the dashboard can
// close.
type missionDoneMsg struct{}

// missionModel is the Bubble Tea model for the mission dashboard. It is
// passive: all data arrives as frameMsg from the mission loop.
type missionModel struct {
	data     missionData
	width    int
	quitting bool
}

func newMissionModel(hostName string, cfg *hostconfig.HostConfig, runtime time.Duration) missionModel {
	return missionModel{
		data: missionData{
			hostName:  hostName,
			endpoint:  cfg.Addr(),
			webURL:    localWebURL(cfg),
			remaining: runtime,
			status:    status.Sentinel(),
		},
		width: 80,
	}
}

func localWebURL(cfg *hostconfig.HostConfig) string {
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.LocalPort)
}

func (m missionModel) Init() tea.Cmd {
	return nil
}

func (m missionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case frameMsg:
		m.data.remaining = msg.remaining
		m.data.status = msg.status
		m.data.tunnel = msg.tunnel
		m.data.respawns = msg.respawns
		return m, nil

	case missionDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m missionModel) View() string {
	if m.quitting {
		return ""
	}
	return renderMission(m.data, m.width)
}
