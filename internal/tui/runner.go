// Package tui renders a sequential list of work steps with a spinner, used
// by the deploy command. Falls back to plain line output when stdout is not
// a terminal.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/primehuntdev/primehunt/internal/ui"
)

// Step defines one unit of work.
type Step struct {
	Title string
	Run   func(ctx context.Context, progress func(string)) error
	// NonFatal errors render as warnings and execution continues.
	NonFatal bool
}

type stepStatus int

const (
	statusPending stepStatus = iota
	statusRunning
	statusDone
	statusFailed
	statusWarned
)

type stepState struct {
	title   string
	status  stepStatus
	message string // latest progress text, shown while running and when done
	errMsg  string
}

type progressMsg struct{ text string }
type doneMsg struct{}
type failMsg struct{ err error }

type runner struct {
	title   string
	steps   []Step
	states  []stepState
	current int
	spinner spinner.Model
	err     error
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
}

func (m *runner) Init() tea.Cmd {
	if len(m.steps) == 0 {
		return tea.Quit
	}
	m.states[0].status = statusRunning
	return tea.Batch(m.spinner.Tick, m.runCurrent())
}

func (m *runner) runCurrent() tea.Cmd {
	step := m.steps[m.current]
	return func() tea.Msg {
		defer func() {
			if r := recover(); r != nil {
				m.program.Send(failMsg{err: fmt.Errorf("panic: %v", r)})
			}
		}()
		progress := func(text string) {
			m.program.Send(progressMsg{text: text})
		}
		if err := step.Run(m.ctx, progress); err != nil {
			return failMsg{err: err}
		}
		return doneMsg{}
	}
}

func (m *runner) advance() (tea.Model, tea.Cmd) {
	m.current++
	if m.current >= len(m.steps) {
		return m, tea.Quit
	}
	m.states[m.current].status = statusRunning
	return m, m.runCurrent()
}

func (m *runner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.err = context.Canceled
			return m, tea.Quit
		}

	case progressMsg:
		if m.current < len(m.states) {
			m.states[m.current].message = msg.text
		}
		return m, nil

	case doneMsg:
		m.states[m.current].status = statusDone
		return m.advance()

	case failMsg:
		st := &m.states[m.current]
		st.errMsg = msg.err.Error()
		if m.steps[m.current].NonFatal {
			st.status = statusWarned
			return m.advance()
		}
		st.status = statusFailed
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

var (
	runnerTitleStyle = lipgloss.NewStyle().Bold(true)
	counterStyle     = lipgloss.NewStyle().Foreground(ui.Subtle)
	pendingStyle     = lipgloss.NewStyle().Foreground(ui.Subtle)
	errorStyle       = lipgloss.NewStyle().Foreground(ui.Red)
	warnStyle        = lipgloss.NewStyle().Foreground(ui.Amber)
)

func (m *runner) View() string {
	var b strings.Builder

	completed := 0
	for _, s := range m.states {
		if s.status == statusDone || s.status == statusWarned {
			completed++
		}
	}
	b.WriteString(runnerTitleStyle.Render(m.title))
	b.WriteString(counterStyle.Render(fmt.Sprintf(" [%d/%d]", completed, len(m.steps))))
	b.WriteString("\n")

	for _, s := range m.states {
		label := s.title
		if s.message != "" {
			label = s.message
		}
		switch s.status {
		case statusDone:
			b.WriteString("  " + ui.StepOK(label) + "\n")
		case statusWarned:
			b.WriteString("  " + ui.Warn(s.title) + "\n")
			if s.errMsg != "" {
				b.WriteString("    " + warnStyle.Render("Warning: "+s.errMsg) + "\n")
			}
		case statusRunning:
			b.WriteString("  " + m.spinner.View() + " " + label + "\n")
		case statusFailed:
			b.WriteString("  " + ui.StepFail(s.title) + "\n")
			if s.errMsg != "" {
				b.WriteString("    " + errorStyle.Render("Error: "+s.errMsg) + "\n")
			}
		case statusPending:
			b.WriteString("  " + pendingStyle.Render("○ "+s.title) + "\n")
		}
	}

	return b.String()
}

// RunSteps executes steps sequentially, rendering progress. Returns the
// first fatal step error. Falls back to plain output without a TTY.
func RunSteps(ctx context.Context, title string, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runStepsPlain(ctx, title, steps)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	states := make([]stepState, len(steps))
	for i, s := range steps {
		states[i] = stepState{title: s.Title, status: statusPending}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.Amber)

	m := &runner{
		title:   title,
		steps:   steps,
		states:  states,
		spinner: sp,
		ctx:     ctx,
		cancel:  cancel,
	}
	p := tea.NewProgram(m)
	m.program = p

	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	if r, ok := result.(*runner); ok && r.err != nil {
		return r.err
	}
	return nil
}

// runStepsPlain runs steps without animation (non-TTY fallback).
func runStepsPlain(ctx context.Context, title string, steps []Step) error {
	fmt.Println(title)
	for _, step := range steps {
		msg := step.Title
		progress := func(text string) { msg = text }
		if err := step.Run(ctx, progress); err != nil {
			if step.NonFatal {
				fmt.Println("  " + ui.Warn(msg))
				continue
			}
			fmt.Println("  " + ui.StepFail(msg))
			return err
		}
		fmt.Println("  " + ui.StepOK(msg))
	}
	return nil
}
