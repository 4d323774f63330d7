// Package tui contains the terminal front ends: the operator-paced capture
// screen and the panorama viewer. All rig logic lives below; these models
// only pass messages into the capture session and the pan state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robosharks/photosphere/internal/capture"
	"github.com/robosharks/photosphere/internal/pose"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// ErrCaptureQuit reports that the operator quit before the grid finished.
var ErrCaptureQuit = errors.New("tui: capture canceled by operator")

type awaitAdvanceMsg struct {
	index int
	pose  pose.Pose
}

type poseStartedMsg struct {
	index int
	pose  pose.Pose
}

type posePersistedMsg struct {
	index int
	pose  pose.Pose
	path  string
}

type poseFailedMsg struct {
	index int
	pose  pose.Pose
	err   error
}

type sessionDoneMsg struct{}

// relay forwards session observer callbacks into the bubbletea program as
// messages, keeping the state machine free of any UI dependency.
type relay struct {
	p *tea.Program
}

func (r relay) PoseStarted(i int, p pose.Pose) { r.p.Send(poseStartedMsg{index: i, pose: p}) }
func (r relay) PosePersisted(i int, p pose.Pose, path string) {
	r.p.Send(posePersistedMsg{index: i, pose: p, path: path})
}
func (r relay) PoseFailed(i int, p pose.Pose, err error) {
	r.p.Send(poseFailedMsg{index: i, pose: p, err: err})
}

type captureModel struct {
	grid    []pose.Pose
	advance chan struct{}
	quit    chan struct{}

	waiting   bool
	quitting  bool
	current   pose.Pose
	index     int
	persisted int
	failed    []pose.Pose
	lastPath  string
	done      bool
}

func newCaptureModel(grid []pose.Pose) *captureModel {
	return &captureModel{
		grid: grid,
		// Buffered so an enter pressed in the window between the await
		// message and the session blocking on the channel is not lost.
		advance: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

func (m *captureModel) Init() tea.Cmd { return nil }

func (m *captureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.quitting {
				m.quitting = true
				close(m.quit)
			}
			return m, nil
		case "enter", " ":
			if m.waiting {
				m.waiting = false
				select {
				case m.advance <- struct{}{}:
				default:
				}
			}
			return m, nil
		}
	case awaitAdvanceMsg:
		m.waiting = true
		m.index = msg.index
		m.current = msg.pose
		return m, nil
	case poseStartedMsg:
		m.index = msg.index
		m.current = msg.pose
		return m, nil
	case posePersistedMsg:
		m.persisted++
		m.lastPath = msg.path
		return m, nil
	case poseFailedMsg:
		m.failed = append(m.failed, msg.pose)
		return m, nil
	case sessionDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *captureModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("photosphere capture"))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("pose"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d/%d  %s", m.index+1, len(m.grid), m.current)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("persisted"))
	b.WriteString(okStyle.Render(fmt.Sprintf("%d", m.persisted)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("failed"))
	if len(m.failed) == 0 {
		b.WriteString(valueStyle.Render("0"))
	} else {
		names := make([]string, len(m.failed))
		for i, p := range m.failed {
			names[i] = p.String()
		}
		b.WriteString(failStyle.Render(fmt.Sprintf("%d  (%s)", len(m.failed), strings.Join(names, ", "))))
	}
	b.WriteString("\n")

	if m.lastPath != "" {
		b.WriteString(labelStyle.Render("last saved"))
		b.WriteString(valueStyle.Render(m.lastPath))
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("set rig to %s, then press enter to capture", m.current)))
	}

	b.WriteString(helpStyle.Render("\nenter: capture  q: quit"))
	return b.String()
}

// RunCapture runs the session under the interactive capture screen. The
// operator-advance pause is the enter key; q aborts the session cleanly.
func RunCapture(ctx context.Context, session *capture.Session, grid []pose.Pose) (*capture.Result, error) {
	m := newCaptureModel(grid)
	p := tea.NewProgram(m)

	session.SetAdvanceFunc(func(ctx context.Context, po pose.Pose) error {
		idx := session.Cursor()
		p.Send(awaitAdvanceMsg{index: idx, pose: po})
		select {
		case <-m.advance:
			return nil
		case <-m.quit:
			return ErrCaptureQuit
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	session.AddObserver(relay{p: p})

	var (
		res    *capture.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = session.Run(ctx)
		p.Send(sessionDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		return nil, err
	}
	<-done
	return res, runErr
}
