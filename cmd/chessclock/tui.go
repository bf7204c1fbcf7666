package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/chessclock/pkg/format"
	"github.com/BYTE-6D65/chessclock/pkg/keymap"
	"github.com/BYTE-6D65/chessclock/pkg/session"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/theme"
)

const (
	minPaneWidth  = 20
	minPaneHeight = 5
)

var (
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingLeft(2)

	timeStyle = lipgloss.NewStyle().Bold(true)
)

type tickMsg time.Time

// model polls the session once per refresh interval and on every key.
type model struct {
	ctx     context.Context
	session *session.Session
	theme   theme.Theme
	refresh time.Duration
	help    string

	width  int
	height int
	snap   session.Snapshot
}

func newModel(ctx context.Context, s *session.Session, th theme.Theme, refresh time.Duration) model {
	return model{
		ctx:     ctx,
		session: s,
		theme:   th,
		refresh: refresh,
		help:    s.Keymap().Help(),
		snap:    s.Snapshot(ctx),
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick(m.refresh)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		action, ok := m.session.HandleKey(m.ctx, msg.String())
		if ok && action == keymap.Quit {
			return m, tea.Quit
		}
		m.snap = m.session.Snapshot(m.ctx)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.snap = m.session.Snapshot(m.ctx)
		return m, tick(m.refresh)
	}
	return m, nil
}

func (m model) View() string {
	w := max(m.width/2, minPaneWidth)
	h := max(m.height-2, minPaneHeight)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSide(side.Left, w, h),
		m.renderSide(side.Right, w, h),
	)
	return panes + "\n" + helpStyle.Render(m.help)
}

func (m model) renderSide(s side.Side, w, h int) string {
	remaining := m.snap.Times.Of(s)
	pal := m.theme.Palette(theme.View{
		Current:   m.snap.Active == s,
		Running:   m.snap.Running,
		Remaining: remaining,
	})

	text := timeStyle.
		Foreground(pal.Foreground).
		Background(pal.Background).
		Render(format.Time(remaining))

	if !m.snap.Running {
		meta := lipgloss.NewStyle().Foreground(pal.Meta).Background(pal.Background)
		text = lipgloss.JoinVertical(lipgloss.Center,
			text,
			"",
			meta.Render(m.snap.Labels.Of(s)),
			meta.Render(fmt.Sprintf("half-moves: %d", m.snap.HalfMoves)),
		)
	}

	return lipgloss.NewStyle().
		Width(w).
		Height(h).
		Background(pal.Background).
		Align(lipgloss.Center, lipgloss.Center).
		Render(text)
}
