package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"livescribe/internal/domain"
)

const noticeTTL = 3 * time.Second

// Screen is the part of usecase.Screen the terminal drives. Calls are made
// from tea commands, never from Update, since the screen reports back
// through the bridge.
type Screen interface {
	Init(ctx context.Context) error
	Start() error
	Stop() error
}

type StatusMsg struct{ Text string }
type TranscriptMsg struct{ Text string }
type StateMsg struct{ State domain.SessionState }
type NoticeMsg struct{ Text string }

// PromptMsg asks the user a yes/no question. The answer is delivered once.
type PromptMsg struct {
	Title   string
	Message string
	answer  chan<- bool
}

type intentResultMsg struct {
	intent string
	err    error
}

type noticeExpiredMsg struct{ seq int }

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	activeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	placeholderText = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	promptStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1)
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	transcriptBox   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

// Model renders the transcription screen in a terminal.
type Model struct {
	ctx    context.Context
	screen Screen
	info   string

	status     string
	transcript string
	state      domain.SessionState
	notice     string
	noticeSeq  int
	prompt     *PromptMsg
	width      int
}

func NewModel(ctx context.Context, screen Screen, info string) Model {
	return Model{
		ctx:    ctx,
		screen: screen,
		info:   info,
		state:  domain.SessionStateIdle,
	}
}

func (m Model) Init() tea.Cmd {
	screen := m.screen
	ctx := m.ctx
	return func() tea.Msg {
		return intentResultMsg{intent: "init", err: screen.Init(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StatusMsg:
		m.status = msg.Text

	case TranscriptMsg:
		m.transcript = msg.Text

	case StateMsg:
		m.state = msg.State

	case NoticeMsg:
		return m.showNotice(msg.Text)

	case PromptMsg:
		if m.prompt != nil {
			m.prompt.reply(false)
		}
		prompt := msg
		m.prompt = &prompt

	case intentResultMsg:
		if msg.err != nil && msg.intent != "init" {
			return m.showNotice(msg.err.Error())
		}

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		if m.prompt != nil {
			m.prompt.reply(false)
			m.prompt = nil
		}
		return m, tea.Quit
	}

	if m.prompt != nil {
		switch key {
		case "y", "Y", "enter":
			m.prompt.reply(true)
			m.prompt = nil
		case "n", "N", "esc":
			m.prompt.reply(false)
			m.prompt = nil
		}
		return m, nil
	}

	switch key {
	case "s", " ":
		if m.state.Active() {
			return m, nil
		}
		return m, m.intent("start", m.screen.Start)
	case "x":
		return m, m.intent("stop", m.screen.Stop)
	}
	return m, nil
}

func (m Model) intent(name string, call func() error) tea.Cmd {
	return func() tea.Msg {
		return intentResultMsg{intent: name, err: call()}
	}
}

func (m Model) showNotice(text string) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("livescribe"))
	if m.info != "" {
		b.WriteString("  " + infoStyle.Render(m.info))
	}
	b.WriteString("\n\n")

	if m.state.Active() {
		b.WriteString(activeStyle.Render("● ") + statusStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	box := transcriptBox
	if m.width > 4 {
		box = box.Width(m.width - 2)
	}
	if m.transcript == "" {
		b.WriteString(box.Render(placeholderText.Render("Nothing transcribed yet")))
	} else {
		b.WriteString(box.Render(m.transcript))
	}
	b.WriteString("\n")

	if m.prompt != nil {
		b.WriteString(promptStyle.Render(m.prompt.Title + "\n" + m.prompt.Message + "\n[y] allow  [n] deny"))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("s start · x stop · q quit"))
	return b.String()
}

func (p *PromptMsg) reply(granted bool) {
	if p.answer == nil {
		return
	}
	select {
	case p.answer <- granted:
	default:
	}
	p.answer = nil
}
