package tui

import (
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"livescribe/internal/domain"
)

var ErrDetached = errors.New("terminal ui is not running")

// Sender is the part of tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards screen updates and permission prompts into a running
// bubbletea program. It satisfies ports.ScreenSink and ports.Prompter.
type Bridge struct {
	mu      sync.Mutex
	program Sender
	done    chan struct{}
}

func NewBridge() *Bridge {
	return &Bridge{done: make(chan struct{})}
}

// Attach starts forwarding to program.
func (b *Bridge) Attach(program Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = program
}

// Detach stops forwarding and releases any caller blocked in Confirm.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.program == nil {
		return
	}
	b.program = nil
	close(b.done)
}

func (b *Bridge) StatusChanged(text string) {
	b.send(StatusMsg{Text: text})
}

func (b *Bridge) TranscriptChanged(text string) {
	b.send(TranscriptMsg{Text: text})
}

func (b *Bridge) SessionStateChanged(state domain.SessionState) {
	b.send(StateMsg{State: state})
}

func (b *Bridge) Notice(text string) {
	b.send(NoticeMsg{Text: text})
}

// Confirm shows a y/n prompt and waits for the answer.
func (b *Bridge) Confirm(title string, message string) (bool, error) {
	answer := make(chan bool, 1)
	if !b.send(PromptMsg{Title: title, Message: message, answer: answer}) {
		return false, ErrDetached
	}
	select {
	case granted := <-answer:
		return granted, nil
	case <-b.done:
		return false, ErrDetached
	}
}

func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	program := b.program
	b.mu.Unlock()
	if program == nil {
		return false
	}
	program.Send(msg)
	return true
}
