package usecase

import (
	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// StatusPresenter holds the single status line and the last partial hypothesis.
type StatusPresenter struct {
	sink    ports.ScreenSink
	current string
	partial string
}

func newStatusPresenter(sink ports.ScreenSink) *StatusPresenter {
	return &StatusPresenter{sink: sink}
}

// Set replaces the status line.
func (p *StatusPresenter) Set(text string) {
	p.current = text
	p.sink.StatusChanged(text)
}

// SetPartial records an in-progress hypothesis and shows it as the status.
func (p *StatusPresenter) SetPartial(text string) {
	p.partial = text
	p.Set(domain.PartialStatus(text))
}

// ClearPartial forgets the hypothesis at session end.
func (p *StatusPresenter) ClearPartial() {
	p.partial = ""
}

func (p *StatusPresenter) Current() string {
	return p.current
}

func (p *StatusPresenter) Partial() string {
	return p.partial
}
