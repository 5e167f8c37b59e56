package permission

import (
	"fmt"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// Policy decides whether the user is asked at all.
type Policy string

const (
	PolicyPrompt  Policy = "prompt"
	PolicyGranted Policy = "granted"
	PolicyDenied  Policy = "denied"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case "", PolicyPrompt:
		return PolicyPrompt, nil
	case PolicyGranted, PolicyDenied:
		return Policy(value), nil
	default:
		return "", fmt.Errorf("unknown permission policy %q", value)
	}
}

// Provider implements ports.PermissionProvider on top of a Store and a
// Prompter.
type Provider struct {
	store    *Store
	prompter ports.Prompter
	policy   Policy
	logger   zerolog.Logger
}

func NewProvider(store *Store, prompter ports.Prompter, policy Policy, logger zerolog.Logger) *Provider {
	if policy == "" {
		policy = PolicyPrompt
	}
	return &Provider{
		store:    store,
		prompter: prompter,
		policy:   policy,
		logger:   logger.With().Str("component", "permission").Logger(),
	}
}

func (p *Provider) CheckGranted(capability domain.Capability) bool {
	switch p.policy {
	case PolicyGranted:
		return true
	case PolicyDenied:
		return false
	}

	decision, ok, err := p.store.Lookup(capability)
	if err != nil {
		p.logger.Warn().Err(err).Msg("permission lookup failed")
		return false
	}
	return ok && decision.Granted
}

// RequestGranted asks the user on its own goroutine and records the
// answer. Without a prompter the request is denied.
func (p *Provider) RequestGranted(capability domain.Capability, result func(granted bool)) {
	switch p.policy {
	case PolicyGranted:
		go result(true)
		return
	case PolicyDenied:
		go result(false)
		return
	}

	go func() {
		granted := p.ask(capability)
		if err := p.store.Record(capability, granted); err != nil {
			p.logger.Warn().Err(err).Msg("failed to record permission decision")
		}
		p.logger.Info().Str("capability", string(capability)).Bool("granted", granted).Msg("permission decided")
		result(granted)
	}()
}

func (p *Provider) ask(capability domain.Capability) bool {
	if p.prompter == nil {
		return false
	}
	title, message := promptText(capability)
	granted, err := p.prompter.Confirm(title, message)
	if err != nil {
		p.logger.Warn().Err(err).Msg("permission prompt failed")
		return false
	}
	return granted
}

func promptText(capability domain.Capability) (string, string) {
	if capability == domain.CapabilityMicrophone {
		return "Microphone access", "Allow livescribe to record audio from your microphone for speech recognition?"
	}
	return "Permission request", fmt.Sprintf("Allow livescribe to use %s?", capability)
}
