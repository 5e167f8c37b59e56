package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"livescribe/internal/bootstrap"
	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

const (
	eventStatus     = "livescribe:status"
	eventTranscript = "livescribe:transcript"
	eventState      = "livescribe:state"
	eventNotice     = "livescribe:notice"
)

// screen is the part of usecase.Screen the window drives.
type screen interface {
	Init(ctx context.Context) error
	Start() error
	Stop() error
	Destroy() error
	Status() domain.Status
}

// App is the Wails application root. It renders screen updates as
// frontend events and answers permission prompts with native dialogs.
type App struct {
	ctx context.Context

	screen    screen
	info      bootstrap.RuntimeInfo
	services  bootstrap.Services
	clipboard ports.Clipboard
	bootErr   error
}

func NewApp() *App {
	return &App{clipboard: wailsClipboard{}}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a, bootstrap.Options{LogFallback: io.Discard})
	if err != nil {
		a.bootErr = err
		a.Notice("Startup failed: " + err.Error())
		return
	}

	a.services = services
	a.info = services.Info
	a.screen = services.Screen
	if err := a.screen.Init(ctx); err != nil {
		services.Logger.Warn().Err(err).Msg("screen init failed")
	}
	a.SessionStateChanged(a.screen.Status().State)
}

func (a *App) shutdown(_ context.Context) {
	if a.screen != nil {
		if err := a.screen.Destroy(); err != nil {
			a.services.Logger.Debug().Err(err).Msg("screen destroy")
		}
	}
	_ = a.services.Close()
}

// Start begins listening, asking for microphone access first if needed.
func (a *App) Start() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.screen.Start(); err != nil {
		return a.screen.Status(), err
	}
	return a.screen.Status(), nil
}

// Stop ends the current recognition session.
func (a *App) Stop() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.screen.Stop(); err != nil {
		return a.screen.Status(), err
	}
	return a.screen.Status(), nil
}

// GetStatus returns what the window currently shows.
func (a *App) GetStatus() domain.Status {
	if a.screen == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.screen.Status()
}

// CopyTranscript puts the accumulated transcript on the clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	text := a.screen.Status().Transcript
	if text == "" {
		a.Notice("Nothing to copy yet.")
		return nil
	}
	if err := a.clipboard.SetText(a.ctx, text); err != nil {
		a.Notice("Clipboard write failed.")
		return fmt.Errorf("clipboard: %w", err)
	}
	a.Notice("Transcript copied to clipboard.")
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	return runtimeInfoMap(a.info, a.bootErr)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.screen == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StatusChanged emits the status surface text.
func (a *App) StatusChanged(text string) {
	a.emit(eventStatus, map[string]string{"text": text})
}

// TranscriptChanged emits the full transcript after each final result.
func (a *App) TranscriptChanged(text string) {
	a.emit(eventTranscript, map[string]string{"text": text})
}

// SessionStateChanged emits lifecycle updates so the frontend can toggle
// its buttons.
func (a *App) SessionStateChanged(state domain.SessionState) {
	a.emit(eventState, map[string]any{
		"state":  string(state),
		"active": state.Active(),
	})
}

// Notice emits a transient toast.
func (a *App) Notice(text string) {
	a.emit(eventNotice, map[string]string{"text": text})
}

// Confirm shows a native question dialog. It is called off the UI thread by
// the permission provider.
func (a *App) Confirm(title string, message string) (bool, error) {
	if a.ctx == nil {
		return false, fmt.Errorf("application is not initialized")
	}
	answer, err := runtime.MessageDialog(a.ctx, runtime.MessageDialogOptions{
		Type:          runtime.QuestionDialog,
		Title:         title,
		Message:       message,
		Buttons:       []string{"Allow", "Deny"},
		DefaultButton: "Allow",
		CancelButton:  "Deny",
	})
	if err != nil {
		return false, err
	}
	return dialogAccepted(answer), nil
}

func (a *App) emit(name string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, payload)
}

// dialogAccepted normalizes the button label returned by each platform;
// Linux and Windows report Yes/No regardless of the requested labels.
func dialogAccepted(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "allow", "ok":
		return true
	default:
		return false
	}
}

func runtimeInfoMap(info bootstrap.RuntimeInfo, bootErr error) map[string]string {
	if bootErr != nil {
		return map[string]string{"error": bootErr.Error()}
	}
	return map[string]string{
		"engine":           info.Engine,
		"model":            info.Model,
		"locale":           info.Locale,
		"audioInput":       info.AudioInput,
		"audioInputFormat": info.AudioFormat,
		"permissionsFile":  info.Permissions,
		"available":        fmt.Sprintf("%t", info.Available),
	}
}

type wailsClipboard struct{}

func (wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
