package usecase

import (
	"context"
	"errors"
	"sync"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

type fakeEngine struct {
	available  bool
	createErr  error
	recognizer *fakeRecognizer

	mu          sync.Mutex
	createCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{available: true, recognizer: &fakeRecognizer{}}
}

func (f *fakeEngine) Available() bool { return f.available }

func (f *fakeEngine) Create(_ context.Context) (ports.Recognizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.recognizer, nil
}

func (f *fakeEngine) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

type fakeRecognizer struct {
	mu        sync.Mutex
	listener  ports.RecognitionListener
	starts    []domain.RecognitionConfig
	stops     int
	destroys  int
	startErr  error
	stopErr   error
	startHook func()
	onStart   []domain.RecognitionEvent
}

func (f *fakeRecognizer) SetListener(listener ports.RecognitionListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = listener
}

func (f *fakeRecognizer) StartListening(cfg domain.RecognitionConfig) error {
	f.mu.Lock()
	f.starts = append(f.starts, cfg)
	hook := f.startHook
	err := f.startErr
	listener := f.listener
	script := append([]domain.RecognitionEvent(nil), f.onStart...)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}
	for _, event := range script {
		listener.OnRecognitionEvent(event)
	}
	return nil
}

func (f *fakeRecognizer) StopListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeRecognizer) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroys++
	return nil
}

func (f *fakeRecognizer) emit(events ...domain.RecognitionEvent) {
	f.mu.Lock()
	listener := f.listener
	f.mu.Unlock()
	for _, event := range events {
		listener.OnRecognitionEvent(event)
	}
}

func (f *fakeRecognizer) snapshot() (starts int, stops int, destroys int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts), f.stops, f.destroys
}

func (f *fakeRecognizer) lastConfig() domain.RecognitionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.starts) == 0 {
		return domain.RecognitionConfig{}
	}
	return f.starts[len(f.starts)-1]
}

type fakePermissions struct {
	mu       sync.Mutex
	granted  bool
	pending  []func(bool)
	requests int
}

func (f *fakePermissions) CheckGranted(_ domain.Capability) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted
}

func (f *fakePermissions) RequestGranted(_ domain.Capability, result func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.pending = append(f.pending, result)
}

// answer resolves every outstanding request.
func (f *fakePermissions) answer(granted bool) {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	if granted {
		f.granted = true
	}
	f.mu.Unlock()

	for _, result := range pending {
		result(granted)
	}
}

func (f *fakePermissions) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// denyingPermissions answers every request with a denial right away.
type denyingPermissions struct{}

func (denyingPermissions) CheckGranted(domain.Capability) bool { return false }

func (denyingPermissions) RequestGranted(_ domain.Capability, result func(bool)) {
	result(false)
}

type fakeSink struct {
	mu          sync.Mutex
	statuses    []string
	transcripts []string
	states      []domain.SessionState
	notices     []string
}

func (f *fakeSink) StatusChanged(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, text)
}

func (f *fakeSink) TranscriptChanged(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, text)
}

func (f *fakeSink) SessionStateChanged(state domain.SessionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeSink) Notice(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
}

func (f *fakeSink) snapshotStatuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statuses...)
}

func (f *fakeSink) snapshotNotices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notices...)
}

func (f *fakeSink) snapshotStates() []domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SessionState(nil), f.states...)
}

func (f *fakeSink) transcriptUpdates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transcripts)
}

var errEngineBoom = errors.New("engine boom")
