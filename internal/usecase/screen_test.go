package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
)

func newTestScreen(t *testing.T, engine *fakeEngine, permissions *fakePermissions) (*Screen, *fakeSink) {
	t.Helper()

	sink := &fakeSink{}
	screen := NewScreen(engine, permissions, sink, Config{Locale: "en-US"}, zerolog.Nop())
	t.Cleanup(func() { _ = screen.Destroy() })
	if err := screen.Init(context.Background()); err != nil && !errors.Is(err, ErrUnavailable) {
		t.Fatalf("init failed: %v", err)
	}
	return screen, sink
}

func TestScreenPartialThenFinalScenario(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	engine.recognizer.emit(
		domain.ReadyForSpeech(),
		domain.BeginningOfSpeech(),
		domain.PartialResult("hel"),
		domain.PartialResult("hello"),
	)

	status := screen.Status()
	if status.Message != "Partial: hello" || status.Partial != "hello" {
		t.Fatalf("unexpected partial status: %+v", status)
	}
	if status.Transcript != "" {
		t.Fatalf("partial results must not reach the transcript: %q", status.Transcript)
	}

	engine.recognizer.emit(domain.EndOfSpeech())
	if got := screen.Status().State; got != domain.SessionStateProcessing {
		t.Fatalf("expected processing, got %s", got)
	}

	engine.recognizer.emit(domain.FinalResult("hello world"))
	status = screen.Status()
	if status.Transcript != "hello world" {
		t.Fatalf("unexpected transcript: %q", status.Transcript)
	}
	if status.Message != "Tap Start to continue" {
		t.Fatalf("unexpected status: %q", status.Message)
	}
	if status.State != domain.SessionStateStopped || status.Active {
		t.Fatalf("expected stopped session, got %+v", status)
	}
	if status.Partial != "" {
		t.Fatalf("partial should be cleared at session end, got %q", status.Partial)
	}
}

func TestScreenRequestsDictationConfig(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	cfg := engine.recognizer.lastConfig()
	want := domain.RecognitionConfig{
		LanguageModel:  domain.LanguageModelFreeForm,
		PartialResults: true,
		MaxResults:     1,
		Locale:         "en-US",
		PreferOffline:  false,
	}
	if cfg != want {
		t.Fatalf("unexpected request: %+v", cfg)
	}
	if got := screen.Status().Message; got != domain.StatusListening {
		t.Fatalf("unexpected status after start: %q", got)
	}
}

func TestScreenStatusFollowsEngineEvents(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	cases := []struct {
		event domain.RecognitionEvent
		want  string
	}{
		{domain.ReadyForSpeech(), "Ready to listen"},
		{domain.BeginningOfSpeech(), "Capturing speech"},
		{domain.VolumeChanged(-12), "Capturing speech"},
		{domain.BufferReceived([]byte{1, 2}), "Capturing speech"},
		{domain.MiscEvent(7), "Capturing speech"},
		{domain.PartialResult("   "), "Capturing speech"},
		{domain.EndOfSpeech(), "Processing"},
	}
	for _, tc := range cases {
		engine.recognizer.emit(tc.event)
		if got := screen.Status().Message; got != tc.want {
			t.Fatalf("after %s: expected %q, got %q", tc.event.Kind, tc.want, got)
		}
	}
}

func TestScreenTranscriptConcatenatesFinals(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, sink := newTestScreen(t, engine, &fakePermissions{granted: true})

	finals := []string{"first line", "second  line ", "third"}
	for _, text := range finals {
		if err := screen.Start(); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		engine.recognizer.emit(domain.PartialResult("noise"), domain.FinalResult(text))
	}
	engine.recognizer.emit(domain.FinalResult("   "), domain.FinalResult(""))

	status := screen.Status()
	want := strings.Join(finals, "\n\n")
	if status.Transcript != want {
		t.Fatalf("unexpected transcript: %q", status.Transcript)
	}
	if sink.transcriptUpdates() != len(finals) {
		t.Fatalf("blank finals must not notify the transcript surface, got %d updates", sink.transcriptUpdates())
	}
}

func TestScreenPermissionDenied(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	permissions := &fakePermissions{}
	screen, sink := newTestScreen(t, engine, permissions)

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := screen.Status().State; got != domain.SessionStateAwaitingPermission {
		t.Fatalf("expected awaiting permission, got %s", got)
	}

	permissions.answer(false)
	status := screen.Status()
	if status.Message != "Permission denied" {
		t.Fatalf("unexpected status: %q", status.Message)
	}
	if status.Transcript != "" {
		t.Fatalf("transcript should stay empty, got %q", status.Transcript)
	}
	if status.State != domain.SessionStateIdle {
		t.Fatalf("expected idle after denial, got %s", status.State)
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 0 {
		t.Fatalf("engine must not start without permission, got %d starts", starts)
	}
	notices := sink.snapshotNotices()
	if len(notices) != 1 || notices[0] != domain.NoticePermissionDenied {
		t.Fatalf("unexpected notices: %v", notices)
	}
}

func TestScreenPermissionDeniedSynchronously(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	sink := &fakeSink{}
	screen := NewScreen(engine, denyingPermissions{}, sink, Config{}, zerolog.Nop())
	defer screen.Destroy()
	if err := screen.Init(context.Background()); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	status := screen.Status()
	if status.Message != domain.StatusPermissionDenied || status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestScreenPermissionGrantedLater(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	permissions := &fakePermissions{}
	screen, _ := newTestScreen(t, engine, permissions)

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := screen.Start(); !errors.Is(err, ErrPermissionPending) {
		t.Fatalf("expected pending error on second start, got %v", err)
	}
	if permissions.requestCount() != 1 {
		t.Fatalf("expected a single permission request, got %d", permissions.requestCount())
	}

	permissions.answer(true)
	status := screen.Status()
	if status.State != domain.SessionStateListening {
		t.Fatalf("expected listening after grant, got %s", status.State)
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 1 {
		t.Fatalf("expected one engine start, got %d", starts)
	}

	engine.recognizer.emit(domain.FinalResult("granted"))
	if err := screen.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if permissions.requestCount() != 1 {
		t.Fatalf("granted permission must not be requested again")
	}
}

func TestScreenPermissionAnswerAfterStopIsIgnored(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	permissions := &fakePermissions{}
	screen, _ := newTestScreen(t, engine, permissions)

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := screen.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	permissions.answer(true)

	status := screen.Status()
	if status.State != domain.SessionStateStopped {
		t.Fatalf("expected stopped, got %s", status.State)
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 0 {
		t.Fatalf("late grant must not start capture, got %d starts", starts)
	}
}

func TestScreenNetworkTimeoutError(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	engine.recognizer.emit(domain.PartialResult("almost"), domain.RecognitionError(domain.ErrorCodeNetworkTimeout))
	status := screen.Status()
	if status.Message != "Error: Network timeout expired" {
		t.Fatalf("unexpected status: %q", status.Message)
	}
	if status.State != domain.SessionStateError || status.ErrorCode != domain.ErrorCodeNetworkTimeout {
		t.Fatalf("unexpected state: %+v", status)
	}
	if status.Transcript != "" {
		t.Fatalf("errors must not touch the transcript")
	}

	if err := screen.Start(); err != nil {
		t.Fatalf("start after error failed: %v", err)
	}
	status = screen.Status()
	if status.State != domain.SessionStateListening || status.ErrorCode != "" {
		t.Fatalf("expected a fresh session after error, got %+v", status)
	}
}

func TestScreenUnknownErrorCode(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	engine.recognizer.emit(domain.RecognitionError("martian"))
	if got := screen.Status().Message; got != "Error: Unknown" {
		t.Fatalf("unexpected status: %q", got)
	}
}

func TestScreenUnavailableEngineNeverCalled(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.available = false
	screen, sink := newTestScreen(t, engine, &fakePermissions{granted: true})

	for i := 0; i < 5; i++ {
		if err := screen.Start(); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
		if got := screen.Status().Message; got != domain.StatusUnavailable {
			t.Fatalf("unexpected status: %q", got)
		}
	}

	if engine.creates() != 0 {
		t.Fatalf("unavailable engine must not be created")
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 0 {
		t.Fatalf("unavailable engine must not be started")
	}
	for _, status := range sink.snapshotStatuses() {
		if status != domain.StatusUnavailable {
			t.Fatalf("unexpected status update: %q", status)
		}
	}
}

func TestScreenCreateFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.createErr = errEngineBoom
	sink := &fakeSink{}
	screen := NewScreen(engine, &fakePermissions{granted: true}, sink, Config{}, zerolog.Nop())
	defer screen.Destroy()

	if err := screen.Init(context.Background()); !errors.Is(err, errEngineBoom) {
		t.Fatalf("expected create error, got %v", err)
	}
	if err := screen.Start(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	notices := sink.snapshotNotices()
	if len(notices) != 1 || notices[0] != domain.NoticeUnavailable {
		t.Fatalf("unexpected notices: %v", notices)
	}
}

func TestScreenStopWhileListening(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	engine.recognizer.emit(domain.PartialResult("half"))

	engine.recognizer.stopErr = errEngineBoom
	if err := screen.Stop(); err != nil {
		t.Fatalf("stop must be best effort, got %v", err)
	}

	status := screen.Status()
	if status.State != domain.SessionStateStopped || status.Message != domain.StatusStopped {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
	if status.Partial != "" {
		t.Fatalf("stop should clear the partial text")
	}
	starts, stops, _ := engine.recognizer.snapshot()
	if starts != 1 || stops != 1 {
		t.Fatalf("unexpected engine calls: starts=%d stops=%d", starts, stops)
	}

	if err := screen.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 1 {
		t.Fatalf("stop must not start a session")
	}

	engine.recognizer.emit(domain.FinalResult("late words"))
	status = screen.Status()
	if status.Transcript != "late words" || status.State != domain.SessionStateStopped {
		t.Fatalf("final after stop should still be committed: %+v", status)
	}
}

func TestScreenStartWhileListeningIsIgnored(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := screen.Start(); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected active session error, got %v", err)
	}
	if starts, _, _ := engine.recognizer.snapshot(); starts != 1 {
		t.Fatalf("expected a single engine start, got %d", starts)
	}
}

func TestScreenStartFailure(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.recognizer.startErr = errEngineBoom
	screen, sink := newTestScreen(t, engine, &fakePermissions{granted: true})

	if err := screen.Start(); err != nil {
		t.Fatalf("start failures must not propagate, got %v", err)
	}
	status := screen.Status()
	if status.State != domain.SessionStateError || status.ErrorCode != domain.ErrorCodeClient {
		t.Fatalf("unexpected state: %+v", status)
	}
	if status.Message != domain.StatusStartFailed {
		t.Fatalf("unexpected status: %q", status.Message)
	}
	notices := sink.snapshotNotices()
	if len(notices) != 1 || notices[0] != "Error starting: engine boom" {
		t.Fatalf("unexpected notices: %v", notices)
	}
}

func TestScreenStartPanicIsContained(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.recognizer.startHook = func() { panic("driver crashed") }
	screen, _ := newTestScreen(t, engine, &fakePermissions{granted: true})

	if err := screen.Start(); err != nil {
		t.Fatalf("start failures must not propagate, got %v", err)
	}
	if got := screen.Status().State; got != domain.SessionStateError {
		t.Fatalf("expected error state, got %s", got)
	}
}

func TestScreenEventsFromStartAreOrdered(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.recognizer.onStart = []domain.RecognitionEvent{
		domain.ReadyForSpeech(),
		domain.PartialResult("one"),
		domain.FinalResult("one two"),
	}
	screen, sink := newTestScreen(t, engine, &fakePermissions{granted: true})

	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	status := screen.Status()
	if status.Transcript != "one two" || status.State != domain.SessionStateStopped {
		t.Fatalf("unexpected status: %+v", status)
	}

	want := []string{
		domain.StatusListening,
		domain.StatusReadyToListen,
		"Partial: one",
		domain.StatusContinue,
	}
	got := sink.snapshotStatuses()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected status sequence: %v", got)
	}

	states := sink.snapshotStates()
	if len(states) != 2 || states[0] != domain.SessionStateListening || states[1] != domain.SessionStateStopped {
		t.Fatalf("unexpected state sequence: %v", states)
	}
}

func TestScreenDestroy(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	sink := &fakeSink{}
	screen := NewScreen(engine, &fakePermissions{granted: true}, sink, Config{}, zerolog.Nop())
	if err := screen.Init(context.Background()); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := screen.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := screen.Destroy(); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	if err := screen.Destroy(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected destroyed error, got %v", err)
	}
	if err := screen.Start(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected destroyed error on start, got %v", err)
	}
	if err := screen.Stop(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected destroyed error on stop, got %v", err)
	}

	engine.recognizer.emit(domain.FinalResult("ghost"))
	if got := screen.Status(); got.State != domain.SessionStateDestroyed || got.Transcript != "" {
		t.Fatalf("unexpected status after destroy: %+v", got)
	}

	starts, stops, destroys := engine.recognizer.snapshot()
	if starts != 1 || stops != 0 || destroys != 1 {
		t.Fatalf("unexpected engine calls: starts=%d stops=%d destroys=%d", starts, stops, destroys)
	}
}

func TestScreenWithoutInitIsUnavailable(t *testing.T) {
	t.Parallel()

	screen := NewScreen(newFakeEngine(), &fakePermissions{granted: true}, nil, Config{}, zerolog.Nop())
	defer screen.Destroy()

	if err := screen.Start(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable before init, got %v", err)
	}
	if got := screen.Status().Message; got != domain.StatusUnavailable {
		t.Fatalf("unexpected status: %q", got)
	}
}
