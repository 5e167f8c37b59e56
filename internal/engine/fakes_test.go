package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

type fakeProvider struct {
	mu         sync.Mutex
	available  bool
	dialErr    error
	transports []*fakeTransport
	configs    []domain.RecognitionConfig
}

func newFakeProvider(transports ...*fakeTransport) *fakeProvider {
	return &fakeProvider{available: true, transports: transports}
}

func (p *fakeProvider) Name() string    { return "fake" }
func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) Dial(_ context.Context, cfg domain.RecognitionConfig) (Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, cfg)
	if p.dialErr != nil {
		return nil, p.dialErr
	}
	if len(p.transports) == 0 {
		return nil, errors.New("no transport scripted")
	}
	next := p.transports[0]
	p.transports = p.transports[1:]
	return next, nil
}

type fakeTransport struct {
	updates chan Update
	recvErr chan error
	closed  chan struct{}

	flushOnCloseSend bool

	mu         sync.Mutex
	sent       [][]byte
	closeSends int
	closeOnce  sync.Once
	eofOnce    sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		updates:          make(chan Update, 32),
		recvErr:          make(chan error, 1),
		closed:           make(chan struct{}),
		flushOnCloseSend: true,
	}
}

func (f *fakeTransport) Send(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pcm)
	return nil
}

func (f *fakeTransport) CloseSend() error {
	f.mu.Lock()
	f.closeSends++
	f.mu.Unlock()
	if f.flushOnCloseSend {
		f.fail(io.EOF)
	}
	return nil
}

func (f *fakeTransport) Recv() (Update, error) {
	select {
	case update := <-f.updates:
		return update, nil
	case err := <-f.recvErr:
		return Update{}, err
	case <-f.closed:
		return Update{}, errors.New("use of closed network connection")
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) push(updates ...Update) {
	for _, update := range updates {
		f.updates <- update
	}
}

func (f *fakeTransport) fail(err error) {
	f.eofOnce.Do(func() { f.recvErr <- err })
}

func (f *fakeTransport) sentChunks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	mics     []*fakeMic
}

func (c *fakeCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return nil, c.startErr
	}
	mic := &fakeMic{chunks: make(chan []byte, 16), stopped: make(chan struct{})}
	c.mics = append(c.mics, mic)
	return mic, nil
}

func (c *fakeCapture) mic(t *testing.T, index int) *fakeMic {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.mics) > index {
			mic := c.mics[index]
			c.mu.Unlock()
			return mic
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("capture %d never started", index)
	return nil
}

type fakeMic struct {
	chunks   chan []byte
	stopped  chan struct{}
	stopOnce sync.Once
}

func (m *fakeMic) Read(p []byte) (int, error) {
	select {
	case chunk := <-m.chunks:
		return copy(p, chunk), nil
	case <-m.stopped:
		return 0, io.EOF
	}
}

func (m *fakeMic) Stop() error {
	m.stopOnce.Do(func() { close(m.stopped) })
	return nil
}

func (m *fakeMic) Close() error { return m.Stop() }

type recordingListener struct {
	events chan domain.RecognitionEvent
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan domain.RecognitionEvent, 256)}
}

func (l *recordingListener) OnRecognitionEvent(event domain.RecognitionEvent) {
	l.events <- event
}

// next returns the next event that is not level metering or raw audio.
func (l *recordingListener) next(t *testing.T) domain.RecognitionEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-l.events:
			if event.Kind == domain.EventVolumeChanged || event.Kind == domain.EventBufferReceived {
				continue
			}
			return event
		case <-timeout:
			t.Fatalf("timed out waiting for recognition event")
			return domain.RecognitionEvent{}
		}
	}
}

func (l *recordingListener) expect(t *testing.T, want ...domain.RecognitionEvent) {
	t.Helper()
	for _, w := range want {
		got := l.next(t)
		if got.Kind != w.Kind || got.Text != w.Text || got.Code != w.Code {
			t.Fatalf("expected %+v, got %+v", w, got)
		}
	}
}

func (l *recordingListener) expectQuiet(t *testing.T, wait time.Duration) {
	t.Helper()
	timeout := time.After(wait)
	for {
		select {
		case event := <-l.events:
			if event.Kind == domain.EventVolumeChanged || event.Kind == domain.EventBufferReceived {
				continue
			}
			t.Fatalf("unexpected event: %+v", event)
		case <-timeout:
			return
		}
	}
}
