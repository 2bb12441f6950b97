package bridge

import (
	"sync"
	"testing"
	"time"

	"epubsync/internal/contracts"
	"epubsync/internal/engine"
	"epubsync/internal/mapping"
)

type recordingAdapter struct {
	mu      sync.Mutex
	emit    func(contracts.SyncEvent)
	started bool
	closed  bool
	scrolls []int
}

func (a *recordingAdapter) Start(emit func(contracts.SyncEvent)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emit = emit
	a.started = true
	emit(contracts.NewEvent(contracts.EventReady, contracts.SourceEditor))
	return nil
}

func (a *recordingAdapter) ScrollToLine(line int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scrolls = append(a.scrolls, line)
	return nil
}

func (a *recordingAdapter) SetCursor(int, int) error { return nil }

func (a *recordingAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type recordingTransport struct {
	mu      sync.Mutex
	handler func(contracts.SyncEvent)
	sent    []contracts.SyncEvent
}

func (t *recordingTransport) SetSyncHandler(fn func(contracts.SyncEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

func (t *recordingTransport) Send(ev contracts.SyncEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, ev)
	return nil
}

func (t *recordingTransport) deliver(ev contracts.SyncEvent) {
	t.mu.Lock()
	fn := t.handler
	t.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

type nullPort struct{}

func (nullPort) ScrollToLine(int) error                            { return nil }
func (nullPort) SetCursor(int, int) error                          { return nil }
func (nullPort) ScrollToElement(string) error                      { return nil }
func (nullPort) ApplyContent(string, *contracts.ContentDiff) error { return nil }

type staticRemapper struct{}

func (staticRemapper) Rebuild(string) (*mapping.Table, error) {
	return mapping.NewTable(nil, 0), nil
}

func newTestBridge(t *testing.T) (*Bridge, *recordingAdapter, *recordingTransport) {
	t.Helper()
	ctrl := engine.New(engine.Config{}, nullPort{}, nullPort{}, staticRemapper{}, "")
	t.Cleanup(ctrl.Close)

	b := New(ctrl)
	ed := &recordingAdapter{}
	tr := &recordingTransport{}
	if err := b.InitEditor(ed); err != nil {
		t.Fatalf("InitEditor: %v", err)
	}
	if err := b.InitPreview(tr); err != nil {
		t.Fatalf("InitPreview: %v", err)
	}
	return b, ed, tr
}

func TestInitWiresBothSides(t *testing.T) {
	b, ed, tr := newTestBridge(t)

	if !ed.started {
		t.Errorf("editor adapter not started")
	}
	tr.mu.Lock()
	hasHandler := tr.handler != nil
	tr.mu.Unlock()
	if !hasHandler {
		t.Errorf("preview transport has no sync handler")
	}

	if err := b.InitEditor(&recordingAdapter{}); err == nil {
		t.Errorf("second InitEditor should fail")
	}
}

// The page routes each frame to the pane that did not cause it, so editor
// pane commands must travel with the preview as their source.
func TestRemoteEditorCommandsCarryPreviewSource(t *testing.T) {
	tr := &recordingTransport{}
	re := NewRemoteEditor(tr)

	if err := re.ScrollToLine(12); err != nil {
		t.Fatalf("ScrollToLine: %v", err)
	}
	if err := re.SetCursor(12, 3); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sent) != 2 {
		t.Fatalf("sent %d frames, want 2", len(tr.sent))
	}
	for _, ev := range tr.sent {
		if ev.Source != contracts.SourcePreview {
			t.Errorf("%s frame source = %q, want preview", ev.Type, ev.Source)
		}
	}
	if tr.sent[0].Type != contracts.EventScroll || tr.sent[0].Position.Line != 12 {
		t.Errorf("scroll frame = %+v", tr.sent[0])
	}
	if tr.sent[1].Type != contracts.EventCursor || tr.sent[1].Position.Column != 3 {
		t.Errorf("cursor frame = %+v", tr.sent[1])
	}
}

func TestCloseDetachesEverything(t *testing.T) {
	b, ed, tr := newTestBridge(t)

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ed.closed {
		t.Errorf("editor adapter not closed")
	}
	tr.mu.Lock()
	hasHandler := tr.handler != nil
	tr.mu.Unlock()
	if hasHandler {
		t.Errorf("sync handler still registered after Close")
	}

	// Events delivered by a straggling callback after Close are dropped.
	tr.handler = b.forward
	ev := contracts.NewEvent(contracts.EventClick, contracts.SourcePreview)
	ev.Position = &contracts.Position{ElementID: "sync-element-0"}
	tr.deliver(ev)
	time.Sleep(10 * time.Millisecond)

	ed.mu.Lock()
	n := len(ed.scrolls)
	ed.mu.Unlock()
	if n != 0 {
		t.Errorf("event after Close reached the editor: %d scrolls", n)
	}

	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
