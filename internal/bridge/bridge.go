// Package bridge wires an editor front-end and a preview transport to the
// sync engine, and owns the lifecycle of those attachments. Exactly two
// editor integrations exist, chosen explicitly at construction time: a Neovim
// remote plugin and a browser editor speaking the sync protocol over the
// preview WebSocket.
package bridge

import (
	"fmt"
	"sync"

	"epubsync/internal/contracts"
	"epubsync/internal/engine"
)

// EditorAdapter is the contract an editor integration fulfills. Start wires
// editor-side events into emit (including a ready event once the editor side
// is usable); the command methods push sync results back into the editor.
type EditorAdapter interface {
	Start(emit func(contracts.SyncEvent)) error
	ScrollToLine(line int) error
	SetCursor(line, col int) error
	Close() error
}

// PreviewTransport is the slice of the HTTP/WebSocket server the bridge
// needs.
type PreviewTransport interface {
	SetSyncHandler(fn func(contracts.SyncEvent))
	Send(ev contracts.SyncEvent) error
}

// Bridge connects one editor and one preview to one engine. Both Init calls
// must happen before events flow; Close reverses every registration made by
// either, so callbacks scheduled before teardown find a closed bridge and do
// nothing.
type Bridge struct {
	ctrl *engine.Controller

	mu        sync.Mutex
	editor    EditorAdapter
	preview   PreviewTransport
	disposers []func()
	closed    bool
}

func New(ctrl *engine.Controller) *Bridge {
	return &Bridge{ctrl: ctrl}
}

// InitEditor attaches an editor adapter and starts its event flow.
func (b *Bridge) InitEditor(a EditorAdapter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bridge: init editor on closed bridge")
	}
	if b.editor != nil {
		return fmt.Errorf("bridge: editor already attached")
	}
	if err := a.Start(b.forward); err != nil {
		return fmt.Errorf("bridge: start editor adapter: %w", err)
	}
	b.editor = a
	b.disposers = append(b.disposers, func() { _ = a.Close() })
	return nil
}

// InitPreview attaches the preview transport, routing browser events into
// the engine.
func (b *Bridge) InitPreview(t PreviewTransport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bridge: init preview on closed bridge")
	}
	if b.preview != nil {
		return fmt.Errorf("bridge: preview already attached")
	}
	t.SetSyncHandler(b.forward)
	b.preview = t
	b.disposers = append(b.disposers, func() { t.SetSyncHandler(nil) })
	return nil
}

// Editor returns the attached adapter, or nil.
func (b *Bridge) Editor() EditorAdapter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor
}

// Preview returns the attached transport, or nil.
func (b *Bridge) Preview() PreviewTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preview
}

// forward moves one event into the engine unless the bridge has been closed.
func (b *Bridge) forward(ev contracts.SyncEvent) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.ctrl.HandleEvent(ev)
}

// Close detaches everything in reverse registration order. Idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	disposers := b.disposers
	b.disposers = nil
	b.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
	return nil
}
