package bridge

import (
	"epubsync/internal/contracts"
)

// RemoteEditor adapts the browser-hosted editor pane, which shares the
// preview WebSocket. Its events arrive as editor-sourced frames through the
// preview transport (the bridge forwards them to the engine like any other
// event), so no emit sink is kept here; commands go out as sync frames the
// page applies to its editor pane.
type RemoteEditor struct {
	sender interface {
		Send(ev contracts.SyncEvent) error
	}
}

func NewRemoteEditor(sender interface {
	Send(ev contracts.SyncEvent) error
}) *RemoteEditor {
	return &RemoteEditor{sender: sender}
}

// Start reports readiness on behalf of the editor pane. Content may also
// arrive from the file watcher before a browser connects; the ready event
// keeps the engine's joint-readiness gate honest.
func (e *RemoteEditor) Start(emit func(contracts.SyncEvent)) error {
	emit(contracts.NewEvent(contracts.EventReady, contracts.SourceEditor))
	return nil
}

// ScrollToLine sends a scroll command frame for the editor pane. Source is
// the preview side: the page routes frames to the pane that did not cause
// them.
func (e *RemoteEditor) ScrollToLine(line int) error {
	ev := contracts.NewEvent(contracts.EventScroll, contracts.SourcePreview)
	ev.Position = &contracts.Position{Line: line}
	return e.sender.Send(ev)
}

// SetCursor sends a cursor command frame for the editor pane.
func (e *RemoteEditor) SetCursor(line, col int) error {
	ev := contracts.NewEvent(contracts.EventCursor, contracts.SourcePreview)
	ev.Position = &contracts.Position{Line: line, Column: col}
	return e.sender.Send(ev)
}

func (e *RemoteEditor) Close() error { return nil }
