// Package contracts defines the message types exchanged between the editor
// side, the sync engine, and the browser preview. Every payload crossing the
// WebSocket boundary is one of these shapes.
package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates SyncEvent payloads. Decoding is exhaustive: an
// unknown type is an error, not a silently ignored message.
type EventType string

const (
	EventScroll    EventType = "scroll"
	EventCursor    EventType = "cursor"
	EventSelection EventType = "selection"
	EventContent   EventType = "content"
	EventClick     EventType = "click"
	EventHover     EventType = "hover"
	EventResize    EventType = "resize"
	EventReady     EventType = "ready"
	EventAck       EventType = "ack"
	EventError     EventType = "error"
)

// Source names the side a SyncEvent originated from. A command event carries
// the source of the side that caused it, so the receiving page applies a
// "scroll" with Source == SourceEditor to the preview pane and one with
// Source == SourcePreview to the editor pane.
type Source string

const (
	SourceEditor  Source = "editor"
	SourcePreview Source = "preview"
)

const (
	// MessageTypeSync wraps a SyncEvent for the WebSocket boundary.
	MessageTypeSync = "sync"
	// MessageTypeRender updates the browser with rendered HTML.
	MessageTypeRender = "render"
)

// Position is a point-in-time location on one side. Only the fields relevant
// to the event type are set; Line is 1-based.
type Position struct {
	Line           int     `json:"line"`
	Column         int     `json:"column,omitempty"`
	Offset         int     `json:"offset,omitempty"`
	ElementID      string  `json:"elementId,omitempty"`
	ScrollTop      float64 `json:"scrollTop,omitempty"`
	ScrollLeft     float64 `json:"scrollLeft,omitempty"`
	ScrollHeight   float64 `json:"scrollHeight,omitempty"`
	ScrollWidth    float64 `json:"scrollWidth,omitempty"`
	ViewportWidth  float64 `json:"viewportWidth,omitempty"`
	ViewportHeight float64 `json:"viewportHeight,omitempty"`
}

// ContentDiff is a line-range replacement between two revisions of the editor
// content. StartLine..EndLine (1-based, inclusive) in the old content are
// replaced by Lines. A revision whose serialized diff exceeds the size
// ceiling travels as a full-content event with no diff attached.
type ContentDiff struct {
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Lines     []string `json:"lines"`
}

// SyncEvent is the single event shape moved between editor, engine, and
// preview. Position, Content, and Diff are optional per type.
type SyncEvent struct {
	Type      EventType         `json:"type"`
	Source    Source            `json:"source"`
	Position  *Position         `json:"position,omitempty"`
	Content   string            `json:"content,omitempty"`
	Diff      *ContentDiff      `json:"diff,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Envelope is the WebSocket frame for sync traffic.
type Envelope struct {
	Type  string    `json:"type"`
	Event SyncEvent `json:"event"`
}

// RenderMessage carries rendered HTML and revision metadata to the browser.
// Source is the raw editor content the HTML was rendered from; the page's
// editor pane mirrors it.
type RenderMessage struct {
	Type     string `json:"type"`
	HTML     string `json:"html"`
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Rev      uint64 `json:"rev"`
}

// incomingMessage is the minimal envelope used to route browser messages.
type incomingMessage struct {
	Type string `json:"type"`
}

// NewEvent builds a timestamped SyncEvent.
func NewEvent(t EventType, src Source) SyncEvent {
	return SyncEvent{Type: t, Source: src, Timestamp: time.Now().UnixMilli()}
}

// Validate checks the event against the per-type field requirements.
func (e SyncEvent) Validate() error {
	if e.Source != SourceEditor && e.Source != SourcePreview {
		return fmt.Errorf("sync event: unknown source %q", e.Source)
	}
	switch e.Type {
	case EventScroll, EventCursor, EventSelection, EventClick, EventHover:
		if e.Position == nil {
			return fmt.Errorf("sync event: %s requires a position", e.Type)
		}
	case EventContent:
		if e.Content == "" && e.Diff == nil {
			return fmt.Errorf("sync event: content requires content or diff")
		}
	case EventResize, EventReady, EventAck, EventError:
		// no required payload
	default:
		return fmt.Errorf("sync event: unknown type %q", e.Type)
	}
	return nil
}

// DecodeEnvelope parses a raw WebSocket frame into a SyncEvent. Frames whose
// outer type is not a sync envelope, and events that fail validation, are
// rejected.
func DecodeEnvelope(raw []byte) (SyncEvent, error) {
	var head incomingMessage
	if err := json.Unmarshal(raw, &head); err != nil {
		return SyncEvent{}, fmt.Errorf("decode sync envelope: %w", err)
	}
	if head.Type != MessageTypeSync {
		return SyncEvent{}, fmt.Errorf("decode sync envelope: unexpected message type %q", head.Type)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return SyncEvent{}, fmt.Errorf("decode sync envelope: %w", err)
	}
	if err := env.Event.Validate(); err != nil {
		return SyncEvent{}, err
	}
	return env.Event, nil
}

// EncodeEnvelope wraps an event for the WebSocket boundary.
func EncodeEnvelope(e SyncEvent) ([]byte, error) {
	return json.Marshal(Envelope{Type: MessageTypeSync, Event: e})
}
