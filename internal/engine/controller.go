// Package engine drives bidirectional scroll, cursor, and content
// synchronization between an editor and a preview. All state lives on a
// single run loop goroutine; editors and previews talk to it through
// SyncEvents, and it talks back through the two port interfaces.
//
// Echo suppression is an explicit per-direction state machine rather than a
// pair of boolean flags: each direction is Idle, Syncing (a command has been
// issued and not yet acknowledged), or CoolingDown. An event arriving while
// the opposite direction is active is dropped when it matches the in-flight
// target (it is the echo of our own sync) and otherwise parked in a single
// pending slot, replayed exactly once after cooldown.
package engine

import (
	"log"
	"sync"
	"time"

	"epubsync/internal/contracts"
	"epubsync/internal/mapping"
)

// Direction names one half of the sync loop.
type Direction int

const (
	EditorToPreview Direction = iota
	PreviewToEditor
)

func (d Direction) opposite() Direction { return 1 - d }

type dirState int

const (
	stateIdle dirState = iota
	stateSyncing
	stateCooling
)

// EditorPort receives commands aimed at the editor side.
type EditorPort interface {
	ScrollToLine(line int) error
	SetCursor(line, col int) error
}

// PreviewPort receives commands aimed at the preview side. ApplyContent
// always carries the full new content; diff is nil when the serialized diff
// would have exceeded the configured ceiling.
type PreviewPort interface {
	ScrollToElement(id string) error
	ApplyContent(content string, diff *contracts.ContentDiff) error
}

// Remapper rebuilds the line/element mapping table against the current
// preview document. Called after content changes have settled.
type Remapper interface {
	Rebuild(content string) (*mapping.Table, error)
}

// Config carries the engine's timing and size knobs.
type Config struct {
	ScrollThrottle  time.Duration // min gap between handled scrolls per side
	SyncCooldown    time.Duration // CoolingDown duration after a sync completes
	AckTimeout      time.Duration // fallback when no ack arrives
	ContentDebounce time.Duration // quiet period collapsing keystroke bursts
	RemapDelay      time.Duration // settle time before rescanning the preview
	MaxDiffBytes    int           // serialized diff ceiling before full-content fallback
}

func (c Config) withDefaults() Config {
	if c.ScrollThrottle == 0 {
		c.ScrollThrottle = 50 * time.Millisecond
	}
	if c.SyncCooldown == 0 {
		c.SyncCooldown = 50 * time.Millisecond
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 200 * time.Millisecond
	}
	if c.ContentDebounce == 0 {
		c.ContentDebounce = 300 * time.Millisecond
	}
	if c.RemapDelay == 0 {
		c.RemapDelay = 100 * time.Millisecond
	}
	if c.MaxDiffBytes == 0 {
		c.MaxDiffBytes = 5000
	}
	return c
}

type target struct {
	line      int
	elementID string
}

type direction struct {
	state     dirState
	inflight  target
	ackTimer  *time.Timer
	coolTimer *time.Timer
}

type fireKind int

const (
	fireAckTimeout fireKind = iota
	fireCooldown
	fireDebounce
	fireRemap
)

type fire struct {
	kind fireKind
	dir  Direction
}

// Controller is the sync engine. Create with New, feed with HandleEvent,
// tear down with Close.
type Controller struct {
	cfg      Config
	editor   EditorPort
	preview  PreviewPort
	remapper Remapper

	events chan contracts.SyncEvent
	fires  chan fire
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	// Everything below is owned by the run loop.
	table        *mapping.Table
	content      string
	editorReady  bool
	previewReady bool
	initialized  bool

	dirs       [2]*direction
	pending    [2]*contracts.SyncEvent // slot index = suppressing direction
	lastScroll [2]time.Time

	pendingContent string
	debounceArmed  bool
	remapArmed     bool
}

// New starts a controller. The initial content seeds diffing; the first
// mapping is built once both sides have reported ready.
func New(cfg Config, editor EditorPort, preview PreviewPort, remapper Remapper, initialContent string) *Controller {
	c := &Controller{
		cfg:      cfg.withDefaults(),
		editor:   editor,
		preview:  preview,
		remapper: remapper,
		events:   make(chan contracts.SyncEvent, 64),
		fires:    make(chan fire, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		content:  initialContent,
		table:    mapping.NewTable(nil, 0),
		dirs:     [2]*direction{{}, {}},
	}
	go c.run()
	return c
}

// HandleEvent feeds one event into the engine. Events arriving after Close
// are discarded.
func (c *Controller) HandleEvent(ev contracts.SyncEvent) {
	select {
	case c.events <- ev:
	case <-c.stop:
	}
}

// Close stops the run loop and waits for it to exit. Timers scheduled before
// Close fire into a closed engine and do nothing.
func (c *Controller) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case f := <-c.fires:
			c.handleFire(f)
		case <-c.stop:
			c.cancelTimers()
			return
		}
	}
}

func (c *Controller) postFire(f fire) {
	select {
	case c.fires <- f:
	case <-c.stop:
	}
}

func (c *Controller) afterFunc(d time.Duration, f fire) *time.Timer {
	return time.AfterFunc(d, func() { c.postFire(f) })
}

func (c *Controller) cancelTimers() {
	for _, d := range c.dirs {
		if d.ackTimer != nil {
			d.ackTimer.Stop()
		}
		if d.coolTimer != nil {
			d.coolTimer.Stop()
		}
	}
}

func (c *Controller) handle(ev contracts.SyncEvent) {
	switch ev.Type {
	case contracts.EventReady:
		c.handleReady(ev.Source)
	case contracts.EventAck:
		// The applying side acknowledges; that completes the direction
		// whose target it is.
		if ev.Source == contracts.SourcePreview {
			c.completeSync(EditorToPreview)
		} else {
			c.completeSync(PreviewToEditor)
		}
	case contracts.EventContent:
		if ev.Source == contracts.SourceEditor {
			c.queueContent(ev.Content)
		}
	case contracts.EventScroll, contracts.EventCursor:
		c.requestSync(directionFor(ev.Source), ev)
	case contracts.EventClick:
		if ev.Source == contracts.SourcePreview {
			c.requestSync(PreviewToEditor, ev)
		}
	case contracts.EventResize:
		c.scheduleRemap()
	case contracts.EventSelection, contracts.EventHover:
		// Observed but not synchronized.
	case contracts.EventError:
		log.Printf("[epubsync] %s reported error: %s", ev.Source, ev.Content)
	}
}

func directionFor(src contracts.Source) Direction {
	if src == contracts.SourceEditor {
		return EditorToPreview
	}
	return PreviewToEditor
}

func (c *Controller) handleReady(src contracts.Source) {
	switch src {
	case contracts.SourceEditor:
		c.editorReady = true
	case contracts.SourcePreview:
		c.previewReady = true
	}
	// Joint readiness gates the initial mapping, so we never scan a preview
	// document that has not finished loading.
	if c.editorReady && c.previewReady && !c.initialized {
		c.initialized = true
		c.rebuildTable()
	}
}

func (c *Controller) requestSync(dir Direction, ev contracts.SyncEvent) {
	if ev.Position == nil {
		return
	}

	if ev.Type == contracts.EventScroll {
		now := time.Now()
		if now.Sub(c.lastScroll[dir]) < c.cfg.ScrollThrottle {
			return
		}
		c.lastScroll[dir] = now
	}

	opp := dir.opposite()
	if c.dirs[opp].state != stateIdle {
		if c.isEcho(opp, ev) {
			return
		}
		evCopy := ev
		c.pending[opp] = &evCopy // latest wins; replayed once after cooldown
		return
	}
	if c.dirs[dir].state != stateIdle {
		return
	}

	c.startSync(dir, ev)
}

// isEcho reports whether ev looks like the reflection of the sync currently
// in flight on direction d: same element, or within one line of the target.
func (c *Controller) isEcho(d Direction, ev contracts.SyncEvent) bool {
	inflight := c.dirs[d].inflight
	if ev.Position.ElementID != "" && ev.Position.ElementID == inflight.elementID {
		return true
	}
	if ev.Position.Line > 0 && inflight.line > 0 {
		delta := ev.Position.Line - inflight.line
		if delta < 0 {
			delta = -delta
		}
		return delta <= 1
	}
	return false
}

func (c *Controller) startSync(dir Direction, ev contracts.SyncEvent) {
	switch dir {
	case EditorToPreview:
		m, ok := c.table.ByLine(ev.Position.Line)
		if !ok {
			return // no mapping for this line: silent no-op
		}
		c.enterSyncing(dir, target{line: m.EditorLine, elementID: m.ElementID})
		if err := c.preview.ScrollToElement(m.ElementID); err != nil {
			log.Printf("[epubsync] preview scroll: %v", err)
			c.completeSync(dir)
		}

	case PreviewToEditor:
		m, ok := c.table.ByElement(ev.Position.ElementID)
		if !ok && ev.Position.Line > 0 {
			m, ok = c.table.ByLine(ev.Position.Line)
		}
		if !ok {
			return
		}
		c.enterSyncing(dir, target{line: m.EditorLine, elementID: m.ElementID})
		if err := c.editor.ScrollToLine(m.EditorLine); err != nil {
			log.Printf("[epubsync] editor scroll: %v", err)
			c.completeSync(dir)
			return
		}
		if ev.Type == contracts.EventClick {
			if err := c.editor.SetCursor(m.EditorLine, 1); err != nil {
				log.Printf("[epubsync] editor cursor: %v", err)
			}
		}
	}
}

func (c *Controller) enterSyncing(dir Direction, tgt target) {
	d := c.dirs[dir]
	d.state = stateSyncing
	d.inflight = tgt
	d.ackTimer = c.afterFunc(c.cfg.AckTimeout, fire{kind: fireAckTimeout, dir: dir})
}

// completeSync moves a direction from Syncing to CoolingDown. Triggered by an
// ack from the applying side, or by the ack timeout as a fallback.
func (c *Controller) completeSync(dir Direction) {
	d := c.dirs[dir]
	if d.state != stateSyncing {
		return
	}
	if d.ackTimer != nil {
		d.ackTimer.Stop()
	}
	d.state = stateCooling
	d.coolTimer = c.afterFunc(c.cfg.SyncCooldown, fire{kind: fireCooldown, dir: dir})
}

func (c *Controller) handleFire(f fire) {
	switch f.kind {
	case fireAckTimeout:
		c.completeSync(f.dir)
	case fireCooldown:
		d := c.dirs[f.dir]
		if d.state != stateCooling {
			return
		}
		d.state = stateIdle
		d.inflight = target{}
		if p := c.pending[f.dir]; p != nil {
			c.pending[f.dir] = nil
			c.handle(*p)
		}
	case fireDebounce:
		c.flushContent()
	case fireRemap:
		c.remapArmed = false
		c.rebuildTable()
	}
}

func (c *Controller) queueContent(content string) {
	c.pendingContent = content
	if !c.debounceArmed {
		c.debounceArmed = true
		c.afterFunc(c.cfg.ContentDebounce, fire{kind: fireDebounce})
	}
}

func (c *Controller) flushContent() {
	c.debounceArmed = false
	newContent := c.pendingContent
	if newContent == c.content {
		return
	}

	diff := LineDiff(c.content, newContent)
	if diffSize(diff) > c.cfg.MaxDiffBytes {
		diff = nil // payload over the ceiling: ship the full content
	}
	if err := c.preview.ApplyContent(newContent, diff); err != nil {
		log.Printf("[epubsync] apply content: %v", err)
	}
	c.content = newContent

	// Mappings are stale the instant content changes. Rebuild after the
	// preview DOM has had time to settle.
	c.scheduleRemap()
}

func (c *Controller) scheduleRemap() {
	if c.remapArmed {
		return
	}
	c.remapArmed = true
	c.afterFunc(c.cfg.RemapDelay, fire{kind: fireRemap})
}

func (c *Controller) rebuildTable() {
	table, err := c.remapper.Rebuild(c.content)
	if err != nil {
		log.Printf("[epubsync] mapping rebuild: %v", err)
		return
	}
	c.table = table
}
