package bridge

import (
	"fmt"
	"sync"

	"epubsync/internal/contracts"

	"github.com/neovim/go-client/nvim"
)

// NvimEditor adapts a Neovim instance. Neovim pushes buffer and cursor
// changes through the host's registered plugin functions, which land here via
// PublishContent/PublishCursor; sync commands go back over the RPC
// connection.
type NvimEditor struct {
	mu   sync.Mutex
	nv   *nvim.Nvim
	emit func(contracts.SyncEvent)

	lastLine int
	lastCol  int
}

func NewNvimEditor(nv *nvim.Nvim) *NvimEditor {
	return &NvimEditor{nv: nv}
}

// Start stores the emit sink and reports the editor ready: the Neovim side is
// usable as soon as the RPC channel exists.
func (e *NvimEditor) Start(emit func(contracts.SyncEvent)) error {
	if e.nv == nil {
		return fmt.Errorf("nvim editor: no client")
	}
	e.mu.Lock()
	e.emit = emit
	e.mu.Unlock()
	emit(contracts.NewEvent(contracts.EventReady, contracts.SourceEditor))
	return nil
}

// PublishContent forwards a full buffer snapshot as a content event.
func (e *NvimEditor) PublishContent(content string) {
	e.send(func(ev *contracts.SyncEvent) {
		ev.Type = contracts.EventContent
		ev.Content = content
	})
}

// PublishCursor forwards a cursor move, suppressing repeats of the position
// the adapter itself just applied.
func (e *NvimEditor) PublishCursor(line, col int) {
	e.mu.Lock()
	same := line == e.lastLine && col == e.lastCol
	if !same {
		e.lastLine, e.lastCol = line, col
	}
	e.mu.Unlock()
	if same {
		return
	}
	e.send(func(ev *contracts.SyncEvent) {
		ev.Type = contracts.EventCursor
		ev.Position = &contracts.Position{Line: line, Column: col}
	})
}

func (e *NvimEditor) send(fill func(*contracts.SyncEvent)) {
	e.mu.Lock()
	emit := e.emit
	e.mu.Unlock()
	if emit == nil {
		return
	}
	ev := contracts.NewEvent("", contracts.SourceEditor)
	fill(&ev)
	emit(ev)
}

// ScrollToLine moves the Neovim cursor to line and centers the window.
func (e *NvimEditor) ScrollToLine(line int) error {
	win, err := e.nv.CurrentWindow()
	if err != nil {
		return fmt.Errorf("nvim editor: current window: %w", err)
	}
	if err := e.nv.SetWindowCursor(win, [2]int{line, 0}); err != nil {
		return fmt.Errorf("nvim editor: set cursor: %w", err)
	}
	_ = e.nv.Command("normal! zz")

	e.mu.Lock()
	e.lastLine, e.lastCol = line, 0
	e.mu.Unlock()
	return nil
}

// SetCursor places the cursor; Neovim columns are 0-based over RPC.
func (e *NvimEditor) SetCursor(line, col int) error {
	win, err := e.nv.CurrentWindow()
	if err != nil {
		return fmt.Errorf("nvim editor: current window: %w", err)
	}
	if col < 1 {
		col = 1
	}
	if err := e.nv.SetWindowCursor(win, [2]int{line, col - 1}); err != nil {
		return fmt.Errorf("nvim editor: set cursor: %w", err)
	}
	e.mu.Lock()
	e.lastLine, e.lastCol = line, col
	e.mu.Unlock()
	return nil
}

// Close drops the emit sink. The RPC connection belongs to the plugin host
// and is not closed here.
func (e *NvimEditor) Close() error {
	e.mu.Lock()
	e.emit = nil
	e.mu.Unlock()
	return nil
}
