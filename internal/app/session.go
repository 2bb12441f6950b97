// Package app assembles one live editing session: the renderer, the preview
// server, the sync engine, the table-of-contents manager, and whichever
// editor adapter the caller attaches.
package app

import (
	"sync"

	"golang.org/x/net/html"

	"epubsync/internal/bridge"
	"epubsync/internal/config"
	"epubsync/internal/contracts"
	"epubsync/internal/engine"
	"epubsync/internal/mapping"
	"epubsync/internal/render"
	"epubsync/internal/toc"
	httpserver "epubsync/internal/transport/http"
)

// LiveSession coordinates one source document between an editor and the
// browser preview. It implements the engine's preview port (rendering and
// publishing new content, relaying scroll commands) and its remapper
// (rebuilding the line/element table against the last rendered document).
type LiveSession struct {
	cfg      config.Config
	renderer *render.Renderer
	preview  *httpserver.PreviewServer
	tocs     *toc.Manager
	ctrl     *engine.Controller
	bridge   *bridge.Bridge

	mu         sync.Mutex
	sourcePath string
	content    string
	previewDoc *html.Node
}

func NewLiveSession(cfg config.Config) *LiveSession {
	s := &LiveSession{
		cfg:      cfg,
		renderer: render.NewRenderer(),
		tocs:     toc.NewManager(cfg.Toc.CacheSize),
	}
	s.preview = httpserver.NewPreviewServer(cfg.Addr, s.renderer.RenderShell())
	s.ctrl = engine.New(cfg.Engine(), editorProxy{s}, s, s, "")
	s.bridge = bridge.New(s.ctrl)
	_ = s.bridge.InitPreview(s.preview)
	return s
}

// AttachEditor wires an editor adapter into the session. At most one editor
// is attached over the session's lifetime.
func (s *LiveSession) AttachEditor(a bridge.EditorAdapter) error {
	return s.bridge.InitEditor(a)
}

// AttachRemoteEditor attaches the browser-hosted editor pane, which shares
// the preview WebSocket.
func (s *LiveSession) AttachRemoteEditor() error {
	return s.bridge.InitEditor(bridge.NewRemoteEditor(s.preview))
}

func (s *LiveSession) URL() string {
	return s.preview.URL()
}

// Start boots the HTTP server with an empty page so the URL is reachable
// before the first content arrives.
func (s *LiveSession) Start() error {
	s.mu.Lock()
	path := s.sourcePath
	s.mu.Unlock()
	return s.preview.StartOrUpdate("", "", path)
}

// SetSourcePath records the path used for rendering, asset resolution, and
// outline parsing.
func (s *LiveSession) SetSourcePath(path string) {
	s.mu.Lock()
	s.sourcePath = path
	s.mu.Unlock()
}

// PublishSource feeds a new revision of the document into the sync engine.
// The engine debounces bursts; rendering and delivery happen in ApplyContent
// once the revision settles.
func (s *LiveSession) PublishSource(source []byte, path string) error {
	s.SetSourcePath(path)

	ev := contracts.NewEvent(contracts.EventContent, contracts.SourceEditor)
	ev.Content = string(source)
	s.ctrl.HandleEvent(ev)
	return nil
}

// HandleEvent feeds one editor-side event into the engine directly, for
// callers that produce events without an adapter.
func (s *LiveSession) HandleEvent(ev contracts.SyncEvent) {
	s.ctrl.HandleEvent(ev)
}

// Outline parses the current content into a table of contents.
func (s *LiveSession) Outline() *toc.Structure {
	s.mu.Lock()
	content, path := s.content, s.sourcePath
	s.mu.Unlock()
	return s.tocs.Parse(content, path, toc.Options{
		MaxLevel:       s.cfg.Toc.MaxLevel,
		ExtractAnchors: true,
	})
}

// OnOutlineChange registers fn for outline updates and returns a dispose
// function.
func (s *LiveSession) OnOutlineChange(fn func(*toc.Structure)) func() {
	return s.tocs.AddChangeListener(fn)
}

// ApplyContent renders the settled revision, tags its elements, publishes it
// to the browser, and forwards the line diff so the remote editor pane can
// patch its buffer instead of reloading.
func (s *LiveSession) ApplyContent(content string, diff *contracts.ContentDiff) error {
	s.mu.Lock()
	path := s.sourcePath
	s.mu.Unlock()

	fragment, err := s.renderer.ConvertDocument([]byte(content), path)
	if err != nil {
		return err
	}
	body, err := mapping.ParseFragment(fragment)
	if err != nil {
		return err
	}
	mapping.AssignElementIDs(body)
	decorated, err := mapping.RenderFragment(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = content
	s.previewDoc = body
	s.mu.Unlock()

	if err := s.preview.StartOrUpdate(decorated, content, path); err != nil {
		return err
	}

	if diff != nil {
		ev := contracts.NewEvent(contracts.EventContent, contracts.SourceEditor)
		ev.Diff = diff
		_ = s.preview.Send(ev)
	}

	s.tocs.Parse(content, path, toc.Options{
		MaxLevel:       s.cfg.Toc.MaxLevel,
		ExtractAnchors: true,
	})
	return nil
}

// ScrollToElement commands the browser preview pane to bring an element into
// view. The page answers with an ack event.
func (s *LiveSession) ScrollToElement(id string) error {
	ev := contracts.NewEvent(contracts.EventScroll, contracts.SourceEditor)
	ev.Position = &contracts.Position{ElementID: id}
	return s.preview.Send(ev)
}

// Rebuild matches editor lines against the last rendered document. Before
// the first render there is nothing to match and the table is empty.
func (s *LiveSession) Rebuild(content string) (*mapping.Table, error) {
	s.mu.Lock()
	body := s.previewDoc
	s.mu.Unlock()

	if body == nil {
		return mapping.NewTable(nil, s.cfg.Sync.LookupThreshold), nil
	}
	elements := mapping.AssignElementIDs(body)
	built := mapping.Build(content, elements, s.cfg.Mapping())
	return mapping.NewTable(built, s.cfg.Sync.LookupThreshold), nil
}

func (s *LiveSession) Close() error {
	err := s.bridge.Close()
	s.ctrl.Close()
	if stopErr := s.preview.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// editorProxy lets the engine reach whichever editor adapter is attached to
// the bridge. Commands issued before an editor attaches are dropped.
type editorProxy struct {
	s *LiveSession
}

func (p editorProxy) ScrollToLine(line int) error {
	if a := p.s.bridge.Editor(); a != nil {
		return a.ScrollToLine(line)
	}
	return nil
}

func (p editorProxy) SetCursor(line, col int) error {
	if a := p.s.bridge.Editor(); a != nil {
		return a.SetCursor(line, col)
	}
	return nil
}
