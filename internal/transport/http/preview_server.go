// Package httpserver handles all message traffic between the host and the
// browser preview: the page shell, rendered HTML updates, sync events in both
// directions, and local book assets.
package httpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"epubsync/internal/contracts"
	"epubsync/internal/render"

	"github.com/gorilla/websocket"
)

type renderPayload struct {
	html     string
	source   string
	filename string
}

// PreviewServer coordinates HTTP serving and WebSocket traffic. One browser
// connection is active at a time; a newer connection replaces the old one and
// receives the last render so a refreshed page catches up immediately.
type PreviewServer struct {
	addr  string
	shell string

	started bool
	stopped bool
	server  *http.Server

	// OnSyncEvent receives every validated event the browser sends.
	OnSyncEvent func(contracts.SyncEvent)

	browserInbound chan []byte
	updates        chan renderPayload
	outbound       chan contracts.SyncEvent
	register       chan *websocket.Conn
	unregister     chan *websocket.Conn
	stopLoop       chan struct{}

	upgrader websocket.Upgrader
}

// NewPreviewServer creates an HTTP/WebSocket preview server bound to addr.
func NewPreviewServer(addr string, shell string) *PreviewServer {
	return &PreviewServer{
		addr:  addr,
		shell: shell,

		browserInbound: make(chan []byte, 64),
		updates:        make(chan renderPayload, 8),
		outbound:       make(chan contracts.SyncEvent, 64),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		stopLoop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// URL returns the browser URL for the preview server.
func (m *PreviewServer) URL() string {
	return "http://" + m.addr
}

// SetSyncHandler registers the callback for browser sync events. Must be set
// before StartOrUpdate; the run loop reads it without locking.
func (m *PreviewServer) SetSyncHandler(fn func(contracts.SyncEvent)) {
	m.OnSyncEvent = fn
}

// StartOrUpdate starts the server on first call and publishes new HTML with
// the source it was rendered from. The server is single-lifecycle: after Stop
// it cannot be restarted.
func (m *PreviewServer) StartOrUpdate(fragment, source, path string) error {
	if m.stopped {
		return fmt.Errorf("preview server: stopped")
	}
	if !m.started {
		mux := http.NewServeMux()
		mux.HandleFunc("/", m.handleIndex)
		mux.HandleFunc("/ws", m.handleWS)
		mux.HandleFunc(render.AssetRoute, m.handleAsset)

		m.server = &http.Server{Addr: m.addr, Handler: mux}
		m.started = true

		go m.runLoop()
		go func() {
			if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[epubsync] preview server: %v", err)
			}
		}()
	}

	m.updates <- renderPayload{html: fragment, source: source, filename: filepath.Base(path)}
	return nil
}

// Send publishes a sync event to the connected browser. A send before the
// server starts or without a connection is dropped; sync traffic is
// best-effort by design.
func (m *PreviewServer) Send(ev contracts.SyncEvent) error {
	if !m.started {
		return nil
	}
	select {
	case m.outbound <- ev:
	case <-m.stopLoop:
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and run loop. Terminal: a
// stopped server rejects further StartOrUpdate calls.
func (m *PreviewServer) Stop() error {
	if !m.started || m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := m.server.Shutdown(ctx)
	close(m.stopLoop)

	m.started = false
	m.stopped = true
	m.server = nil
	return err
}

// handleIndex serves the initial HTML shell.
func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(m.shell))
}

// handleWS upgrades the connection and forwards browser frames to the loop.
func (m *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.register <- conn
	defer func() {
		m.unregister <- conn
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		m.browserInbound <- msg
	}
}

// handleAsset serves local book assets via encoded absolute paths.
func (m *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, render.AssetRoute)
	if id == "" {
		http.NotFound(w, r)
		return
	}

	decoded, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	assetPath := filepath.Clean(string(decoded))
	if assetPath == "." || !filepath.IsAbs(assetPath) {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(assetPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, assetPath)
}

// runLoop serializes connection state and websocket writes on one goroutine.
func (m *PreviewServer) runLoop() {
	var conn *websocket.Conn

	lastRender := contracts.RenderMessage{Type: contracts.MessageTypeRender}

	for {
		select {
		case update := <-m.updates:
			lastRender.Rev++
			lastRender.HTML = update.html
			lastRender.Source = update.source
			lastRender.Filename = update.filename

			if conn == nil {
				continue
			}
			if !writeJSON(conn, lastRender) {
				conn = nil
			}

		case ev := <-m.outbound:
			if conn == nil {
				continue
			}
			if !writeJSON(conn, contracts.Envelope{Type: contracts.MessageTypeSync, Event: ev}) {
				conn = nil
			}

		case c := <-m.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c

			if lastRender.Rev > 0 && !writeJSON(conn, lastRender) {
				conn = nil
			}

		case c := <-m.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-m.browserInbound:
			ev, err := contracts.DecodeEnvelope(raw)
			if err != nil {
				log.Printf("[epubsync] browser message rejected: %v", err)
				continue
			}
			if m.OnSyncEvent != nil {
				m.OnSyncEvent(ev)
			}

		case <-m.stopLoop:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

// writeJSON writes a JSON message and reports whether the connection is still
// usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
