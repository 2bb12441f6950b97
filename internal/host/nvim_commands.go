// Package host registers the Neovim command surface. It owns the live
// session and translates buffer and cursor autocommand traffic into sync
// events.
package host

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"epubsync/internal/app"
	"epubsync/internal/bridge"
	"epubsync/internal/config"
)

// Commands is a state container for Neovim command handlers. It tracks the
// active buffer and delegates rendering and sync to the LiveSession.
type Commands struct {
	session *app.LiveSession
	editor  *bridge.NvimEditor
	active  bool
}

func NewCommands() *Commands {
	cfg := config.Default()
	if path := os.Getenv("EPUBSYNC_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Printf("[epubsync] config %s: %v", path, err)
		} else {
			cfg = loaded
		}
	}
	return &Commands{session: app.NewLiveSession(cfg)}
}

// Register registers Neovim command/function handlers.
func Register(p *plugin.Plugin) error {
	commands := NewCommands()

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleCommand(&plugin.CommandOptions{
		Name: "EpubSyncStart",
	}, commands.EpubSyncStart)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "EpubSyncToc",
	}, commands.EpubSyncToc)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "EpubSyncInternalUpdate",
	}, commands.EpubSyncUpdate)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "EpubSyncInternalCursor",
	}, commands.EpubSyncCursor)

	return nil
}

func (c *Commands) EpubSyncStart(v *nvim.Nvim) error {
	if !c.active {
		c.editor = bridge.NewNvimEditor(v)
		if err := c.session.AttachEditor(c.editor); err != nil {
			return err
		}
		if err := c.session.Start(); err != nil {
			return err
		}
		c.active = true
	}

	if err := c.publishBuffer(v); err != nil {
		return err
	}
	if err := c.publishCursor(v); err != nil {
		return err
	}

	return v.Command(fmt.Sprintf(`echom "[epubsync] preview: %s"`, c.session.URL()))
}

// EpubSyncToc echoes the document outline to the message area.
func (c *Commands) EpubSyncToc(v *nvim.Nvim) error {
	if !c.active {
		return nil
	}
	outline := c.session.Outline()
	for _, item := range outline.Flat {
		indent := bytes.Repeat([]byte("  "), item.Level-1)
		if err := v.Command(fmt.Sprintf(`echom "%s%s (line %d)"`, indent, escapeEchom(item.Title), item.Line)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commands) EpubSyncUpdate(v *nvim.Nvim) error {
	if !c.active {
		return nil
	}
	return c.publishBuffer(v)
}

func (c *Commands) EpubSyncCursor(v *nvim.Nvim) error {
	if !c.active {
		return nil
	}
	return c.publishCursor(v)
}

func (c *Commands) currentPath(v *nvim.Nvim) (string, error) {
	return v.BufferName(0)
}

func (c *Commands) publishBuffer(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}

	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return err
	}

	path, err := c.currentPath(v)
	if err != nil {
		return err
	}

	c.session.SetSourcePath(path)
	c.editor.PublishContent(string(bytes.Join(lines, []byte("\n"))))
	return nil
}

func (c *Commands) publishCursor(v *nvim.Nvim) error {
	var line int
	if err := v.Eval(`line(".")`, &line); err != nil {
		return err
	}

	var col int
	if err := v.Eval(`col(".")`, &col); err != nil {
		return err
	}

	c.editor.PublishCursor(line, col)
	return nil
}

func escapeEchom(s string) string {
	return string(bytes.ReplaceAll([]byte(s), []byte(`"`), []byte(`\"`)))
}
