package main

import (
	"log"

	"github.com/neovim/go-client/nvim/plugin"

	"epubsync/internal/host"
)

// Connects to Neovim over the plugin protocol, registers command handlers,
// and keeps the connection alive listening for requests.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		log.Println("[epubsync] registering handlers")
		return host.Register(p)
	})
}
