package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"epubsync/internal/config"
)

var (
	configPath string
	addr       string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "epubsync",
	Short: "Live preview and scroll sync for EPUB sources",
	Long: `epubsync serves a browser preview of a markdown, HTML, or EPUB
document and keeps it position-synchronized with an editor in both
directions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg = config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if addr != "" {
			cfg.Addr = addr
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&addr, "addr", "a", "", "preview listen address (overrides config)")
}
