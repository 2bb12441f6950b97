package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"epubsync/internal/app"
	"epubsync/internal/book"
	"epubsync/internal/watch"
)

var chapterHref string

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a live-synced preview of a document",
	Long: `Serve a document as a browser preview with bidirectional scroll and
cursor sync. The browser page hosts the editor pane; file changes on disk
are republished automatically.

For .epub files one chapter is served at a time; pick one with --chapter
(defaults to the first spine document).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		session := app.NewLiveSession(cfg)
		defer session.Close()

		if err := session.AttachRemoteEditor(); err != nil {
			return err
		}
		if err := session.Start(); err != nil {
			return err
		}

		publish := func() error {
			content, name, err := readSource(path)
			if err != nil {
				return err
			}
			return session.PublishSource([]byte(content), name)
		}
		if err := publish(); err != nil {
			return err
		}

		watcher, err := watch.New(path, func() {
			if err := publish(); err != nil {
				log.Printf("[epubsync] republish %s: %v", path, err)
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Close()

		fmt.Printf("preview: %s\n", session.URL())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

// readSource loads the document to publish. For EPUB containers it extracts
// one chapter; the returned name keeps the chapter's extension so the
// renderer dispatches correctly.
func readSource(path string) (content string, name string, err error) {
	if strings.EqualFold(filepath.Ext(path), ".epub") {
		b, err := book.Open(path)
		if err != nil {
			return "", "", err
		}
		defer b.Close()

		docs := b.Documents()
		if len(docs) == 0 {
			return "", "", fmt.Errorf("%s: no spine documents", path)
		}
		href := chapterHref
		if href == "" {
			href = docs[0].Href
		}
		chapter, err := b.Chapter(href)
		if err != nil {
			return "", "", err
		}
		return chapter, filepath.Join(path, href), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&chapterHref, "chapter", "", "spine href of the EPUB chapter to serve")
}
