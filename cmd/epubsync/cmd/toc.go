package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"epubsync/internal/book"
	"epubsync/internal/toc"
)

var (
	tocMaxLevel int
	tocAnchors  bool
)

var tocCmd = &cobra.Command{
	Use:   "toc <file>",
	Short: "Print the table of contents of a document",
	Long: `Print the heading outline of a markdown or HTML document. For .epub
files the container's NCX navigation map is used, falling back to the
first spine document's headings when no NCX is present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		content, name, err := outlineSource(path)
		if err != nil {
			return err
		}

		outline := toc.ParseContent(content, name, toc.Options{
			MaxLevel:       tocMaxLevel,
			ExtractAnchors: tocAnchors,
		})
		if outline.Total == 0 {
			fmt.Println("no outline entries found")
			return nil
		}

		for _, item := range outline.Flat {
			indent := strings.Repeat("  ", item.Level-1)
			if tocAnchors && item.Anchor != "" {
				fmt.Printf("%s%s (line %d, #%s)\n", indent, item.Title, item.Line, item.Anchor)
				continue
			}
			fmt.Printf("%s%s (line %d)\n", indent, item.Title, item.Line)
		}
		return nil
	},
}

func outlineSource(path string) (content string, name string, err error) {
	if strings.EqualFold(filepath.Ext(path), ".epub") {
		b, err := book.Open(path)
		if err != nil {
			return "", "", err
		}
		defer b.Close()

		if ncx, ncxName, err := b.NCX(); err == nil {
			return ncx, ncxName, nil
		}

		docs := b.Documents()
		if len(docs) == 0 {
			return "", "", fmt.Errorf("%s: no NCX and no spine documents", path)
		}
		chapter, err := b.Chapter(docs[0].Href)
		if err != nil {
			return "", "", err
		}
		return chapter, docs[0].Href, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}

func init() {
	rootCmd.AddCommand(tocCmd)
	tocCmd.Flags().IntVar(&tocMaxLevel, "max-level", 0, "deepest heading level to include (0 = all)")
	tocCmd.Flags().BoolVar(&tocAnchors, "anchors", false, "show anchor slugs")
}
