// Package render produces the preview HTML for editor content. Markdown goes
// through goldmark with source-line annotations on block elements; XHTML
// chapter files pass through with their body extracted. The annotations and
// the fuzzy mapping share the data-sync-line attribute.
package render

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extensionast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"
)

// SyncLineAttr carries the 1-based source line on rendered block elements.
const SyncLineAttr = "data-sync-line"

// AssetRoute is the URL prefix for local book assets (images referenced by
// chapters), served by the HTTP layer from encoded absolute paths.
const AssetRoute = "/@bookfs/"

// Renderer wraps a pre-configured goldmark instance.
type Renderer struct {
	md goldmark.Markdown
}

//go:embed page.html
var pageTemplate string

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			alertcallouts.AlertCallouts,
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Linkify,
			highlighting.NewHighlighting(
				highlighting.WithWrapperRenderer(renderHighlightedCodeWrapper),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md}
}

// ConvertDocument renders editor content to a preview fragment, dispatching
// on the source path's extension. Markdown is converted; XHTML/HTML chapters
// pass through with their body content extracted; anything else is wrapped as
// preformatted text.
func (r *Renderer) ConvertDocument(source []byte, sourcePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".md", ".markdown", "":
		return r.ConvertFragment(source, sourcePath)
	case ".html", ".xhtml", ".htm", ".xml":
		return extractBody(string(source)), nil
	default:
		var b strings.Builder
		b.WriteString("<pre>")
		escapeInto(&b, string(source))
		b.WriteString("</pre>")
		return b.String(), nil
	}
}

// ConvertFragment parses markdown source and returns the HTML fragment with
// data-sync-line attributes attached to block elements. If sourcePath is set,
// local image destinations are rewritten to the preview asset route.
func (r *Renderer) ConvertFragment(source []byte, sourcePath string) (string, error) {
	doc := r.md.Parser().Parse(text.NewReader(source))
	decorateAST(doc, source, sourcePath)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderShell returns the HTML page shell served on first load. Content and
// sync traffic arrive over the WebSocket afterwards.
func (r *Renderer) RenderShell() string {
	return strings.Replace(pageTemplate, "{{CONTENT}}", "", 1)
}

// extractBody returns the inner content of an XHTML document's body element,
// or the whole source when no body tags are found.
func extractBody(source string) string {
	lower := strings.ToLower(source)
	start := strings.Index(lower, "<body")
	if start < 0 {
		return source
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return source
	}
	start += open + 1
	end := strings.LastIndex(lower, "</body")
	if end < start {
		return source
	}
	return source[start:end]
}

func escapeInto(b *strings.Builder, s string) {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	_, _ = replacer.WriteString(b, s)
}

// decorateAST walks the document once, attaching data-sync-line to block
// elements and rewriting local image destinations to the asset route.
func decorateAST(doc ast.Node, source []byte, sourcePath string) {
	baseDir := ""
	if sourcePath != "" {
		baseDir = filepath.Dir(sourcePath)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if shouldAnnotateNode(n) {
			if offset, ok := firstNodeOffset(n); ok {
				n.SetAttributeString(SyncLineAttr, strconv.Itoa(offsetToLine(source, offset)))
			}
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}

		rawDest := strings.TrimSpace(string(img.Destination))
		if rawDest == "" {
			return ast.WalkContinue, nil
		}

		lowerDest := strings.ToLower(rawDest)
		if strings.HasPrefix(lowerDest, "http://") ||
			strings.HasPrefix(lowerDest, "https://") ||
			strings.HasPrefix(lowerDest, "data:") ||
			strings.HasPrefix(lowerDest, "blob:") ||
			strings.HasPrefix(lowerDest, "file://") ||
			strings.HasPrefix(lowerDest, "//") ||
			strings.HasPrefix(lowerDest, "#") ||
			strings.HasPrefix(lowerDest, AssetRoute) {
			return ast.WalkContinue, nil
		}

		resolved := rawDest
		if !filepath.IsAbs(rawDest) {
			if baseDir == "" {
				return ast.WalkContinue, nil
			}
			resolved = filepath.Join(baseDir, rawDest)
		}

		img.Destination = []byte(AssetRoute + base64.RawURLEncoding.EncodeToString([]byte(filepath.Clean(resolved))))
		img.SetAttributeString("loading", "lazy")
		img.SetAttributeString("decoding", "async")
		return ast.WalkContinue, nil
	})
}

// shouldAnnotateNode reports whether a node type maps directly to source
// lines and should carry line metadata.
func shouldAnnotateNode(n ast.Node) bool {
	switch n.Kind() {
	case ast.KindHeading,
		ast.KindParagraph,
		ast.KindBlockquote,
		ast.KindFencedCodeBlock,
		ast.KindList,
		ast.KindListItem,
		ast.KindThematicBreak,
		extensionast.KindTable:
		return true
	default:
		return false
	}
}

// firstNodeOffset returns the byte offset of the first line in a node,
// searching children when the node has no lines of its own (lists delegate to
// their items).
func firstNodeOffset(n ast.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, true
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if offset, ok := firstNodeOffset(child); ok {
			return offset, true
		}
	}
	return 0, false
}

// offsetToLine converts a byte offset to a 1-based line number, clamped to
// the source.
func offsetToLine(source []byte, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}

// renderHighlightedCodeWrapper wraps highlighted code blocks in a div
// carrying the sync line attribute, transferring the value set during the
// decorate walk.
func renderHighlightedCodeWrapper(w util.BufWriter, context highlighting.CodeBlockContext, entering bool) {
	line, ok := highlightedCodeLine(context)
	if !ok {
		return
	}
	if entering {
		_, _ = w.WriteString("<div ")
		_, _ = w.WriteString(SyncLineAttr)
		_, _ = w.WriteString(`="`)
		_, _ = w.WriteString(line)
		_, _ = w.WriteString(`">`)
		return
	}
	_, _ = w.WriteString("</div>")
}

func highlightedCodeLine(context highlighting.CodeBlockContext) (string, bool) {
	if context == nil {
		return "", false
	}
	attrs := context.Attributes()
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.GetString(SyncLineAttr)
	if !ok {
		return "", false
	}
	switch typed := v.(type) {
	case string:
		return typed, typed != ""
	case []byte:
		if len(typed) == 0 {
			return "", false
		}
		return string(typed), true
	default:
		return "", false
	}
}
