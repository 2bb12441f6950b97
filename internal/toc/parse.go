package toc

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ParseContent extracts an outline from raw content, dispatching on the file
// extension. It is a pure function of (content, fileName, opts); malformed
// input degrades to an empty or partial structure, never an error.
func ParseContent(content, fileName string, opts Options) *Structure {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".md", ".markdown":
		return assemble(parseMarkdown(content), opts)
	case ".html", ".xhtml", ".htm", ".xml":
		return assemble(parseHTMLHeadings(content, opts), opts)
	case ".ncx":
		return assemble(parseNCX(content), opts)
	case ".opf":
		return assemble(parseOPF(content), opts)
	default:
		return assemble(parseFallback(content, opts), opts)
	}
}

var markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

func parseMarkdown(content string) []entry {
	var out []entry
	offset := 0
	for i, line := range strings.Split(content, "\n") {
		if m := markdownHeading.FindStringSubmatch(line); m != nil {
			out = append(out, entry{
				title:  strings.TrimSpace(m[2]),
				level:  len(m[1]),
				line:   i + 1,
				offset: offset,
			})
		}
		offset += len(line) + 1
	}
	return out
}

var (
	htmlHeading = regexp.MustCompile(`(?is)<h([1-6])([^>]*)>(.*?)</h[1-6]\s*>`)
	idAttr      = regexp.MustCompile(`(?i)\bid\s*=\s*["']([^"']+)["']`)
	innerTag    = regexp.MustCompile(`<[^>]*>`)
)

func parseHTMLHeadings(content string, opts Options) []entry {
	var out []entry
	for _, loc := range htmlHeading.FindAllStringSubmatchIndex(content, -1) {
		level := int(content[loc[2]] - '0')
		attrs := content[loc[4]:loc[5]]
		inner := content[loc[6]:loc[7]]

		title := strings.TrimSpace(innerTag.ReplaceAllString(inner, ""))
		if title == "" {
			continue
		}

		anchor := ""
		if opts.ExtractAnchors {
			if m := idAttr.FindStringSubmatch(attrs); m != nil {
				anchor = m[1]
			} else {
				anchor = Slugify(title)
			}
		}

		out = append(out, entry{
			title:  title,
			level:  level,
			line:   lineAt(content, loc[0]),
			offset: loc[0],
			anchor: anchor,
		})
	}
	return out
}

// Fallback heuristics tried per line, in order. First match wins.
var fallbackPatterns = []struct {
	re       *regexp.Regexp
	numbered bool
	level    func(m []string) int
}{
	{regexp.MustCompile(`^(#{1,6})\s+(.+)$`), false, func(m []string) int { return len(m[1]) }},
	{regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)[.)]?\s+(.+)$`), true, func(m []string) int { return strings.Count(m[1], ".") + 1 }},
	{regexp.MustCompile(`^\s*([A-Z](?:\.[A-Z0-9]+)*)\.\s+(.+)$`), true, func(m []string) int { return strings.Count(m[1], ".") + 1 }},
	{regexp.MustCompile(`^\s*\*\s+(.+)$`), false, func(m []string) int { return 1 }},
	{regexp.MustCompile(`^\s*-\s+(.+)$`), false, func(m []string) int { return 1 }},
}

func parseFallback(content string, opts Options) []entry {
	var out []entry
	offset := 0
	for i, line := range strings.Split(content, "\n") {
		for _, p := range fallbackPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			title := strings.TrimSpace(m[len(m)-1])
			if title == "" {
				break
			}
			if opts.IncludeNumbering && p.numbered {
				title = strings.TrimSpace(m[1]) + " " + title
			}
			out = append(out, entry{
				title:  title,
				level:  p.level(m),
				line:   i + 1,
				offset: offset,
			})
			break
		}
		offset += len(line) + 1
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9-]+`)
var dashRun = regexp.MustCompile(`-{2,}`)

// Slugify derives an anchor from a title: lowercase, spaces to dashes,
// everything outside [a-z0-9-] stripped, dash runs collapsed.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlug.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// lineAt converts a byte offset to a 1-based line number.
func lineAt(content string, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}
