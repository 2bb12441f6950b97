package toc

import (
	"encoding/xml"
	"log"
	"path"
	"strings"
)

// NCX document structures for toc.ncx content.
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID       string     `xml:"id,attr"`
	Label    navLabel   `xml:"navLabel"`
	Content  navContent `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// parseNCX decodes navPoint blocks from raw NCX content. Nested navPoint
// children produce real levels; a flat navMap yields a flat level-1 outline.
// Malformed XML degrades to zero entries.
func parseNCX(content string) []entry {
	var doc ncx
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		log.Printf("[epubsync] ncx parse: %v", err)
		return nil
	}

	var out []entry
	cursor := 0
	var walk func(points []navPoint, level int)
	walk = func(points []navPoint, level int) {
		for _, np := range points {
			title := strings.TrimSpace(np.Label.Text)
			if title == "" && len(np.Children) == 0 {
				continue
			}

			href := np.Content.Src
			anchor := ""
			if i := strings.Index(href, "#"); i >= 0 {
				anchor = href[i+1:]
				href = href[:i]
			}

			off, line := anchorPosition(content, title, &cursor)
			out = append(out, entry{
				title:  title,
				level:  level,
				line:   line,
				offset: off,
				href:   href,
				anchor: anchor,
			})
			walk(np.Children, level+1)
		}
	}
	walk(doc.NavMap.NavPoints, 1)
	return out
}

// OPF document structures for content.opf content.
type opfPackage struct {
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	Itemrefs []opfItemref `xml:"itemref"`
}

type opfItemref struct {
	IDRef string `xml:"idref,attr"`
}

// parseOPF walks spine itemrefs in reading order, resolves each against the
// manifest, and derives a title from the target filename.
func parseOPF(content string) []entry {
	var pkg opfPackage
	if err := xml.Unmarshal([]byte(content), &pkg); err != nil {
		log.Printf("[epubsync] opf parse: %v", err)
		return nil
	}

	byID := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		byID[item.ID] = item
	}

	var out []entry
	cursor := 0
	for _, ref := range pkg.Spine.Itemrefs {
		item, ok := byID[ref.IDRef]
		if !ok || item.Href == "" {
			continue
		}
		off, line := anchorPosition(content, ref.IDRef, &cursor)
		out = append(out, entry{
			title:  titleFromHref(item.Href),
			level:  1,
			line:   line,
			offset: off,
			href:   item.Href,
		})
	}
	return out
}

// titleFromHref turns "text/chapter_01.xhtml" into "chapter 01".
func titleFromHref(href string) string {
	base := path.Base(href)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}

// anchorPosition locates needle in content at or after *cursor, keeping
// anchors monotonic in document order. A miss anchors at the cursor.
func anchorPosition(content, needle string, cursor *int) (offset, line int) {
	offset = *cursor
	if needle != "" && *cursor <= len(content) {
		if i := strings.Index(content[*cursor:], needle); i >= 0 {
			offset = *cursor + i
			*cursor = offset + len(needle)
		}
	}
	return offset, lineAt(content, offset)
}
