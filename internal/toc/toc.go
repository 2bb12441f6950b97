// Package toc extracts hierarchical outlines from document content. Markdown,
// HTML/XHTML, NCX, and OPF sources are supported, with a heuristic fallback
// for everything else. Extraction is independent of the sync mapping; the
// outline only carries line/offset anchors for navigation.
package toc

import "fmt"

// Item is one outline node. Parent is a non-owning index into the flat list
// (-1 for roots), kept as an index rather than a pointer so path
// reconstruction never creates retention cycles.
type Item struct {
	ID       string
	Title    string
	Level    int
	Line     int
	Offset   int
	Href     string
	Anchor   string
	Children []*Item
	Parent   int
}

// Structure aggregates one parse's outline.
type Structure struct {
	Items    []*Item // roots, document order
	Flat     []*Item // pre-order flattening
	MaxLevel int
	Total    int
}

// Options tune parsing. The zero value means defaults.
type Options struct {
	// MaxLevel drops entries deeper than this level. 0 means no limit.
	MaxLevel int
	// IncludeNumbering keeps outline numbering ("1.2.3") in titles.
	IncludeNumbering bool
	// ExtractAnchors pulls id attributes / hrefs into Anchor and Href.
	ExtractAnchors bool
}

// key produces the options part of a cache key.
func (o Options) key() string {
	return fmt.Sprintf("%d|%t|%t", o.MaxLevel, o.IncludeNumbering, o.ExtractAnchors)
}

// entry is a parser's raw output before nesting is established.
type entry struct {
	title  string
	level  int
	line   int
	offset int
	href   string
	anchor string
}

// assemble builds the tree from raw entries using a level stack: pop while
// the stack top's level is >= the new entry's level, then attach under the
// new top or to the root list. The child invariant item.Level > parent.Level
// follows directly.
func assemble(entries []entry, opts Options) *Structure {
	s := &Structure{}
	type frame struct {
		item *Item
		idx  int
	}
	var stack []frame

	for i, e := range entries {
		if opts.MaxLevel > 0 && e.level > opts.MaxLevel {
			continue
		}
		item := &Item{
			ID:     fmt.Sprintf("toc-%d", i),
			Title:  e.title,
			Level:  e.level,
			Line:   e.line,
			Offset: e.offset,
			Href:   e.href,
			Anchor: e.anchor,
			Parent: -1,
		}

		for len(stack) > 0 && stack[len(stack)-1].item.Level >= item.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.item.Children = append(top.item.Children, item)
			item.Parent = top.idx
		} else {
			s.Items = append(s.Items, item)
		}

		s.Flat = append(s.Flat, item)
		stack = append(stack, frame{item: item, idx: len(s.Flat) - 1})

		if item.Level > s.MaxLevel {
			s.MaxLevel = item.Level
		}
	}

	s.Total = len(s.Flat)
	return s
}

// ParentOf returns the parent of an item in this structure, or nil for roots.
func (s *Structure) ParentOf(item *Item) *Item {
	if item == nil || item.Parent < 0 || item.Parent >= len(s.Flat) {
		return nil
	}
	return s.Flat[item.Parent]
}
