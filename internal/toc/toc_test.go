package toc

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMarkdown(t *testing.T) {
	s := ParseContent("# Title\n\nSome text\n\n## Sub\n", "c.md", Options{})

	if s.Total != 2 {
		t.Fatalf("Total = %d, want 2", s.Total)
	}
	if s.MaxLevel != 2 {
		t.Errorf("MaxLevel = %d, want 2", s.MaxLevel)
	}
	sub := s.Flat[1]
	if sub.Title != "Sub" || sub.Level != 2 {
		t.Errorf("second item = %q level %d, want Sub level 2", sub.Title, sub.Level)
	}
	parent := s.ParentOf(sub)
	if parent == nil || parent.Title != "Title" {
		t.Errorf("ParentOf(Sub) = %+v, want Title", parent)
	}
	if sub.Line != 5 {
		t.Errorf("Sub.Line = %d, want 5", sub.Line)
	}
}

func TestNestingInvariant(t *testing.T) {
	content := "# A\n## B\n### C\n## D\n# E\n### F\n"
	s := ParseContent(content, "doc.md", Options{})

	if len(s.Flat) != s.Total {
		t.Errorf("len(Flat) = %d, Total = %d", len(s.Flat), s.Total)
	}
	for _, it := range s.Flat {
		if p := s.ParentOf(it); p != nil && it.Level <= p.Level {
			t.Errorf("item %q level %d not deeper than parent %q level %d",
				it.Title, it.Level, p.Title, p.Level)
		}
	}
	// Document order in the flat list.
	var titles []string
	for _, it := range s.Flat {
		titles = append(titles, it.Title)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D", "E", "F"}, titles); diff != "" {
		t.Errorf("flat order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHTMLHeadings(t *testing.T) {
	content := `<html><body>
<h1 id="intro">Introduction</h1>
<p>text</p>
<h2>Getting Started</h2>
</body></html>`
	s := ParseContent(content, "c.xhtml", Options{ExtractAnchors: true})

	if s.Total != 2 {
		t.Fatalf("Total = %d, want 2", s.Total)
	}
	if s.Flat[0].Anchor != "intro" {
		t.Errorf("anchor = %q, want intro (from id attribute)", s.Flat[0].Anchor)
	}
	if s.Flat[1].Anchor != "getting-started" {
		t.Errorf("anchor = %q, want slugified getting-started", s.Flat[1].Anchor)
	}
	if s.Flat[1].Level != 2 {
		t.Errorf("h2 level = %d, want 2", s.Flat[1].Level)
	}
}

const flatNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/">
  <navMap>
    <navPoint id="np1"><navLabel><text>Cover</text></navLabel><content src="cover.xhtml"/></navPoint>
    <navPoint id="np2"><navLabel><text>Chapter 1</text></navLabel><content src="ch1.xhtml#start"/></navPoint>
    <navPoint id="np3"><navLabel><text>Chapter 2</text></navLabel><content src="ch2.xhtml"/></navPoint>
  </navMap>
</ncx>`

func TestParseNCXFlat(t *testing.T) {
	s := ParseContent(flatNCX, "toc.ncx", Options{})

	if s.Total != 3 {
		t.Fatalf("Total = %d, want 3", s.Total)
	}
	if s.MaxLevel != 1 {
		t.Errorf("MaxLevel = %d, want 1 for flat navMap", s.MaxLevel)
	}
	ch1 := s.Flat[1]
	if ch1.Title != "Chapter 1" || ch1.Href != "ch1.xhtml" || ch1.Anchor != "start" {
		t.Errorf("Chapter 1 entry = %+v", ch1)
	}
}

func TestParseNCXNested(t *testing.T) {
	content := `<ncx><navMap>
<navPoint id="a"><navLabel><text>Part One</text></navLabel><content src="p1.xhtml"/>
  <navPoint id="b"><navLabel><text>Chapter 1</text></navLabel><content src="c1.xhtml"/></navPoint>
</navPoint>
</navMap></ncx>`
	s := ParseContent(content, "toc.ncx", Options{})

	if s.Total != 2 {
		t.Fatalf("Total = %d, want 2", s.Total)
	}
	if s.MaxLevel != 2 {
		t.Errorf("MaxLevel = %d, want 2 for nested navPoints", s.MaxLevel)
	}
	if p := s.ParentOf(s.Flat[1]); p == nil || p.Title != "Part One" {
		t.Errorf("nested navPoint parent = %+v, want Part One", p)
	}
}

func TestParseNCXMalformed(t *testing.T) {
	s := ParseContent("<ncx><navMap><navPoint>", "toc.ncx", Options{})
	if s.Total != 0 {
		t.Errorf("malformed NCX: Total = %d, want 0", s.Total)
	}
}

func TestParseOPF(t *testing.T) {
	content := `<package>
<manifest>
  <item id="cov" href="cover.xhtml" media-type="application/xhtml+xml"/>
  <item id="c1" href="text/chapter_01.xhtml" media-type="application/xhtml+xml"/>
  <item id="css" href="style.css" media-type="text/css"/>
</manifest>
<spine>
  <itemref idref="cov"/>
  <itemref idref="c1"/>
  <itemref idref="missing"/>
</spine>
</package>`
	s := ParseContent(content, "content.opf", Options{})

	if s.Total != 2 {
		t.Fatalf("Total = %d, want 2 (missing idref skipped)", s.Total)
	}
	if s.Flat[0].Title != "cover" {
		t.Errorf("first title = %q, want cover", s.Flat[0].Title)
	}
	if s.Flat[1].Title != "chapter 01" {
		t.Errorf("second title = %q, want chapter 01", s.Flat[1].Title)
	}
	if s.Flat[1].Href != "text/chapter_01.xhtml" {
		t.Errorf("second href = %q", s.Flat[1].Href)
	}
}

func TestParseFallbackOutline(t *testing.T) {
	content := "1. Overview\n1.1 Detail\nplain prose line\n- bullet topic\n"
	s := ParseContent(content, "notes.txt", Options{})

	if s.Total != 3 {
		t.Fatalf("Total = %d, want 3", s.Total)
	}
	if s.Flat[0].Level != 1 || s.Flat[1].Level != 2 {
		t.Errorf("outline levels = %d, %d, want 1, 2", s.Flat[0].Level, s.Flat[1].Level)
	}
	if p := s.ParentOf(s.Flat[1]); p == nil || p.Title != "Overview" {
		t.Errorf("1.1 parent = %+v, want Overview", p)
	}
}

func TestMaxLevelOption(t *testing.T) {
	s := ParseContent("# A\n## B\n### C\n", "d.md", Options{MaxLevel: 2})
	if s.Total != 2 || s.MaxLevel != 2 {
		t.Errorf("MaxLevel filter: Total = %d, MaxLevel = %d", s.Total, s.MaxLevel)
	}
}

func TestFindByLineFloor(t *testing.T) {
	s := ParseContent("# A\ntext\n## B\ntext\n## C\n", "d.md", Options{})
	// Lines: A=1, B=3, C=5.
	cases := []struct {
		line int
		want string
	}{
		{1, "A"}, {2, "A"}, {3, "B"}, {4, "B"}, {5, "C"}, {100, "C"},
	}
	for _, c := range cases {
		got := s.FindByLine(c.line)
		if got == nil || got.Title != c.want {
			t.Errorf("FindByLine(%d) = %+v, want %q", c.line, got, c.want)
		}
	}
	if got := s.FindByLine(0); got != nil {
		t.Errorf("FindByLine(0) = %+v, want nil", got)
	}
}

func TestNextPrevious(t *testing.T) {
	s := ParseContent("# A\n## B\n# C\n", "d.md", Options{})
	a, b, c := s.Flat[0], s.Flat[1], s.Flat[2]

	if got := s.Next(a); got != b {
		t.Errorf("Next(A) = %+v", got)
	}
	if got := s.Next(c); got != nil {
		t.Errorf("Next(C) = %+v, want nil", got)
	}
	if got := s.Previous(b); got != a {
		t.Errorf("Previous(B) = %+v", got)
	}
	if got := s.Previous(a); got != nil {
		t.Errorf("Previous(A) = %+v, want nil", got)
	}
}

func TestManagerCacheHit(t *testing.T) {
	m := NewManager(8)

	first := m.Parse("# T\n## S\n", "a.md", Options{})
	second := m.Parse("# T\n## S\n", "a.md", Options{})

	if first != second {
		t.Errorf("identical parse inputs returned distinct structures")
	}
	if m.ParseCount() != 1 {
		t.Errorf("ParseCount = %d, want 1 (cache hit)", m.ParseCount())
	}

	// Different options miss.
	m.Parse("# T\n## S\n", "a.md", Options{MaxLevel: 1})
	if m.ParseCount() != 2 {
		t.Errorf("ParseCount = %d, want 2 after option change", m.ParseCount())
	}
}

func TestManagerCacheBounded(t *testing.T) {
	m := NewManager(4)
	for i := 0; i < 20; i++ {
		m.Parse(fmt.Sprintf("# Heading %d\n", i), "a.md", Options{})
	}
	if m.CacheLen() > 4 {
		t.Errorf("cache grew to %d entries, capacity 4", m.CacheLen())
	}

	// The most recent entry must still be resident.
	before := m.ParseCount()
	m.Parse("# Heading 19\n", "a.md", Options{})
	if m.ParseCount() != before {
		t.Errorf("most recent entry evicted prematurely")
	}
}

func TestManagerListeners(t *testing.T) {
	m := NewManager(8)
	var seen int
	dispose := m.AddChangeListener(func(*Structure) { seen++ })

	m.Parse("# A\n", "a.md", Options{})
	m.Parse("# A\n", "a.md", Options{}) // cache hit, no notify
	if seen != 1 {
		t.Errorf("listener called %d times, want 1", seen)
	}

	dispose()
	m.Parse("# B\n", "a.md", Options{})
	if seen != 1 {
		t.Errorf("disposed listener still called")
	}
}
