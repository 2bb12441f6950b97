package mapping

import (
	"strconv"
	"strings"

	"epubsync/internal/textmatch"
)

// Mapping is one accepted editor-line / preview-element correspondence.
type Mapping struct {
	EditorLine int
	ElementID  string
	Text       string
	Confidence float64
}

// BuildOptions tune mapping acceptance. Zero values fall back to defaults.
type BuildOptions struct {
	// Threshold is the minimum confidence for accepting a match at build
	// time.
	Threshold float64
	// MinLineLength skips short structural lines (bare tags, closing
	// brackets) as mapping candidates.
	MinLineLength int
}

const (
	defaultBuildThreshold = 0.7
	defaultMinLineLength  = 3
)

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Threshold == 0 {
		o.Threshold = defaultBuildThreshold
	}
	if o.MinLineLength == 0 {
		o.MinLineLength = defaultMinLineLength
	}
	return o
}

// Build scans editor content line by line and matches each candidate line
// against the tagged preview elements, producing a sparse mapping list in
// line order. Lines with no acceptable match produce no entry. The full list
// is rebuilt from scratch on every call; stale mappings are never patched.
//
// Cost is O(lines x elements) similarity computations, which is fine for
// chapter-sized documents.
func Build(editorContent string, elements []Element, opts BuildOptions) []Mapping {
	opts = opts.withDefaults()
	lines := strings.Split(editorContent, "\n")

	var out []Mapping
	for i, raw := range lines {
		clean := textmatch.CleanLine(raw)
		if len([]rune(clean)) < opts.MinLineLength {
			continue
		}

		bestIdx := -1
		bestConf := 0.0
		for j, el := range elements {
			conf := textmatch.Confidence(clean, el.Text)
			if conf > bestConf {
				bestConf = conf
				bestIdx = j
			}
		}
		if bestIdx < 0 || bestConf < opts.Threshold {
			continue
		}

		el := elements[bestIdx]
		line := i + 1
		setNodeAttr(el.Node, LineAttr, strconv.Itoa(line))
		out = append(out, Mapping{
			EditorLine: line,
			ElementID:  el.ID,
			Text:       el.Text,
			Confidence: bestConf,
		})
	}
	return out
}
