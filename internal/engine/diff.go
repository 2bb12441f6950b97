package engine

import (
	"encoding/json"
	"strings"

	"epubsync/internal/contracts"
)

// LineDiff computes a common-prefix/common-suffix line diff between two
// revisions of the editor content. It is deliberately not an LCS diff: one
// contiguous replaced region is enough for preview updates, and it costs one
// pass from each end.
func LineDiff(oldContent, newContent string) *contracts.ContentDiff {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	limit := len(oldLines)
	if len(newLines) < limit {
		limit = len(newLines)
	}

	prefix := 0
	for prefix < limit && oldLines[prefix] == newLines[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < limit-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	// EndLine < StartLine marks a pure insertion before StartLine.
	return &contracts.ContentDiff{
		StartLine: prefix + 1,
		EndLine:   len(oldLines) - suffix,
		Lines:     newLines[prefix : len(newLines)-suffix],
	}
}

// diffSize is the serialized payload size used against the diff ceiling.
func diffSize(d *contracts.ContentDiff) int {
	b, err := json.Marshal(d)
	if err != nil {
		return 1 << 30
	}
	return len(b)
}
