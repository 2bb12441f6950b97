package mapping

// Table is an immutable lookup over one build's mapping list. It is discarded
// and replaced whenever the content or the preview document changes.
type Table struct {
	mappings []Mapping
	byLine   map[int]int
	byElem   map[string]int

	lookupThreshold float64
}

// DefaultLookupThreshold is the minimum distance-discounted confidence for
// the nearest-mapping fallback. Deliberately far below the build threshold:
// build decides whether a correspondence exists at all, lookup only chooses
// among correspondences that already passed that bar.
const DefaultLookupThreshold = 0.3

// NewTable indexes a mapping list. A zero lookupThreshold selects the
// default.
func NewTable(mappings []Mapping, lookupThreshold float64) *Table {
	if lookupThreshold == 0 {
		lookupThreshold = DefaultLookupThreshold
	}
	t := &Table{
		mappings:        mappings,
		byLine:          make(map[int]int, len(mappings)),
		byElem:          make(map[string]int, len(mappings)),
		lookupThreshold: lookupThreshold,
	}
	for i, m := range mappings {
		if _, dup := t.byLine[m.EditorLine]; !dup {
			t.byLine[m.EditorLine] = i
		}
		if _, dup := t.byElem[m.ElementID]; !dup {
			t.byElem[m.ElementID] = i
		}
	}
	return t
}

// Len reports the number of mappings.
func (t *Table) Len() int { return len(t.mappings) }

// Mappings returns the underlying list in line order.
func (t *Table) Mappings() []Mapping { return t.mappings }

// ByLine resolves an editor line to its mapping. An exact hit wins; otherwise
// the nearest mapping by line distance is returned if its confidence,
// discounted by distance, still clears the lookup threshold.
func (t *Table) ByLine(line int) (Mapping, bool) {
	if i, ok := t.byLine[line]; ok {
		return t.mappings[i], true
	}

	best := -1
	bestScore := 0.0
	for i, m := range t.mappings {
		dist := m.EditorLine - line
		if dist < 0 {
			dist = -dist
		}
		discount := 1 - float64(dist)/10
		if discount < 0.1 {
			discount = 0.1
		}
		score := m.Confidence * discount
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 || bestScore < t.lookupThreshold {
		return Mapping{}, false
	}
	return t.mappings[best], true
}

// ByElement resolves a preview element id to its mapping.
func (t *Table) ByElement(id string) (Mapping, bool) {
	if i, ok := t.byElem[id]; ok {
		return t.mappings[i], true
	}
	return Mapping{}, false
}
