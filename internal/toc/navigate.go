package toc

import "sort"

// FindByLine returns the flat entry with the largest Line not exceeding line
// (floor match), or nil when line precedes every entry.
func (s *Structure) FindByLine(line int) *Item {
	return s.floor(line, func(it *Item) int { return it.Line })
}

// FindByOffset is the byte-offset counterpart of FindByLine.
func (s *Structure) FindByOffset(offset int) *Item {
	return s.floor(offset, func(it *Item) int { return it.Offset })
}

func (s *Structure) floor(v int, key func(*Item) int) *Item {
	// Flat entries are in document order, so keys are non-decreasing.
	i := sort.Search(len(s.Flat), func(i int) bool {
		return key(s.Flat[i]) > v
	}) - 1
	if i < 0 {
		return nil
	}
	return s.Flat[i]
}

// Next returns the entry after item in the flat list, or nil at the end.
func (s *Structure) Next(item *Item) *Item {
	i := s.indexOf(item)
	if i < 0 || i+1 >= len(s.Flat) {
		return nil
	}
	return s.Flat[i+1]
}

// Previous returns the entry before item in the flat list, or nil at the
// start.
func (s *Structure) Previous(item *Item) *Item {
	i := s.indexOf(item)
	if i <= 0 {
		return nil
	}
	return s.Flat[i-1]
}

func (s *Structure) indexOf(item *Item) int {
	for i, it := range s.Flat {
		if it == item {
			return i
		}
	}
	return -1
}
