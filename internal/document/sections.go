package document

import (
	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/util"
)

// newID is swapped in tests that need predictable ids.
var newID = func() string { return util.NewID("") }

// NewSection creates a section for code with the catalog's default content.
func NewSection(cat *catalog.Catalog, code string) Section {
	return Section{
		ID:      newID(),
		Heading: code,
		Content: cat.DefaultContent(code),
	}
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Section, id string) int {
	for i, section := range list {
		if section.ID == id {
			return i
		}
	}
	return -1
}

// Duplicate inserts a copy of the section with id directly after it. The copy
// gets a fresh id and the heading's default content. Unknown ids leave the
// list unchanged.
func Duplicate(list []Section, cat *catalog.Catalog, id string) []Section {
	index := IndexOf(list, id)
	if index < 0 {
		return list
	}
	copySection := NewSection(cat, list[index].Heading)

	out := make([]Section, 0, len(list)+1)
	out = append(out, list[:index+1]...)
	out = append(out, copySection)
	out = append(out, list[index+1:]...)
	return out
}

// Remove drops the section with id. Removing an absent id is a no-op.
func Remove(list []Section, id string) []Section {
	out := make([]Section, 0, len(list))
	for _, section := range list {
		if section.ID != id {
			out = append(out, section)
		}
	}
	return out
}

// UpdateContent replaces the content of the section with id.
func UpdateContent(list []Section, id, text string) []Section {
	out := make([]Section, len(list))
	copy(out, list)
	if index := IndexOf(out, id); index >= 0 {
		out[index].Content = text
	}
	return out
}

// Move swaps the section with its neighbour delta positions away. Moves past
// either end are ignored.
func Move(list []Section, id string, delta int) []Section {
	out := make([]Section, len(list))
	copy(out, list)
	index := IndexOf(out, id)
	target := index + delta
	if index < 0 || delta == 0 || target < 0 || target >= len(out) {
		return out
	}
	out[index], out[target] = out[target], out[index]
	return out
}

// WithContent keeps only sections whose trimmed content is non-empty.
func WithContent(list []Section) []Section {
	out := make([]Section, 0, len(list))
	for _, section := range list {
		if section.HasContent() {
			out = append(out, section)
		}
	}
	return out
}
