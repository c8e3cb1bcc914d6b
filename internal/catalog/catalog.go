// Package catalog holds the heading code tables used by session sections.
package catalog

import "strings"

type entry struct {
	code string
	name string
}

// Catalog maps short heading codes to display names. Lookups never fail:
// unknown codes and names pass through unchanged.
type Catalog struct {
	name     string
	entries  []entry
	index    map[string]string
	defaults map[string]string
}

func newCatalog(name string, entries []entry, defaults map[string]string) *Catalog {
	index := make(map[string]string, len(entries))
	for _, e := range entries {
		index[e.code] = e.name
	}
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Catalog{name: name, entries: entries, index: index, defaults: defaults}
}

// Name identifies the catalog ("primary" or "emotions").
func (c *Catalog) Name() string {
	return c.name
}

// FullName returns the display name for code, or code itself when unmapped.
func (c *Catalog) FullName(code string) string {
	if name, ok := c.index[code]; ok {
		return name
	}
	return code
}

// CodeFor is the reverse of FullName. It scans in catalog order and returns
// the first code whose display name matches.
func (c *Catalog) CodeFor(fullName string) string {
	for _, e := range c.entries {
		if e.name == fullName {
			return e.code
		}
	}
	return fullName
}

// Has reports whether code is a known heading.
func (c *Catalog) Has(code string) bool {
	_, ok := c.index[code]
	return ok
}

// Codes lists every code in display order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		codes = append(codes, e.code)
	}
	return codes
}

// DefaultContent is the text a freshly created section starts with.
func (c *Catalog) DefaultContent(code string) string {
	return c.defaults[code]
}

// DisplayHeading is the uppercase heading used by the PDF and email renderers.
func (c *Catalog) DisplayHeading(code string) string {
	return strings.ToUpper(c.FullName(code))
}

const DefragmentationHeading = "Defragmentation of the Subconcious Gap"

var primary = newCatalog("primary", []entry{
	{"NP", "Negative Program"},
	{"LB", "Limiting Belief"},
	{"FCB", "Faulty Core Belief"},
	{"FCI", "Faulty Core Identity"},
	{"NP 2", "Negative Program 2"},
	{"LB 2", "Limiting Belief 2"},
	{"FCB 2", "Faulty Core Belief 2"},
	{"FCI 2", "Faulty Core Identity 2"},
	{"NP 3", "Negative Program 3"},
	{"LB 3", "Limiting Belief 3"},
	{"FCB 3", "Faulty Core Belief 3"},
	{"FCI 3", "Faulty Core Identity 3"},
	{"PP", "Positive Program"},
	{"EB", "Empowering Belief"},
	{"ECB", "Empowering Core Belief"},
	{"ECI", "Empowering Core Identity"},
	{"Connected Emotions", "Connected Emotions"},
	{"Body Code Connections", "Body Code Connections"},
	{DefragmentationHeading, DefragmentationHeading},
	{"More", "More"},
}, map[string]string{
	DefragmentationHeading: "Closing the unwanted space in the subconscious mind",
})

var emotions = newCatalog("emotions", []entry{
	{"Anger", "Anger"},
	{"Fear", "Fear"},
	{"Sadness", "Sadness"},
	{"Joy", "Joy"},
	{"Surprise", "Surprise"},
	{"Disgust", "Disgust"},
	{"Shame", "Shame"},
	{"Guilt", "Guilt"},
	{"Anxiety", "Anxiety"},
	{"Depression", "Depression"},
	{"Excitement", "Excitement"},
	{"Contentment", "Contentment"},
	{"Frustration", "Frustration"},
	{"Gratitude", "Gratitude"},
	{"Hope", "Hope"},
	{"Despair", "Despair"},
	{"Love", "Love"},
	{"Hate", "Hate"},
	{"Confusion", "Confusion"},
	{"Clarity", "Clarity"},
}, nil)

// Primary is the catalog for ordinary sections.
func Primary() *Catalog { return primary }

// Emotions is the catalog for connected-emotion sections.
func Emotions() *Catalog { return emotions }

// SessionTypes and BeliefSources are the values offered by pickers. They are
// not validated on load.
var (
	SessionTypes = []string{
		"Simple",
		"Parallel: 2 beliefs in 1",
		"Parallel: 3 beliefs in 1",
		"Tangled",
		"Split",
		"Partial",
	}
	BeliefSources = []string{
		"suggested",
		"inherited from mother",
		"inherited from father",
		"from self",
	}
)
