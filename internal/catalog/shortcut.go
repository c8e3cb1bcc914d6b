package catalog

import "strings"

// Modifiers is the modifier state of a ctrl-key shortcut.
type Modifiers struct {
	Shift bool
	Alt   bool
	Meta  bool
}

var shortcutFamilies = map[string][3]string{
	"n": {"NP", "NP 2", "NP 3"},
	"l": {"LB", "LB 2", "LB 3"},
	"b": {"FCB", "FCB 2", "FCB 3"},
	"i": {"FCI", "FCI 2", "FCI 3"},
}

// Shortcut resolves ctrl+key to a primary heading code. Shift picks the second
// belief system, shift with exactly one of alt or meta picks the third. Any
// other combination falls back to the first.
func Shortcut(key string, mods Modifiers) (string, bool) {
	family, ok := shortcutFamilies[strings.ToLower(key)]
	if !ok {
		return "", false
	}
	switch {
	case mods.Shift && !mods.Alt && !mods.Meta:
		return family[1], true
	case mods.Shift && mods.Alt != mods.Meta:
		return family[2], true
	default:
		return family[0], true
	}
}

// ShortcutKeys lists the keys bound by Shortcut.
func ShortcutKeys() []string {
	return []string{"n", "l", "b", "i"}
}
