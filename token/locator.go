package token

import (
	gotok "go/token"
	"strconv"
)

// Locator identifies a line in a named resource, like a .bib or .bst file.
// It's the position carried by every diagnostic.
type Locator struct {
	Name string // resource name, if any
	Line int    // line number, starting at 1; 0 if unknown
}

// NoLoc is the zero Locator, used when no source position is known.
var NoLoc = Locator{}

// LocatorOf converts a go/token position into a Locator, dropping the column.
func LocatorOf(pos gotok.Position) Locator {
	return Locator{Name: pos.Filename, Line: pos.Line}
}

// IsValid reports whether the locator names a line.
func (l Locator) IsValid() bool { return l.Line > 0 }

// String returns a string in one of several forms:
//
//	file:line    valid locator with a name
//	line         valid locator without a name
//	file         invalid locator with a name
//	-            invalid locator without a name
func (l Locator) String() string {
	s := l.Name
	if l.IsValid() {
		if s != "" {
			s += ":"
		}
		s += strconv.Itoa(l.Line)
	}
	if s == "" {
		s = "-"
	}
	return s
}
