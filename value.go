package bibtex

import (
	"strings"
)

// ItemKind distinguishes the constituents of a field value.
type ItemKind int

const (
	StringLiteral ItemKind = iota // "quoted" text
	NumberLiteral                 // digits, kept in source form
	Block                         // {braced} text, kept verbatim
	MacroRef                      // bare word naming an @string macro
)

func (k ItemKind) String() string {
	switch k {
	case StringLiteral:
		return "StringLiteral"
	case NumberLiteral:
		return "NumberLiteral"
	case Block:
		return "Block"
	case MacroRef:
		return "MacroRef"
	default:
		return "UnknownItem"
	}
}

// Item is one constituent of a Value. For MacroRef, Text is the macro name.
type Item struct {
	Kind ItemKind
	Text string
}

// Value is the #-concatenation of items that makes up a field, macro, or
// preamble. A nil Value has no items; whether a field is present at all is
// reported separately by the lookup functions.
type Value []Item

func Str(s string) Item    { return Item{Kind: StringLiteral, Text: s} }
func Num(s string) Item    { return Item{Kind: NumberLiteral, Text: s} }
func Braced(s string) Item { return Item{Kind: Block, Text: s} }
func Macro(s string) Item  { return Item{Kind: MacroRef, Text: s} }

// MacroLookup resolves macro names during expansion.
type MacroLookup interface {
	LookupMacro(name string) (Value, bool)
}

// MaxMacroDepth bounds nested macro expansion. Deeper references expand to
// "".
const MaxMacroDepth = 32

// Expand concatenates the expansion of every item. Macro references resolve
// through macros when it is non-nil; undefined macros expand to "". A macro
// referenced while it is being expanded, directly or through other macros,
// also expands to "".
func (v Value) Expand(macros MacroLookup) string {
	if len(v) == 1 && v[0].Kind != MacroRef {
		return v[0].Text
	}
	sb := strings.Builder{}
	v.expand(&sb, macros, make(map[string]bool))
	return sb.String()
}

// expand writes v to sb. active holds the lowercased names of the macros
// being expanded.
func (v Value) expand(sb *strings.Builder, macros MacroLookup, active map[string]bool) {
	for _, it := range v {
		switch it.Kind {
		case StringLiteral, NumberLiteral, Block:
			sb.WriteString(it.Text)
		case MacroRef:
			name := strings.ToLower(it.Text)
			if macros == nil || active[name] || len(active) >= MaxMacroDepth {
				continue
			}
			if m, ok := macros.LookupMacro(name); ok {
				active[name] = true
				m.expand(sb, macros, active)
				delete(active, name)
			}
		}
	}
}

// String returns the value in .bib source form, like "ab" # jan # {c}.
func (v Value) String() string {
	sb := strings.Builder{}
	for i, it := range v {
		if i > 0 {
			sb.WriteString(" # ")
		}
		switch it.Kind {
		case StringLiteral:
			sb.WriteString(`"` + it.Text + `"`)
		case Block:
			sb.WriteString("{" + it.Text + "}")
		default:
			sb.WriteString(it.Text)
		}
	}
	return sb.String()
}
