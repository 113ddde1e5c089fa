package bibtex

import (
	"slices"
	"strings"

	"github.com/jschaf/bibtex/v2/token"
)

// Entry is one bibliographic record. Fields keep their declaration order.
// Locals hold the per-entry variables a style program writes, like sort.key$.
type Entry struct {
	Type string        // lowercased entry type, e.g. "article"
	Key  string        // citation key as written in the source
	Loc  token.Locator // where the record starts

	fields map[string]Value
	order  []string
	strs   map[string]string
	ints   map[string]int
}

// Fields returns the field names in declaration order.
func (e *Entry) Fields() []string {
	return slices.Clone(e.order)
}

// Field returns the entry's own value for name without following crossref.
func (e *Entry) Field(name string) (Value, bool) {
	v, ok := e.fields[strings.ToLower(name)]
	return v, ok
}

func (e *Entry) SetLocalString(name, s string) {
	if e.strs == nil {
		e.strs = make(map[string]string)
	}
	e.strs[name] = s
}

func (e *Entry) LocalString(name string) (string, bool) {
	s, ok := e.strs[name]
	return s, ok
}

func (e *Entry) SetLocalInt(name string, n int) {
	if e.ints == nil {
		e.ints = make(map[string]int)
	}
	e.ints[name] = n
}

func (e *Entry) LocalInt(name string) (int, bool) {
	n, ok := e.ints[name]
	return n, ok
}

// Database holds the entries, macros and preamble of one run. The zero value
// is not usable; create one with NewDatabase.
type Database struct {
	entries []*Entry          // current order for ITERATE, REVERSE and SORT
	loaded  []*Entry          // every entry in load order
	byKey   map[string]*Entry // exact citation key
	byFold  map[string]*Entry // lowercased citation key, first wins

	macros     map[string]Value
	macroOrder []string

	preamble Value
}

func NewDatabase() *Database {
	return &Database{
		byKey:  make(map[string]*Entry),
		byFold: make(map[string]*Entry),
		macros: make(map[string]Value),
	}
}

// InsertEntry creates an entry. Keys are unique, compared case-sensitively.
func (db *Database) InsertEntry(typ, key string, loc token.Locator) (*Entry, error) {
	if prev, ok := db.byKey[key]; ok {
		return nil, Errorf(ErrDuplicateKey, loc, "%q already defined at %s", key, prev.Loc)
	}
	e := &Entry{Type: strings.ToLower(typ), Key: key, Loc: loc, fields: make(map[string]Value)}
	db.byKey[key] = e
	fold := strings.ToLower(key)
	if _, ok := db.byFold[fold]; !ok {
		db.byFold[fold] = e
	}
	db.entries = append(db.entries, e)
	db.loaded = append(db.loaded, e)
	return e, nil
}

// SetField assigns a field. The first assignment fixes the field's position
// in the declaration order; later assignments overwrite in place.
func (db *Database) SetField(e *Entry, name string, v Value) {
	name = strings.ToLower(name)
	if _, ok := e.fields[name]; !ok {
		e.order = append(e.order, name)
	}
	e.fields[name] = v
}

// GetField returns the value of the named field. A field the entry lacks is
// looked up on the entry its crossref field names, one hop only. A crossref
// to an unknown key is an ErrMissingEntry error.
func (db *Database) GetField(e *Entry, name string) (Value, bool, error) {
	name = strings.ToLower(name)
	if v, ok := e.fields[name]; ok {
		return v, true, nil
	}
	if name == FieldCrossref {
		return nil, false, nil
	}
	xref, ok := e.fields[FieldCrossref]
	if !ok {
		return nil, false, nil
	}
	key := xref.Expand(db)
	parent, ok := db.Entry(key)
	if !ok {
		return nil, false, Errorf(ErrMissingEntry, e.Loc, "entry %q crossref %q", e.Key, key)
	}
	v, ok := parent.fields[name]
	return v, ok, nil
}

// StoreMacro defines or redefines a macro. Names are case-insensitive.
func (db *Database) StoreMacro(name string, v Value) {
	name = strings.ToLower(name)
	if _, ok := db.macros[name]; !ok {
		db.macroOrder = append(db.macroOrder, name)
	}
	db.macros[name] = v
}

func (db *Database) LookupMacro(name string) (Value, bool) {
	v, ok := db.macros[strings.ToLower(name)]
	return v, ok
}

// Macros returns the macro names in definition order.
func (db *Database) Macros() []string {
	return slices.Clone(db.macroOrder)
}

func (db *Database) AppendPreamble(v Value) {
	db.preamble = append(db.preamble, v...)
}

func (db *Database) Preamble() Value {
	return db.preamble
}

// Entry finds an entry by citation key, preferring an exact match and
// falling back to a case-insensitive one.
func (db *Database) Entry(key string) (*Entry, bool) {
	if e, ok := db.byKey[key]; ok {
		return e, true
	}
	e, ok := db.byFold[strings.ToLower(key)]
	return e, ok
}

// Entries returns a snapshot of the current entry order.
func (db *Database) Entries() []*Entry {
	return slices.Clone(db.entries)
}

// Len returns the number of entries in the current order.
func (db *Database) Len() int { return len(db.entries) }

// Select replaces the current entry order with the cited entries. Entries
// named in keys come first in citation order; if all is set, every other
// entry follows in load order. An uncited entry that is the crossref target
// of at least minCrossrefs selected entries is appended after them. Keys
// naming no entry are returned in citation order.
func (db *Database) Select(keys []string, all bool, minCrossrefs int) (missing []string) {
	seen := make(map[*Entry]bool, len(db.loaded))
	selected := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		e, ok := db.Entry(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		if !seen[e] {
			seen[e] = true
			selected = append(selected, e)
		}
	}
	if all {
		for _, e := range db.loaded {
			if !seen[e] {
				seen[e] = true
				selected = append(selected, e)
			}
		}
	}

	var targets []*Entry
	counts := make(map[*Entry]int)
	for _, e := range selected {
		xref, ok := e.fields[FieldCrossref]
		if !ok {
			continue
		}
		parent, ok := db.Entry(xref.Expand(db))
		if !ok || seen[parent] {
			continue
		}
		if counts[parent] == 0 {
			targets = append(targets, parent)
		}
		counts[parent]++
	}
	for _, t := range targets {
		if counts[t] >= minCrossrefs {
			selected = append(selected, t)
		}
	}
	db.entries = selected
	return missing
}

// Sort orders the entries by their sort.key$ local, comparing bytes. Entries
// without a key sort as "". Equal keys keep their relative order.
func (db *Database) Sort() {
	slices.SortStableFunc(db.entries, func(a, b *Entry) int {
		ka, _ := a.LocalString(SortKey)
		kb, _ := b.LocalString(SortKey)
		return strings.Compare(ka, kb)
	})
}
