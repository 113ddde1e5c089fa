// Package bibtex holds the in-memory bibliography: field values made of
// literal, block and macro items, the entries and macros of a Database, and
// the loader that fills a Database from parsed .bib files.
//
// A Database is built by Load or ParseInto and then read and reordered by the
// style interpreter. It is not safe for concurrent use.
package bibtex

// Field is a lowercased field name, like "author".
type Field = string

// Names with meaning to the database itself.
const (
	FieldCrossref Field = "crossref"
	SortKey             = "sort.key$" // entry local used by Database.Sort
)
