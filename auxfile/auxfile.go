// Package auxfile reads the auxiliary files LaTeX writes for bibtex. They carry
// the citation keys of a document, the names of its bibliography databases
// and the bibliography style.
package auxfile

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/jschaf/bibtex/v2/token"
)

// AllEntries is the citation key \nocite{*} writes to select every entry.
const AllEntries = "*"

// File is the bibliography request collected from an aux file and the files
// it includes.
type File struct {
	Name      string
	Citations []string // citation keys in first-seen order, without duplicates
	Data      []string // database names from \bibdata
	Style     string   // style name from \bibstyle
}

// HasAll reports whether the document cites every entry.
func (f *File) HasAll() bool {
	for _, c := range f.Citations {
		if c == AllEntries {
			return true
		}
	}
	return false
}

var commandRe = regexp.MustCompile(`\\(citation|bibdata|bibstyle|@input)\{([^}]*)\}`)

type reader struct {
	finder resource.Finder
	file   *File
	seen   map[string]bool // citations
	files  map[string]bool // aux files read so far
	style  token.Locator
	data   token.Locator
}

// Read reads the named aux file, following \@input commands.
func Read(finder resource.Finder, name string) (*File, error) {
	r := &reader{
		finder: finder,
		file:   &File{Name: name},
		seen:   make(map[string]bool),
		files:  make(map[string]bool),
	}
	if err := r.read(name, token.NoLoc); err != nil {
		return nil, err
	}
	return r.file, nil
}

func (r *reader) read(name string, from token.Locator) error {
	if r.files[name] {
		return bibtex.Errorf(bibtex.ErrParse, from, "aux file %q included twice", name)
	}
	r.files[name] = true
	src, err := resource.Read(r.finder, name, resource.Aux, from)
	if err != nil {
		return err
	}
	line := 0
	for text := range bytes.Lines(src) {
		line++
		loc := token.Locator{Name: name, Line: line}
		for _, m := range commandRe.FindAllSubmatch(text, -1) {
			if err := r.command(string(m[1]), string(m[2]), loc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *reader) command(cmd, arg string, loc token.Locator) error {
	switch cmd {
	case "citation":
		for _, key := range splitArgs(arg) {
			if !r.seen[key] {
				r.seen[key] = true
				r.file.Citations = append(r.file.Citations, key)
			}
		}
	case "bibdata":
		if r.data.IsValid() {
			return bibtex.Errorf(bibtex.ErrParse, loc, `\bibdata repeated; first at %s`, r.data)
		}
		r.data = loc
		r.file.Data = splitArgs(arg)
	case "bibstyle":
		if r.style.IsValid() {
			return bibtex.Errorf(bibtex.ErrParse, loc, `\bibstyle repeated; first at %s`, r.style)
		}
		r.style = loc
		r.file.Style = strings.TrimSpace(arg)
	case "@input":
		return r.read(strings.TrimSpace(arg), loc)
	}
	return nil
}

func splitArgs(arg string) []string {
	var out []string
	for _, s := range strings.Split(arg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
