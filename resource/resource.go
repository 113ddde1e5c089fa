// Package resource finds the files a run reads: bibliography databases,
// style programs and aux files.
package resource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/token"
)

// Kind is the kind of file looked up. It decides the default extension.
type Kind int

const (
	Bib Kind = iota + 1
	Style
	Aux
)

func (k Kind) Ext() string {
	switch k {
	case Bib:
		return ".bib"
	case Style:
		return ".bst"
	case Aux:
		return ".aux"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case Bib:
		return "database"
	case Style:
		return "style"
	case Aux:
		return "aux"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Finder resolves a name to a byte stream. A name that matches nothing is
// reported as (nil, false, nil); err is reserved for lookups that failed.
type Finder interface {
	Find(name string, kind Kind) (rc io.ReadCloser, ok bool, err error)
}

// SearchPath looks names up in a list of directories, first match wins. For
// each directory it tries the name as given and then with the kind's
// extension appended. A nil FS means the operating system's file system; no
// Dirs means the current directory.
type SearchPath struct {
	FS   fs.FS
	Dirs []string
}

func (sp SearchPath) candidates(name string, kind Kind) []string {
	names := []string{name}
	if ext := kind.Ext(); ext != "" && !strings.HasSuffix(name, ext) {
		names = append(names, name+ext)
	}
	return names
}

func (sp SearchPath) open(dir, name string) (fs.File, error) {
	if sp.FS == nil {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.Open(name)
	}
	p := path.Join(dir, name)
	if !fs.ValidPath(p) {
		return nil, fs.ErrNotExist
	}
	return sp.FS.Open(p)
}

func (sp SearchPath) Find(name string, kind Kind) (io.ReadCloser, bool, error) {
	dirs := sp.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		for _, cand := range sp.candidates(name, kind) {
			f, err := sp.open(dir, cand)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, false, err
			}
			info, err := f.Stat()
			if err != nil {
				f.Close()
				return nil, false, err
			}
			if info.IsDir() {
				f.Close()
				continue
			}
			return f, true, nil
		}
	}
	return nil, false, nil
}

// SplitList splits a search path like BIBINPUTS into directories. Empty
// elements are dropped.
func SplitList(list string) []string {
	var dirs []string
	for _, d := range filepath.SplitList(list) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Read finds and reads a whole resource. A missing resource is an
// ErrFileNotFound error and a failed read an ErrIO error, both located at
// loc.
func Read(f Finder, name string, kind Kind, loc token.Locator) ([]byte, error) {
	rc, ok, err := f.Find(name, kind)
	if err != nil {
		return nil, &bibtex.Error{Kind: bibtex.ErrIO, Loc: loc, Msg: name, Err: err}
	}
	if !ok {
		return nil, bibtex.Errorf(bibtex.ErrFileNotFound, loc, "%s file %q", kind, name)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &bibtex.Error{Kind: bibtex.ErrIO, Loc: loc, Msg: name, Err: err}
	}
	return b, nil
}
