package engine

import (
	"context"
	gotok "go/token"
	"io"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/internal/ctxlog"
	"github.com/jschaf/bibtex/v2/parser"
	"github.com/jschaf/bibtex/v2/render"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/jschaf/bibtex/v2/token"
)

// Format writes the named database to w in canonical form. Records keep
// their order, comments between them are kept, and macro references are
// written as references. mode is added to parser.ParseComments; pass
// parser.Trace to print the parse.
func Format(ctx context.Context, w io.Writer, finder resource.Finder, name string, mode parser.Mode) error {
	if finder == nil {
		finder = resource.SearchPath{}
	}
	src, err := resource.Read(finder, name, resource.Bib, token.NoLoc)
	if err != nil {
		return err
	}
	name = withExt(name, resource.Bib)
	f, err := parser.ParseFile(gotok.NewFileSet(), name, src, mode|parser.ParseComments)
	if err != nil {
		return parseErrors(name, err)
	}
	ctxlog.FromContext(ctx).Debug("formatting database", "name", name, "records", len(f.Entries))
	if err := render.NewRenderer().File(w, f); err != nil {
		return &bibtex.Error{Kind: bibtex.ErrIO, Msg: "formatting " + name, Err: err}
	}
	return nil
}
