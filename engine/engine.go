// Package engine runs one bibliography job: it gathers the request from an
// aux file and explicit options, compiles the style, and formats the cited
// entries into a .bbl file.
package engine

import (
	"context"
	"errors"
	"fmt"
	goscan "go/scanner"
	"io"
	"os"
	"strings"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/auxfile"
	"github.com/jschaf/bibtex/v2/bst"
	"github.com/jschaf/bibtex/v2/internal/ctxlog"
	"github.com/jschaf/bibtex/v2/interp"
	"github.com/jschaf/bibtex/v2/render"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/jschaf/bibtex/v2/sink"
	"github.com/jschaf/bibtex/v2/token"
)

// Stdout is the name of the output that writes to Job.Stdout.
const Stdout = "-"

// Job describes one run. Fields set explicitly take precedence over the aux
// file: Style replaces \bibstyle, while Sources and Citations are added to
// \bibdata and \citation.
type Job struct {
	Aux       string   // aux file; or empty
	Style     string   // style name, with or without .bst
	Sources   []string // database names, with or without .bib
	Citations []string // cited keys; "*" selects every entry

	// Output is the .bbl path. Empty means the aux name with a .bbl
	// extension, or Stdout if there is no aux file.
	Output string
	// Echo copies the output to Stdout as well.
	Echo   bool
	Stdout io.Writer // nil means os.Stdout

	Finder       resource.Finder // nil searches the working directory
	MinCrossrefs int
	MaxCallDepth int

	// Dump, if set, receives the selected entries as .bib text after a
	// successful run.
	Dump io.Writer
}

// Run executes job. The returned stats count every warning and error; a
// fatal error is also returned. Run never decides how to exit.
func Run(ctx context.Context, job Job) (interp.Stats, error) {
	log := ctxlog.FromContext(ctx)
	failed := interp.Stats{Errors: 1}
	if job.Finder == nil {
		job.Finder = resource.SearchPath{}
	}
	if job.Stdout == nil {
		job.Stdout = os.Stdout
	}

	cfg := interp.Config{
		Finder:       job.Finder,
		MinCrossrefs: job.MinCrossrefs,
		MaxCallDepth: job.MaxCallDepth,
		Logger:       log,
	}
	style := job.Style
	if job.Aux != "" {
		af, err := auxfile.Read(job.Finder, job.Aux)
		if err != nil {
			return failed, err
		}
		log.Debug("read aux file", "name", job.Aux, "citations", len(af.Citations), "databases", len(af.Data), "all", af.HasAll())
		if style == "" {
			style = af.Style
		}
		cfg.Sources = append(cfg.Sources, af.Data...)
		cfg.Citations.Keys = append(cfg.Citations.Keys, af.Citations...)
		cfg.Citations.All = af.HasAll()
	}
	cfg.Sources = append(cfg.Sources, job.Sources...)
	cfg.Citations.Keys = append(cfg.Citations.Keys, job.Citations...)
	if style == "" {
		return failed, bibtex.Errorf(bibtex.ErrFileNotFound, token.NoLoc, "no style file; name one with \\bibstyle or a style option")
	}

	src, err := resource.Read(job.Finder, style, resource.Style, token.NoLoc)
	if err != nil {
		return failed, err
	}
	prog, err := Compile(withExt(style, resource.Style), src)
	if err != nil {
		return failed, err
	}
	log.Debug("compiled style", "name", style, "commands", len(prog.Commands))

	out, err := openOutput(job)
	if err != nil {
		return failed, err
	}
	cfg.Sink = out

	p := interp.New(cfg)
	stats, err := p.Run(ctx, prog)
	if err != nil {
		return stats, err
	}
	if job.Dump != nil {
		if err := render.Database(job.Dump, p.Database()); err != nil {
			stats.Errors++
			return stats, &bibtex.Error{Kind: bibtex.ErrIO, Msg: "dumping database", Err: err}
		}
	}
	return stats, nil
}

// Compile parses a style program. Every syntax error is reported, each as
// an *bibtex.Error of kind ErrParse.
func Compile(name string, src []byte) (*bst.Program, error) {
	prog, err := bst.Parse(name, src)
	if err != nil {
		return nil, parseErrors(name, err)
	}
	return prog, nil
}

// parseErrors converts the scanner.ErrorList of a parser into ErrParse
// errors, one per entry.
func parseErrors(name string, err error) error {
	var list goscan.ErrorList
	if !errors.As(err, &list) {
		return &bibtex.Error{Kind: bibtex.ErrParse, Loc: token.Locator{Name: name}, Err: err}
	}
	errs := make([]error, len(list))
	for i, e := range list {
		errs[i] = bibtex.Errorf(bibtex.ErrParse, token.LocatorOf(e.Pos), "%s", e.Msg)
	}
	return errors.Join(errs...)
}

func withExt(name string, kind resource.Kind) string {
	if strings.HasSuffix(name, kind.Ext()) {
		return name
	}
	return name + kind.Ext()
}

// OutputName returns the .bbl path for an aux file.
func OutputName(auxName string) string {
	return strings.TrimSuffix(auxName, resource.Aux.Ext()) + ".bbl"
}

func openOutput(job Job) (sink.Sink, error) {
	name := job.Output
	if name == "" && job.Aux != "" {
		name = OutputName(job.Aux)
	}
	if name == "" || name == Stdout {
		return sink.NewWriter(sink.NopCloser(job.Stdout)), nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, &bibtex.Error{Kind: bibtex.ErrIO, Msg: fmt.Sprintf("creating %s", name), Err: err}
	}
	out := sink.Sink(sink.NewWriter(f))
	if job.Echo {
		out = sink.Tee(out, sink.NewWriter(sink.NopCloser(job.Stdout)))
	}
	return out, nil
}
