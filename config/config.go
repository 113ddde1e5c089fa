// Package config loads job manifests written in HCL. A manifest names the
// inputs of a run so they need not be repeated on the command line:
//
//	aux          = "paper.aux"
//	style        = "plain"
//	sources      = ["refs", "${env.HOME}/bib/common"]
//	search_paths = [".", "/usr/share/texmf/bibtex"]
//	output       = "paper.bbl"
//
//	log {
//	  level  = "info"
//	  format = "text"
//	}
//
// Expressions may refer to environment variables as env.NAME.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/engine"
	"github.com/jschaf/bibtex/v2/internal/ctxlog"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/jschaf/bibtex/v2/token"
	"github.com/zclconf/go-cty/cty"
)

// File is a decoded manifest. Unset attributes keep their zero value.
type File struct {
	Aux          string   `hcl:"aux,optional"`
	Style        string   `hcl:"style,optional"`
	Sources      []string `hcl:"sources,optional"`
	Citations    []string `hcl:"citations,optional"`
	Output       string   `hcl:"output,optional"`
	Echo         bool     `hcl:"echo,optional"`
	SearchPaths  []string `hcl:"search_paths,optional"`
	MinCrossrefs int      `hcl:"min_crossrefs,optional"`
	MaxCallDepth int      `hcl:"max_call_depth,optional"`
	Log          *Log     `hcl:"log,block"`
}

// Log configures logging. Command line flags take precedence.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Load reads the manifest at path, with the process environment as env.
func Load(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, bibtex.Errorf(bibtex.ErrFileNotFound, token.NoLoc, "config file %q", path)
	}
	if err != nil {
		return nil, &bibtex.Error{Kind: bibtex.ErrIO, Msg: path, Err: err}
	}
	f, err := Parse(path, src, environ())
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("loaded config", "path", path, "style", f.Style, "sources", len(f.Sources))
	return f, nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// Parse decodes manifest source. Errors are reported as ErrParse at the
// line HCL blames.
func Parse(filename string, src []byte, env map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	hf, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	f := &File{}
	if diags := gohcl.DecodeBody(hf.Body, evalContext(env), f); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	if f.MinCrossrefs < 0 {
		return nil, bibtex.Errorf(bibtex.ErrParse, token.Locator{Name: filename}, "min_crossrefs is negative: %d", f.MinCrossrefs)
	}
	if f.MaxCallDepth < 0 {
		return nil, bibtex.Errorf(bibtex.ErrParse, token.Locator{Name: filename}, "max_call_depth is negative: %d", f.MaxCallDepth)
	}
	if f.Log != nil {
		if err := f.Log.validate(filename); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (l *Log) validate(filename string) error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return bibtex.Errorf(bibtex.ErrParse, token.Locator{Name: filename}, "unknown log level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", "auto", "text", "json":
	default:
		return bibtex.Errorf(bibtex.ErrParse, token.Locator{Name: filename}, "unknown log format %q", l.Format)
	}
	l.Level = strings.ToLower(l.Level)
	l.Format = strings.ToLower(l.Format)
	return nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}
	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

// diagError converts the first error diagnostic into an *bibtex.Error.
func diagError(filename string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		loc := token.Locator{Name: filename}
		if d.Subject != nil {
			loc.Line = d.Subject.Start.Line
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += "; " + d.Detail
		}
		return bibtex.Errorf(bibtex.ErrParse, loc, "%s", msg)
	}
	return bibtex.Errorf(bibtex.ErrParse, token.Locator{Name: filename}, "%s", diags.Error())
}

// Job returns the engine job the manifest describes.
func (f *File) Job() engine.Job {
	job := engine.Job{
		Aux:          f.Aux,
		Style:        f.Style,
		Sources:      f.Sources,
		Citations:    f.Citations,
		Output:       f.Output,
		Echo:         f.Echo,
		MinCrossrefs: f.MinCrossrefs,
		MaxCallDepth: f.MaxCallDepth,
	}
	if len(f.SearchPaths) > 0 {
		job.Finder = resource.SearchPath{Dirs: f.SearchPaths}
	}
	return job
}
