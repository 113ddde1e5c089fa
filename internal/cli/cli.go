// Package cli parses the bibtex command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jschaf/bibtex/v2/engine"
	"github.com/jschaf/bibtex/v2/parser"
	"github.com/jschaf/bibtex/v2/resource"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options are the parsed command line.
type Options struct {
	Config       string
	Aux          string
	Style        string
	Sources      []string
	Citations    []string
	Output       string
	Echo         bool
	Dump         bool
	Format       string // database to reformat instead of running a job
	Trace        bool
	Path         []string
	MinCrossrefs int
	MaxDepth     int
	LogLevel     string
	LogFormat    string
}

// stringList is a flag that may be repeated; each value may also hold a
// comma-separated list.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(s string) error {
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns the options, a boolean
// indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("bibtex", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
bibtex - formats the bibliography of a LaTeX document.

Usage:
  bibtex [options] [AUX_FILE]
  bibtex [options] -format BIB_FILE

Arguments:
  AUX_FILE
    The .aux file LaTeX wrote; it names the citations, databases and style.

Options:
`)
		flagSet.PrintDefaults()
	}

	var sources, citations stringList
	opts := &Options{}
	flagSet.StringVar(&opts.Config, "config", "", "Path to an HCL job manifest.")
	flagSet.StringVar(&opts.Style, "style", "", "Style file, overriding \\bibstyle.")
	flagSet.Var(&sources, "bib", "Database file to read after those named by \\bibdata. Repeatable.")
	flagSet.Var(&citations, "cite", "Citation key to format; '*' selects every entry. Repeatable.")
	flagSet.StringVar(&opts.Output, "o", "", "Output file; '-' is standard output. Defaults to the aux name with .bbl.")
	flagSet.BoolVar(&opts.Echo, "echo", false, "Copy the output to standard output as well.")
	flagSet.BoolVar(&opts.Dump, "dump", false, "Write the selected entries as .bib text to standard output after the run.")
	flagSet.StringVar(&opts.Format, "format", "", "Write the database in canonical form to standard output and exit.")
	flagSet.BoolVar(&opts.Trace, "trace", false, "Print a trace of the database parse. Only with -format.")
	pathFlag := flagSet.String("path", "", "Search path for aux, style and database files, separated by ':'.")
	flagSet.IntVar(&opts.MinCrossrefs, "min-crossrefs", 0, "Cross-references needed to include an uncited entry. 0 means 2.")
	flagSet.IntVar(&opts.MaxDepth, "max-depth", 0, "Maximum nesting of style function calls. 0 means 1000.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'auto' (the default), 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn' (the default), 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	switch flagSet.NArg() {
	case 0:
	case 1:
		opts.Aux = flagSet.Arg(0)
	default:
		return nil, false, &ExitError{Code: 2, Message: "expected at most one aux file, got " + strings.Join(flagSet.Args(), " ")}
	}
	if opts.Trace && opts.Format == "" {
		return nil, false, &ExitError{Code: 2, Message: "-trace requires -format"}
	}
	if opts.Format != "" && opts.Aux != "" {
		return nil, false, &ExitError{Code: 2, Message: "-format takes no aux file"}
	}
	if opts.Aux == "" && opts.Config == "" && opts.Style == "" && opts.Format == "" {
		flagSet.Usage()
		return nil, true, nil
	}
	opts.Sources = sources
	opts.Citations = citations
	opts.Path = resource.SplitList(*pathFlag)

	if opts.MinCrossrefs < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid min-crossrefs: must not be negative"}
	}
	if opts.MaxDepth < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid max-depth: must not be negative"}
	}

	opts.LogFormat = strings.ToLower(*logFormatFlag)
	switch opts.LogFormat {
	case "", "auto", "text", "json":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'auto', 'text' or 'json'"}
	}

	opts.LogLevel = strings.ToLower(*logLevelFlag)
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return opts, false, nil
}

// Apply overlays the command line on job, which usually comes from a
// manifest. Flags that were given win; lists are appended.
func (o *Options) Apply(job engine.Job) engine.Job {
	if o.Aux != "" {
		job.Aux = o.Aux
	}
	if o.Style != "" {
		job.Style = o.Style
	}
	job.Sources = append(job.Sources, o.Sources...)
	job.Citations = append(job.Citations, o.Citations...)
	if o.Output != "" {
		job.Output = o.Output
	}
	job.Echo = job.Echo || o.Echo
	if len(o.Path) > 0 {
		job.Finder = resource.SearchPath{Dirs: o.Path}
	}
	if o.MinCrossrefs > 0 {
		job.MinCrossrefs = o.MinCrossrefs
	}
	if o.MaxDepth > 0 {
		job.MaxCallDepth = o.MaxDepth
	}
	return job
}

// ParseMode returns the parser mode for -format.
func (o *Options) ParseMode() parser.Mode {
	if o.Trace {
		return parser.Trace
	}
	return 0
}

// NewLogger creates a logger for the given level and format. The auto
// format, also used when formatStr is empty, is text on a terminal and JSON
// otherwise.
func NewLogger(levelStr, formatStr string, outW io.Writer, terminal bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" || (formatStr == "auto" || formatStr == "") && !terminal {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
