// Command bibtex formats the bibliography of a LaTeX document.
//
// It reads the citations, database names and style name from an aux file,
// runs the style program over the cited entries of the databases, and writes
// the result to a .bbl file. It exits with status 0 after a clean run, 1 if
// there were warnings, and 2 if there were errors.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jschaf/bibtex/v2/config"
	"github.com/jschaf/bibtex/v2/engine"
	"github.com/jschaf/bibtex/v2/internal/cli"
	"github.com/jschaf/bibtex/v2/internal/ctxlog"
	"github.com/jschaf/bibtex/v2/interp"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/mattn/go-isatty"
)

// Exit statuses, following the history levels of BibTeX.
const (
	exitClean    = 0
	exitWarnings = 1
	exitErrors   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code, err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// run encapsulates the main application logic for easier testing. It
// returns the exit status and the error that caused a failed run.
func run(ctx context.Context, outW, errW io.Writer, args []string) (int, error) {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return exitErrors, err
	}
	if shouldExit {
		return exitClean, nil
	}
	job := engine.Job{}
	level, format := opts.LogLevel, opts.LogFormat
	if opts.Config != "" {
		f, err := config.Load(ctx, opts.Config)
		if err != nil {
			return exitErrors, err
		}
		job = f.Job()
		if f.Log != nil {
			level = cmp.Or(level, f.Log.Level)
			format = cmp.Or(format, f.Log.Format)
		}
	}
	log := cli.NewLogger(level, format, errW, isTerminal(errW))
	ctx = ctxlog.WithLogger(ctx, log)

	job = opts.Apply(job)
	if job.Finder == nil {
		if dirs := resource.SplitList(os.Getenv("BIBINPUTS")); len(dirs) > 0 {
			job.Finder = resource.SearchPath{Dirs: append([]string{"."}, dirs...)}
		}
	}
	if opts.Format != "" {
		if err := engine.Format(ctx, outW, job.Finder, opts.Format, opts.ParseMode()); err != nil {
			return exitErrors, err
		}
		return exitClean, nil
	}
	job.Stdout = outW
	if opts.Dump {
		job.Dump = outW
	}

	stats, err := engine.Run(ctx, job)
	summarize(errW, stats)
	return exitCode(stats, err), err
}

func exitCode(stats interp.Stats, err error) int {
	switch {
	case err != nil || stats.Errors > 0:
		return exitErrors
	case stats.Warnings > 0:
		return exitWarnings
	default:
		return exitClean
	}
}

func summarize(w io.Writer, stats interp.Stats) {
	plural := func(n int, what string) string {
		if n == 1 {
			return "was 1 " + what
		}
		return fmt.Sprintf("were %d %ss", n, what)
	}
	switch {
	case stats.Errors > 0:
		fmt.Fprintf(w, "(There %s)\n", plural(stats.Errors, "error message"))
	case stats.Warnings > 0:
		fmt.Fprintf(w, "(There %s)\n", plural(stats.Warnings, "warning"))
	}
}
