package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jschaf/bibtex/v2/internal/cli"
	"github.com/jschaf/bibtex/v2/interp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const style = `
ENTRY {title}{}{}
FUNCTION {show} { cite$ ": " * title * write$ newline$ }
READ
ITERATE {show}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return dir
}

func TestRun(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"show.bst": style,
		"refs.bib": `@misc{a, title = "Alpha"} @misc{b, title = "Beta"}`,
		"doc.aux":  "\\citation{b}\n\\bibdata{refs}\n\\bibstyle{show}\n",
	})
	var out, errOut bytes.Buffer
	code, err := run(context.Background(), &out, &errOut, []string{
		"-path", dir, "-o", "-", "-log-format", "text", "doc",
	})
	require.NoError(t, err)
	assert.Equal(t, exitClean, code)
	assert.Equal(t, "b: Beta\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestRun_config(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"show.bst": style,
		"refs.bib": `@misc{a, title = "Alpha"}`,
	})
	bbl := filepath.Join(dir, "out.bbl")
	cfg := filepath.Join(dir, "bibtex.hcl")
	require.NoError(t, os.WriteFile(cfg, []byte(`
style       = "show"
sources     = ["refs"]
citations   = ["a", "missing"]
search_paths = ["`+dir+`"]
output      = "`+bbl+`"
`), 0o644))

	var out, errOut bytes.Buffer
	code, err := run(context.Background(), &out, &errOut, []string{"-config", cfg, "-log-format", "text", "-dump"})
	require.NoError(t, err)
	assert.Equal(t, exitWarnings, code)
	got, err := os.ReadFile(bbl)
	require.NoError(t, err)
	assert.Equal(t, "a: Alpha\n", string(got))
	assert.Equal(t, "@misc{a,\n  title = \"Alpha\",\n}\n", out.String())
	assert.Contains(t, errOut.String(), `I didn't find a database entry for \"missing\"`)
	assert.Contains(t, errOut.String(), "(There was 1 warning)\n")
}

func TestRun_format(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"refs.bib": "@misc{a,title={Alpha}}  @string{ s = \"S\" }\n",
	})
	var out, errOut bytes.Buffer
	code, err := run(context.Background(), &out, &errOut, []string{"-path", dir, "-format", "refs"})
	require.NoError(t, err)
	assert.Equal(t, exitClean, code)
	assert.Equal(t, "@misc{a,\n  title = {Alpha},\n}\n\n@string{s = \"S\"}\n", out.String())
	assert.Empty(t, errOut.String())

	code, err = run(context.Background(), &out, &errOut, []string{"-path", dir, "-format", "gone"})
	require.Error(t, err)
	assert.Equal(t, exitErrors, code)
}

func TestRun_fatal(t *testing.T) {
	dir := writeFiles(t, map[string]string{"doc.aux": "\\bibstyle{gone}\n"})
	var out, errOut bytes.Buffer
	code, err := run(context.Background(), &out, &errOut, []string{"-path", dir, "-o", "-", "doc"})
	require.Error(t, err)
	assert.Equal(t, exitErrors, code)
	assert.Contains(t, err.Error(), `style file "gone"`)
	assert.Contains(t, errOut.String(), "(There was 1 error message)\n")
}

func TestRun_usageError(t *testing.T) {
	code, err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-log-level", "loud", "doc"})
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitErrors, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitClean, exitCode(interp.Stats{}, nil))
	assert.Equal(t, exitWarnings, exitCode(interp.Stats{Warnings: 3}, nil))
	assert.Equal(t, exitErrors, exitCode(interp.Stats{Errors: 1, Warnings: 3}, nil))
	assert.Equal(t, exitErrors, exitCode(interp.Stats{}, errors.New("boom")))
}
