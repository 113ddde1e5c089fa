package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/interp"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keysStyle = `
ENTRY {}{}{}
FUNCTION {show} { cite$ write$ newline$ }
READ
ITERATE {show}
`

var refs = []byte(`
@misc{a, title = "A"}
@misc{b, title = "B"}
@misc{c, title = "C"}
`)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"keys.bst": {Data: []byte(keysStyle)},
		"refs.bib": {Data: refs},
		"doc.aux": {Data: []byte(`\relax
\citation{b}
\citation{a}
\bibstyle{keys}
\bibdata{refs}
`)},
	}
}

func TestRun_aux(t *testing.T) {
	var out bytes.Buffer
	stats, err := Run(context.Background(), Job{
		Aux:    "doc",
		Output: Stdout,
		Stdout: &out,
		Finder: resource.SearchPath{FS: testFS()},
	})
	require.NoError(t, err)
	assert.Equal(t, interp.Stats{}, stats)
	assert.Equal(t, "b\na\n", out.String())
}

func TestRun_explicitJob(t *testing.T) {
	var out, dump bytes.Buffer
	stats, err := Run(context.Background(), Job{
		Style:     "keys.bst",
		Sources:   []string{"refs"},
		Citations: []string{"c", "*"},
		Stdout:    &out,
		Finder:    resource.SearchPath{FS: testFS()},
		Dump:      &dump,
	})
	require.NoError(t, err)
	assert.Zero(t, stats.Errors)
	assert.Equal(t, "c\na\nb\n", out.String())
	assert.Contains(t, dump.String(), "@misc{c,\n  title = \"C\",\n}\n")
}

func TestRun_jobOverridesAuxStyle(t *testing.T) {
	fsys := testFS()
	fsys["upper.bst"] = &fstest.MapFile{Data: []byte(`
ENTRY {}{}{}
FUNCTION {show} { cite$ "u" change.case$ write$ newline$ }
READ
ITERATE {show}
`)}
	var out bytes.Buffer
	_, err := Run(context.Background(), Job{
		Aux:       "doc.aux",
		Style:     "upper",
		Citations: []string{"c"},
		Output:    Stdout,
		Stdout:    &out,
		Finder:    resource.SearchPath{FS: fsys},
	})
	require.NoError(t, err)
	assert.Equal(t, "B\nA\nC\n", out.String())
}

func TestRun_outputFile(t *testing.T) {
	dir := t.TempDir()
	bbl := filepath.Join(dir, "doc.bbl")
	var echo bytes.Buffer
	_, err := Run(context.Background(), Job{
		Aux:    "doc",
		Output: bbl,
		Echo:   true,
		Stdout: &echo,
		Finder: resource.SearchPath{FS: testFS()},
	})
	require.NoError(t, err)
	got, err := os.ReadFile(bbl)
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", string(got))
	assert.Equal(t, "b\na\n", echo.String())
}

func TestRun_warningsAreCounted(t *testing.T) {
	var out bytes.Buffer
	stats, err := Run(context.Background(), Job{
		Style:     "keys",
		Sources:   []string{"refs"},
		Citations: []string{"a", "nope"},
		Stdout:    &out,
		Finder:    resource.SearchPath{FS: testFS()},
	})
	require.NoError(t, err)
	assert.Equal(t, interp.Stats{Warnings: 1}, stats)
	assert.Equal(t, "a\n", out.String())
}

func TestRun_errors(t *testing.T) {
	fsys := testFS()
	fsys["bad.bst"] = &fstest.MapFile{Data: []byte("READ\nFROB {x}\n")}
	fsys["nostyle.aux"] = &fstest.MapFile{Data: []byte(`\citation{a}`)}
	tests := []struct {
		name string
		job  Job
		kind bibtex.ErrorKind
		msg  string
	}{
		{"no style", Job{Aux: "nostyle"}, bibtex.ErrFileNotFound,
			`file not found: no style file; name one with \bibstyle or a style option`},
		{"missing style", Job{Style: "gone"}, bibtex.ErrFileNotFound,
			`file not found: style file "gone"`},
		{"missing aux", Job{Aux: "gone"}, bibtex.ErrFileNotFound,
			`file not found: aux file "gone"`},
		{"bad style", Job{Style: "bad"}, bibtex.ErrParse,
			`bad.bst:2: parse error: unknown command "frob"`},
		{"missing database", Job{Style: "keys", Sources: []string{"gone"}}, bibtex.ErrFileNotFound,
			`keys.bst:4: file not found: database file "gone"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.job.Finder = resource.SearchPath{FS: fsys}
			tt.job.Stdout = &bytes.Buffer{}
			stats, err := Run(context.Background(), tt.job)
			require.Error(t, err)
			assert.Equal(t, tt.kind, bibtex.KindOf(err))
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, 1, stats.Errors)
		})
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "doc.bbl", OutputName("doc.aux"))
	assert.Equal(t, "doc.bbl", OutputName("doc"))
	assert.Equal(t, "dir/paper.bbl", OutputName("dir/paper.aux"))
}
