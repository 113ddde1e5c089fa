package auxfile

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/resource"
)

func finder(files map[string]string) resource.Finder {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return resource.SearchPath{FS: fsys}
}

func TestRead(t *testing.T) {
	f := finder(map[string]string{
		"paper.aux": `\relax
\citation{knuth84,lamport94}
\@input{chap1.aux}
\bibstyle{plain}
\citation{knuth84}\citation{ *, zzz }
\bibdata{refs,more}
`,
		"chap1.aux": "\\citation{turing36}\n",
	})
	got, err := Read(f, "paper")
	if err != nil {
		t.Fatalf("Read() error: %s", err)
	}
	want := &File{
		Name:      "paper",
		Citations: []string{"knuth84", "lamport94", "turing36", "*", "zzz"},
		Data:      []string{"refs", "more"},
		Style:     "plain",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
	if !got.HasAll() {
		t.Error("HasAll() = false; want true")
	}
}

func TestRead_longLine(t *testing.T) {
	keys := make([]string, 20000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key%05d", i)
	}
	line := `\citation{` + strings.Join(keys, ",") + `}`
	f := finder(map[string]string{"paper.aux": line + "\n\\bibstyle{plain}\n"})
	got, err := Read(f, "paper")
	if err != nil {
		t.Fatalf("Read() error: %s", err)
	}
	if diff := cmp.Diff(keys, got.Citations); diff != "" {
		t.Errorf("Read() citations mismatch (-want +got):\n%s", diff)
	}
	if got.Style != "plain" {
		t.Errorf("Read() style = %q; want plain", got.Style)
	}
	if got.HasAll() {
		t.Error("HasAll() = true; want false")
	}
}

func TestRead_errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		kind  bibtex.ErrorKind
		msg   string
	}{
		{
			"missing aux",
			map[string]string{},
			bibtex.ErrFileNotFound,
			`file not found: aux file "paper"`,
		},
		{
			"missing include",
			map[string]string{"paper.aux": `\@input{gone.aux}`},
			bibtex.ErrFileNotFound,
			`paper:1: file not found: aux file "gone.aux"`,
		},
		{
			"repeated style",
			map[string]string{"paper.aux": "\\bibstyle{plain}\n\\bibstyle{alpha}\n"},
			bibtex.ErrParse,
			`paper:2: parse error: \bibstyle repeated; first at paper:1`,
		},
		{
			"repeated data",
			map[string]string{"paper.aux": "\\bibdata{a}\\bibdata{b}"},
			bibtex.ErrParse,
			`paper:1: parse error: \bibdata repeated; first at paper:1`,
		},
		{
			"include cycle",
			map[string]string{"paper.aux": `\@input{paper}`},
			bibtex.ErrParse,
			`paper:1: parse error: aux file "paper" included twice`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(finder(tt.files), "paper")
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Read() error = %v; want kind %s", err, tt.kind)
			}
			if diff := cmp.Diff(tt.msg, err.Error()); diff != "" {
				t.Errorf("Read() error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
