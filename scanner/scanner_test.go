package scanner

import (
	gotok "go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jschaf/bibtex/v2/token"
)

type elt struct {
	Tok token.Token
	Lit string
}

func scanAll(t *testing.T, src string, mode Mode) ([]elt, []string) {
	t.Helper()
	var errs []string
	eh := func(_ gotok.Position, msg string) { errs = append(errs, msg) }
	var s Scanner
	fset := gotok.NewFileSet()
	s.Init(fset.AddFile("", fset.Base(), len(src)), []byte(src), eh, mode)
	var got []elt
	for i := 0; i < 1000; i++ {
		_, tok, lit := s.Scan()
		got = append(got, elt{tok, lit})
		if tok == token.EOF || tok == token.Illegal {
			break
		}
	}
	return got, errs
}

func TestScanner_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  string
		mode Mode
		want []elt
	}{
		{
			name: "entry with brace delimiters",
			src:  `@Book{knuth:84, title = {The {\TeX}book}, year = 1984}`,
			want: []elt{
				{token.Entry, "book"}, {token.LBrace, ""}, {token.Key, "knuth:84"}, {token.Comma, ""},
				{token.Ident, "title"}, {token.Assign, ""}, {token.BraceString, `The {\TeX}book`}, {token.Comma, ""},
				{token.Ident, "year"}, {token.Assign, ""}, {token.Number, "1984"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "entry with paren delimiters",
			src:  `@book(k, title = "a {"}b" # jan)`,
			want: []elt{
				{token.Entry, "book"}, {token.LParen, ""}, {token.Key, "k"}, {token.Comma, ""},
				{token.Ident, "title"}, {token.Assign, ""}, {token.String, `a {"}b`}, {token.Concat, ""},
				{token.Ident, "jan"}, {token.RParen, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "junk skipped without ScanComments",
			src:  "some text\n@string{foo = {bar}} more text",
			want: []elt{
				{token.Abbrev, "string"}, {token.LBrace, ""}, {token.Ident, "foo"}, {token.Assign, ""},
				{token.BraceString, "bar"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "junk returned with ScanComments",
			src:  "lead @preamble{ {x} } tail",
			mode: ScanComments,
			want: []elt{
				{token.Junk, "lead "}, {token.Preamble, "preamble"}, {token.LBrace, ""},
				{token.BraceString, "x"}, {token.RBrace, ""}, {token.Junk, " tail"},
				{token.EOF, ""},
			},
		},
		{
			name: "comment command resumes free text",
			src:  "@comment{ ignored } @misc{k}",
			want: []elt{
				{token.Comment, "comment"},
				{token.Entry, "misc"}, {token.LBrace, ""}, {token.Key, "k"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "whitespace between at and type",
			src:  "@ ARTICLE {k}",
			want: []elt{
				{token.Entry, "article"}, {token.LBrace, ""}, {token.Key, "k"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "type name characters",
			src:  "@my.type:x-y_z{k}",
			want: []elt{
				{token.Entry, "my.type:x-y_z"}, {token.LBrace, ""}, {token.Key, "k"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "identifier characters",
			src:  "@string{q!$&*+-./:;<>?[]^_`| = 1}",
			want: []elt{
				{token.Abbrev, "string"}, {token.LBrace, ""}, {token.Ident, "q!$&*+-./:;<>?[]^_`|"},
				{token.Assign, ""}, {token.Number, "1"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "missing key yields comma",
			src:  "@book{, title = {T}}",
			want: []elt{
				{token.Entry, "book"}, {token.LBrace, ""}, {token.Comma, ""},
				{token.Ident, "title"}, {token.Assign, ""}, {token.BraceString, "T"}, {token.RBrace, ""},
				{token.EOF, ""},
			},
		},
		{
			name: "mismatched closer does not end record",
			src:  "@book{k)",
			want: []elt{
				{token.Entry, "book"}, {token.LBrace, ""}, {token.Key, "k"}, {token.RParen, ""},
				{token.EOF, ""},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := scanAll(t, tt.src, tt.mode)
			if len(errs) > 0 {
				t.Fatalf("unexpected scan errors: %v", errs)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanner_Scan_errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"unterminated brace string", "@string{x = {abc", "string literal in braces not terminated"},
		{"unterminated quoted string", `@string{x = "abc`, "string literal in double quotes not terminated"},
		{"missing type", "@ {k}", "expected entry type after '@'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := scanAll(t, tt.src, 0)
			if len(errs) == 0 {
				t.Fatalf("expected scan error %q, got none", tt.wantMsg)
			}
			if errs[0] != tt.wantMsg {
				t.Errorf("scan error: got %q; want %q", errs[0], tt.wantMsg)
			}
		})
	}
}

func TestScanner_positions(t *testing.T) {
	src := "junk\n\n@book{k,\n  title = {T}}"
	var s Scanner
	fset := gotok.NewFileSet()
	file := fset.AddFile("refs.bib", fset.Base(), len(src))
	s.Init(file, []byte(src), nil, 0)

	wantLines := []int{3, 3, 3, 3, 4, 4, 4, 4}
	for i, want := range wantLines {
		pos, tok, _ := s.Scan()
		if got := fset.Position(pos).Line; got != want {
			t.Errorf("token %d (%s): line %d; want %d", i, tok, got, want)
		}
	}
}
