package parser

import (
	"fmt"
	goscan "go/scanner"
	gotok "go/token"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jschaf/bibtex/v2/ast"
	"github.com/jschaf/bibtex/v2/asts"
	"github.com/jschaf/bibtex/v2/token"
)

func cmpExpr() cmp.Option {
	return cmp.Transformer("expr_name", func(x ast.Expr) string {
		return exprString(x)
	})
}

func exprString(x ast.Expr) string {
	switch v := x.(type) {
	case *ast.Ident:
		return "Ident(" + v.Name + ")"
	case *ast.BasicLit:
		return v.Tok.String() + "(" + v.Value + ")"
	case *ast.ConcatExpr:
		return exprString(v.X) + " # " + exprString(v.Y)
	default:
		return fmt.Sprintf("UnknownExpr(%v)", v)
	}
}

func cmpTagEntry() cmp.Option {
	return cmp.Transformer("tag_entry", func(t *ast.TagStmt) string {
		return t.RawName + " = " + exprString(t.Value)
	})
}

var validFiles = []string{
	"testdata/sample.bib",
}

func TestParseFile_validFiles(t *testing.T) {
	for _, filename := range validFiles {
		f, err := ParseFile(gotok.NewFileSet(), filename, nil, 0)
		if err != nil {
			t.Fatalf("ParseFile(%s): %v", filename, err)
		}
		var kinds []string
		for _, d := range f.Entries {
			kinds = append(kinds, d.Kind().String())
		}
		want := []string{"PreambleDecl", "AbbrevDecl", "AbbrevDecl", "BibDecl", "BibDecl", "BibDecl"}
		if diff := cmp.Diff(want, kinds); diff != "" {
			t.Errorf("ParseFile(%s) decl kinds mismatch (-want +got):\n%s", filename, diff)
		}
	}
}

func BenchmarkParseFile_sample(b *testing.B) {
	b.StopTimer()
	f, err := os.ReadFile("testdata/sample.bib")
	if err != nil {
		b.Fatalf("read file: %s", err.Error())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_, err := ParseFile(gotok.NewFileSet(), "", f, 0)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func TestParseFile_PreambleDecl(t *testing.T) {
	tests := []struct {
		src  string
		want ast.Expr
	}{
		{"@PREAMBLE { {foo} }", asts.BraceString("foo")},
		{`@PREAMBLE { "foo" }`, asts.QuotedString("foo")},
		{`@PREAMBLE ( "foo" )`, asts.QuotedString("foo")},
		{`@preamble { "foo" # "bar" }`, asts.Concat(asts.QuotedString("foo"), asts.QuotedString("bar"))},
		{`@preamble { "foo" # "bar" # "qux" }`, asts.Concat(asts.QuotedString("foo"), asts.Concat(asts.QuotedString("bar"), asts.QuotedString("qux")))},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFile(gotok.NewFileSet(), "", tt.src, 0)
			if err != nil {
				t.Fatal(err)
			}

			got := f.Entries[0].(*ast.PreambleDecl).Text

			if diff := cmp.Diff(tt.want, got, cmpExpr()); diff != "" {
				t.Errorf("PreambleDecl mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFile_AbbrevDecl(t *testing.T) {
	tests := []struct {
		src              string
		tok              token.Token
		wantKey, wantVal string
	}{
		{"@string { key = {foo} }", token.BraceString, "key", "foo"},
		{"@string { KeY = {foo} }", token.BraceString, "KeY", "foo"},
		{`@string { KeY = "foo" }`, token.String, "KeY", "foo"},
		{`@string ( KeY = "foo" )`, token.String, "KeY", "foo"},
		{`@string { y = 2004 }`, token.Number, "y", "2004"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFile(gotok.NewFileSet(), "", tt.src, 0)
			if err != nil {
				t.Fatal(err)
			}

			tag := f.Entries[0].(*ast.AbbrevDecl).Tag

			if tag.RawName != tt.wantKey {
				t.Errorf("AbbrevDecl raw key: got %s; want %s", tag.RawName, tt.wantKey)
			}
			wantNormKey := strings.ToLower(tt.wantKey)
			if tag.Name != wantNormKey {
				t.Errorf("AbbrevDecl name: got %s; want %s", tag.Name, wantNormKey)
			}
			val := ""
			kind := token.Illegal
			if t, ok := tag.Value.(*ast.BasicLit); ok {
				val = t.Value
				kind = t.Tok
			}
			if val != tt.wantVal {
				t.Errorf("AbbrevDecl value: got %s; want %s", val, tt.wantVal)
			}
			if kind != tt.tok {
				t.Errorf("AbbrevDecl value token: got %s; want %s", kind, tt.tok)
			}
		})
	}
}

func TestParseFile_BibDecl(t *testing.T) {
	tests := []struct {
		src      string
		wantType string
		wantKey  string
		wantTags []*ast.TagStmt
	}{
		{"@article { cite_key, key = {foo} }", "article", "cite_key",
			[]*ast.TagStmt{asts.Tag("key", asts.BraceString("foo"))}},
		{"@ARTICLE {cite_key1, key = {foo} }", "article", "cite_key1",
			[]*ast.TagStmt{asts.Tag("key", asts.BraceString("foo"))}},
		{"@article {111, key = {foo} }", "article", "111",
			[]*ast.TagStmt{asts.Tag("key", asts.BraceString("foo"))}},
		{"@article {111, key = bar }", "article", "111",
			[]*ast.TagStmt{asts.Tag("key", asts.Ident("bar"))}},
		{"@article {111, key = bar, }", "article", "111",
			[]*ast.TagStmt{asts.Tag("key", asts.Ident("bar"))}},
		{"@misc {only-key}", "misc", "only-key", nil},
		{`@article {111, key = bar, k2 = "v2" # 12 }`, "article", "111",
			[]*ast.TagStmt{
				asts.Tag("key", asts.Ident("bar")),
				asts.Tag("k2", asts.Concat(asts.QuotedString("v2"), asts.Number("12"))),
			}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFile(gotok.NewFileSet(), "", tt.src, 0)
			if err != nil {
				t.Fatal(err)
			}

			gotBib := f.Entries[0].(*ast.BibDecl)

			if gotBib.Type != tt.wantType {
				t.Errorf("BibDecl type: got %s; want %s", gotBib.Type, tt.wantType)
			}
			if gotBib.Key.Name != tt.wantKey {
				t.Errorf("BibDecl key: got %s; want %s", gotBib.Key.Name, tt.wantKey)
			}
			if diff := cmp.Diff(tt.wantTags, gotBib.Tags, cmpTagEntry(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("BibDecl tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFile_delimiterSymmetry(t *testing.T) {
	braces, err := ParseFile(gotok.NewFileSet(), "", "@book{k, title = {T}}", 0)
	if err != nil {
		t.Fatal(err)
	}
	parens, err := ParseFile(gotok.NewFileSet(), "", "@book(k, title = {T})", 0)
	if err != nil {
		t.Fatal(err)
	}
	b := braces.Entries[0].(*ast.BibDecl)
	p := parens.Entries[0].(*ast.BibDecl)
	if b.Type != p.Type || b.Key.Name != p.Key.Name {
		t.Errorf("delimiter styles differ: @%s{%s} vs @%s(%s)", b.Type, b.Key.Name, p.Type, p.Key.Name)
	}
	if diff := cmp.Diff(b.Tags, p.Tags, cmpTagEntry()); diff != "" {
		t.Errorf("delimiter styles tags mismatch (-braces +parens):\n%s", diff)
	}
}

func TestParseFile_comments(t *testing.T) {
	src := "lead\n@comment{skip}\n@misc{k}\ntail"
	f, err := ParseFile(gotok.NewFileSet(), "", src, ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, d := range f.Entries {
		switch d := d.(type) {
		case *ast.CommentDecl:
			got = append(got, fmt.Sprintf("comment(%t,%q)", d.Command, d.Text))
		case *ast.BibDecl:
			got = append(got, "entry("+d.Key.Name+")")
		}
	}
	want := []string{
		`comment(false,"lead\n")`,
		`comment(true,"{skip}\n")`,
		"entry(k)",
		`comment(false,"\ntail")`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFile(ParseComments) mismatch (-want +got):\n%s", diff)
	}

	f, err = ParseFile(gotok.NewFileSet(), "", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Entries) != 1 {
		t.Errorf("ParseFile() without comments: got %d decls; want 1", len(f.Entries))
	}
}

func TestParseFile_errors(t *testing.T) {
	tests := []struct {
		src      string
		wantMsg  string
		wantLine int
	}{
		{"@ {k}", "expected entry type after '@'", 1},
		{"@book{, title = {T}}", "missing citation key for @book", 1},
		{"@book{k,\n title {T}}", "expected '=' after title, found '{'", 2},
		{"@book{k,\n 111 = {foo} }", "expected field name, found 111", 2},
		{"@book{k, title = {T)", "string literal in braces not terminated", 1},
		{`@book{k, title = "T}`, "string literal in double quotes not terminated", 1},
		{"@book k", "expected '{' or '(', found k", 1},
		{"@book{k, title = {T})", "mismatched delimiter: record opened with '{' closed with ')'", 1},
		{"@book(k, title = {T}}", "mismatched delimiter: record opened with '(' closed with '}'", 1},
		{"@book{k title = {T}}", "expected ',' or '}', found title", 1},
		{"@book{k, title = }", "expected value: '{', '\"', number or macro name, found '}'", 1},
		{"@string{x = {a}", "expected '}', found end of input", 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := ParseFile(gotok.NewFileSet(), "refs.bib", tt.src, 0)
			if err == nil {
				t.Fatalf("expected error but had none:\n%s", tt.src)
			}
			list, ok := err.(goscan.ErrorList)
			if !ok || len(list) != 1 {
				t.Fatalf("expected a single-error scanner.ErrorList, got %T: %v", err, err)
			}
			if list[0].Msg != tt.wantMsg {
				t.Errorf("error message: got %q; want %q", list[0].Msg, tt.wantMsg)
			}
			if list[0].Pos.Line != tt.wantLine || list[0].Pos.Filename != "refs.bib" {
				t.Errorf("error position: got %s; want refs.bib:%d", list[0].Pos, tt.wantLine)
			}
		})
	}
}

func TestParseFile_partialResult(t *testing.T) {
	f, err := ParseFile(gotok.NewFileSet(), "", "@misc{a}\n@misc{b", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.Entries) != 1 || f.Entries[0].(*ast.BibDecl).Key.Name != "a" {
		t.Errorf("ParseFile() partial result: got %d entries; want only a", len(f.Entries))
	}
}
