// Packages asts contains utilities for constructing and manipulating ASTs.
package asts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jschaf/bibtex/v2/ast"
	"github.com/jschaf/bibtex/v2/token"
)

// BraceString returns a brace delimited literal, like {foo}.
func BraceString(s string) *ast.BasicLit {
	return &ast.BasicLit{Tok: token.BraceString, Value: s}
}

// QuotedString returns a double-quote delimited literal, like "foo".
func QuotedString(s string) *ast.BasicLit {
	return &ast.BasicLit{Tok: token.String, Value: s}
}

func Number(s string) *ast.BasicLit {
	return &ast.BasicLit{Tok: token.Number, Value: s}
}

func Ident(s string) *ast.Ident {
	return &ast.Ident{Name: s}
}

// Concat returns the right-nested concatenation of xs, matching the shape the
// parser produces for x1 # x2 # x3. Panics if xs is empty.
func Concat(xs ...ast.Expr) ast.Expr {
	if len(xs) == 0 {
		panic("asts.Concat: no operands")
	}
	if len(xs) == 1 {
		return xs[0]
	}
	return &ast.ConcatExpr{X: xs[0], Y: Concat(xs[1:]...)}
}

func Tag(name string, val ast.Expr) *ast.TagStmt {
	return &ast.TagStmt{
		Name:    strings.ToLower(name),
		RawName: name,
		Value:   val,
	}
}

func Abbrev(name string, val ast.Expr) *ast.AbbrevDecl {
	return &ast.AbbrevDecl{Tag: Tag(name, val)}
}

func Preamble(val ast.Expr) *ast.PreambleDecl {
	return &ast.PreambleDecl{Text: val}
}

// Entry returns a bibtex entry declaration with the given tags.
func Entry(typ, key string, opts ...func(*ast.BibDecl)) *ast.BibDecl {
	b := &ast.BibDecl{Type: typ, Key: Ident(key)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func WithBibTags(key string, val ast.Expr, rest ...interface{}) func(decl *ast.BibDecl) {
	if len(rest)%2 != 0 {
		panic("WithBibTags must have even number of strings for key-val pairs")
	}
	for i := 0; i < len(rest); i += 2 {
		k := rest[i]
		v := rest[i+1]
		if _, ok := k.(string); !ok {
			panic("need string at index: " + strconv.Itoa(i))
		}
		if _, ok := v.(ast.Expr); !ok {
			panic(fmt.Sprintf("need ast.Expr at index: %d of WithBibTags, got: %v", i+1, v))
		}
	}
	return func(b *ast.BibDecl) {
		b.Tags = append(b.Tags, Tag(key, val))
		for i := 0; i < len(rest); i += 2 {
			k, v := rest[i].(string), rest[i+1].(ast.Expr)
			b.Tags = append(b.Tags, Tag(k, v))
		}
	}
}
