// Package ast declares the types used to represent syntax trees for bibtex
// files.
package ast

import (
	gotok "go/token"

	"github.com/jschaf/bibtex/v2/token"
)

type Node interface {
	Pos() gotok.Pos
	End() gotok.Pos
	Kind() NodeKind
}

type NodeKind int

const (
	KindIdent NodeKind = iota
	KindBasicLit
	KindConcatExpr
	KindTagStmt
	KindCommentDecl
	KindAbbrevDecl
	KindBibDecl
	KindPreambleDecl
	KindFile
)

var kindNames = [...]string{
	KindIdent:        "Ident",
	KindBasicLit:     "BasicLit",
	KindConcatExpr:   "ConcatExpr",
	KindTagStmt:      "TagStmt",
	KindCommentDecl:  "CommentDecl",
	KindAbbrevDecl:   "AbbrevDecl",
	KindBibDecl:      "BibDecl",
	KindPreambleDecl: "PreambleDecl",
	KindFile:         "File",
}

func (k NodeKind) String() string {
	if 0 <= k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UnknownKind"
}

// All expression nodes implement the Expr interface.
type Expr interface {
	Node
	exprNode()
}

// All statement nodes implement the Stmt interface, like bibtex entry tags.
type Stmt interface {
	Node
	stmtNode()
}

// All declaration nodes implement the Decl interface, like the @article,
// @STRING, @COMMENT, and @PREAMBLE entries.
type Decl interface {
	Node
	declNode()
}

// ----------------------------------------------------------------------------
// Expressions

// An expression is represented by a tree consisting of one or more of the
// following concrete expressions.
type (
	// An Ident node represents a bare word on the right-hand side of an
	// assignment, which names a string macro, or a citation key.
	Ident struct {
		NamePos gotok.Pos // identifier position
		Name    string    // identifier name as it appeared in source
	}

	// A BasicLit node represents a string or number constituent of a value.
	//   "quoted"   token.String
	//   {braced}   token.BraceString
	//   2004       token.Number
	BasicLit struct {
		ValuePos gotok.Pos   // literal position
		Tok      token.Token // token.String, token.BraceString, or token.Number
		Value    string      // literal text excluding the outer delimiters
	}

	// A ConcatExpr node represents a bibtex concatenation like:
	//   "foo" # "bar"
	ConcatExpr struct {
		X     Expr
		OpPos gotok.Pos
		Y     Expr
	}
)

func (x *Ident) Pos() gotok.Pos { return x.NamePos }
func (x *Ident) End() gotok.Pos { return gotok.Pos(int(x.NamePos) + len(x.Name)) }
func (x *Ident) Kind() NodeKind { return KindIdent }
func (*Ident) exprNode()        {}

func (x *BasicLit) Pos() gotok.Pos { return x.ValuePos }
func (x *BasicLit) End() gotok.Pos {
	n := len(x.Value)
	if x.Tok != token.Number {
		n += 2 // delimiters
	}
	return gotok.Pos(int(x.ValuePos) + n)
}
func (x *BasicLit) Kind() NodeKind { return KindBasicLit }
func (*BasicLit) exprNode()        {}

func (x *ConcatExpr) Pos() gotok.Pos { return x.X.Pos() }
func (x *ConcatExpr) End() gotok.Pos { return x.Y.End() }
func (x *ConcatExpr) Kind() NodeKind { return KindConcatExpr }
func (*ConcatExpr) exprNode()        {}

// Operands returns the constituents of a possibly nested concatenation in
// source order.
func Operands(x Expr) []Expr {
	var xs []Expr
	var walk func(Expr)
	walk = func(x Expr) {
		if c, ok := x.(*ConcatExpr); ok {
			walk(c.X)
			walk(c.Y)
			return
		}
		xs = append(xs, x)
	}
	walk(x)
	return xs
}

// ----------------------------------------------------------------------------
// Statements

// A TagStmt node represents a tag in an BibDecl or AbbrevDecl, i.e.
// author = "foo".
type TagStmt struct {
	NamePos gotok.Pos // identifier position
	Name    string    // identifier name, normalized with lowercase
	RawName string    // identifier name as it appeared in source
	Value   Expr      // denoted expression
}

func (x *TagStmt) Pos() gotok.Pos { return x.NamePos }
func (x *TagStmt) End() gotok.Pos { return x.Value.End() }
func (x *TagStmt) Kind() NodeKind { return KindTagStmt }
func (*TagStmt) stmtNode()        {}

// ----------------------------------------------------------------------------
// Declarations

// An declaration is represented by one of the following declaration nodes.
type (
	// A CommentDecl node represents text between records or the body of an
	// @COMMENT command. Only present when the parser keeps comments.
	CommentDecl struct {
		Start   gotok.Pos // position of the text or of the "@COMMENT" token
		Command bool      // true if introduced by @COMMENT
		Text    string
	}

	// An AbbrevDecl node represents a bibtex abbreviation, like:
	//   @STRING { foo = "bar" }
	AbbrevDecl struct {
		Entry  gotok.Pos // position of the "@STRING" token
		Tag    *TagStmt
		RBrace gotok.Pos // position of the closing delimiter
	}

	// An BibDecl node represents a bibtex entry, like:
	//   @article { key, author = "bar" }
	BibDecl struct {
		Type   string     // type of entry, lowercased, e.g. "article"
		Entry  gotok.Pos  // position of the start token, e.g. "@article"
		Key    *Ident     // citation key
		Tags   []*TagStmt // all tags in the declaration
		RBrace gotok.Pos  // position of the closing delimiter
	}

	// An PreambleDecl node represents a bibtex preamble, like:
	//   @PREAMBLE { "foo" }
	PreambleDecl struct {
		Entry  gotok.Pos // position of the "@PREAMBLE" token
		Text   Expr      // The content of the preamble node
		RBrace gotok.Pos // position of the closing delimiter
	}
)

func (e *CommentDecl) Pos() gotok.Pos { return e.Start }
func (e *CommentDecl) End() gotok.Pos { return gotok.Pos(int(e.Start) + len(e.Text)) }
func (e *CommentDecl) Kind() NodeKind { return KindCommentDecl }
func (*CommentDecl) declNode()        {}

func (e *AbbrevDecl) Pos() gotok.Pos { return e.Entry }
func (e *AbbrevDecl) End() gotok.Pos { return e.RBrace + 1 }
func (e *AbbrevDecl) Kind() NodeKind { return KindAbbrevDecl }
func (*AbbrevDecl) declNode()        {}

func (e *BibDecl) Pos() gotok.Pos { return e.Entry }
func (e *BibDecl) End() gotok.Pos { return e.RBrace + 1 }
func (e *BibDecl) Kind() NodeKind { return KindBibDecl }
func (*BibDecl) declNode()        {}

func (e *PreambleDecl) Pos() gotok.Pos { return e.Entry }
func (e *PreambleDecl) End() gotok.Pos { return e.RBrace + 1 }
func (e *PreambleDecl) Kind() NodeKind { return KindPreambleDecl }
func (*PreambleDecl) declNode()        {}

// ----------------------------------------------------------------------------
// Files

// A File node represents a bibtex source file.
//
// Entries holds the declarations in source order. CommentDecl nodes appear
// only if the file was parsed with comments enabled.
type File struct {
	Name    string
	Entries []Decl // top-level entries; or nil
}

func (f *File) Pos() gotok.Pos { return gotok.Pos(1) }
func (f *File) End() gotok.Pos {
	if n := len(f.Entries); n > 0 {
		return f.Entries[n-1].End()
	}
	return gotok.Pos(1)
}
func (f *File) Kind() NodeKind { return KindFile }
