// Package parser implements a parser for bibtex source files. Input may be
// provided in a variety of forms (see the various Parse* functions); the
// output is an abstract syntax tree (AST) representing the bibtex source. The
// parser is invoked through one of the Parse* functions.
package parser

import (
	"fmt"
	goscan "go/scanner"
	gotok "go/token"
	"strings"

	"github.com/jschaf/bibtex/v2/ast"
	"github.com/jschaf/bibtex/v2/scanner"
	"github.com/jschaf/bibtex/v2/token"
)

// The parser structure holds the parser's internal state.
type parser struct {
	file    *gotok.File
	errors  goscan.ErrorList
	scanner scanner.Scanner

	// Tracing/debugging
	mode   Mode // parsing mode
	trace  bool // == (mode & Trace != 0)
	indent int  // indentation used for tracing output

	// Next token
	pos gotok.Pos   // token position
	tok token.Token // one token look-ahead
	lit string      // token literal

	decls []ast.Decl // declarations parsed so far
}

func (p *parser) init(fset *gotok.FileSet, filename string, src []byte, mode Mode) {
	p.file = fset.AddFile(filename, -1, len(src))
	var m scanner.Mode
	if mode&ParseComments != 0 {
		m |= scanner.ScanComments
	}
	eh := func(pos gotok.Position, msg string) { p.errors.Add(pos, msg) }
	p.scanner.Init(p.file, src, eh, m)

	p.mode = mode
	p.trace = mode&Trace != 0 // for convenience (p.trace is used frequently)

	p.next()
}

// ----------------------------------------------------------------------------
// Parsing support

func (p *parser) printTrace(a ...interface{}) {
	const dots = ". . . . . . . . . . . . . . . . . . . . . . . . . . . . . . . . "
	const n = len(dots)
	pos := p.file.Position(p.pos)
	fmt.Printf("%5d:%3d: ", pos.Line, pos.Column)
	i := 2 * p.indent
	for i > n {
		fmt.Print(dots)
		i -= n
	}
	// i <= n
	fmt.Print(dots[0:i])
	fmt.Println(a...)
}

func trace(p *parser, msg string) *parser {
	p.printTrace(msg, "(")
	p.indent++
	return p
}

// Usage pattern: defer un(trace(p, "..."))
func un(p *parser) {
	p.indent--
	p.printTrace(")")
}

// Advance to the next token.
func (p *parser) next() {
	// Because of one-token look-ahead, print the previous token
	// when tracing as it provides a more readable output. The
	// very first token (!p.pos.IsValid()) is not initialized
	// (it is token.Illegal), so don't print it.
	if p.trace && p.pos.IsValid() {
		s := p.tok.String()
		switch {
		case p.tok.IsLiteral(), p.tok.IsCommand():
			p.printTrace(s, p.lit)
		case p.tok.IsOperator():
			p.printTrace("\"" + s + "\"")
		default:
			p.printTrace(s)
		}
	}

	p.pos, p.tok, p.lit = p.scanner.Scan()
	if p.errors.Len() > 0 {
		// The scanner reported an unterminated string or a missing entry type.
		panic(bailout{})
	}
}

// A bailout panic is raised to indicate early termination.
type bailout struct{}

// error records the error and stops the parser. A malformed record aborts the
// whole load so there is no recovery.
func (p *parser) error(pos gotok.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
	panic(bailout{})
}

func (p *parser) errorExpected(pos gotok.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.pos {
		// the error happened at the current position;
		// make the error message more specific
		switch {
		case p.tok == token.EOF:
			msg += ", found end of input"
		case p.tok.IsLiteral(), p.tok == token.Illegal:
			// print 123 rather than 'Number', etc.
			msg += ", found " + p.lit
		default:
			msg += ", found '" + p.tok.String() + "'"
		}
	}
	p.error(pos, msg)
}

func (p *parser) expect(tok token.Token) gotok.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorExpected(pos, "'"+tok.String()+"'")
	}
	p.next() // make progress
	return pos
}

// expectOpener consumes the opening delimiter of a record and returns the
// matching closing delimiter.
func (p *parser) expectOpener() token.Token {
	closer := p.tok.Closer()
	if closer == token.Illegal {
		p.errorExpected(p.pos, "'{' or '('")
	}
	p.next()
	return closer
}

// expectCloser consumes the closing delimiter of a record. The two delimiter
// styles may not be mixed within one record.
func (p *parser) expectCloser(closer token.Token) gotok.Pos {
	pos := p.pos
	switch {
	case p.tok == closer:
		p.next()
	case p.tok == token.RBrace || p.tok == token.RParen:
		p.error(pos, fmt.Sprintf("mismatched delimiter: record opened with '%s' closed with '%s'",
			opener(closer), p.tok))
	default:
		p.errorExpected(pos, "'"+closer.String()+"'")
	}
	return pos
}

func opener(closer token.Token) token.Token {
	if closer == token.RParen {
		return token.LParen
	}
	return token.LBrace
}

// isValidTagName returns true if the ident is a valid tag name. Bibtex names
// may not begin with a digit.
func isValidTagName(name string) bool {
	return name != "" && !('0' <= name[0] && name[0] <= '9')
}

func (p *parser) parseOperand() ast.Expr {
	switch p.tok {
	case token.String, token.BraceString, token.Number:
		x := &ast.BasicLit{ValuePos: p.pos, Tok: p.tok, Value: p.lit}
		p.next()
		return x
	case token.Ident:
		return p.parseIdent()
	default:
		p.errorExpected(p.pos, `value: '{', '"', number or macro name`)
		return nil // unreachable
	}
}

func (p *parser) parseExpr() (x ast.Expr) {
	if p.trace {
		defer un(trace(p, "Expr"))
	}
	x = p.parseOperand()
	if p.tok == token.Concat {
		opPos := p.pos
		p.next()
		y := p.parseExpr()
		x = &ast.ConcatExpr{
			X:     x,
			OpPos: opPos,
			Y:     y,
		}
	}
	return
}

func (p *parser) parseIdent() *ast.Ident {
	pos := p.pos
	name := "_"
	if p.tok == token.Ident {
		name = p.lit
		p.next()
	} else {
		p.errorExpected(pos, "name")
	}
	return &ast.Ident{NamePos: pos, Name: name}
}

func (p *parser) parseTagStmt() *ast.TagStmt {
	if p.trace {
		defer un(trace(p, "TagStmt"))
	}
	pos := p.pos
	if p.tok != token.Ident || !isValidTagName(p.lit) {
		p.errorExpected(pos, "field name")
	}
	key := p.parseIdent()
	if p.tok != token.Assign {
		p.errorExpected(p.pos, "'=' after "+key.Name)
	}
	p.next()
	val := p.parseExpr()
	return &ast.TagStmt{
		NamePos: key.Pos(),
		Name:    strings.ToLower(key.Name),
		RawName: key.Name,
		Value:   val,
	}
}

func (p *parser) parsePreambleDecl() *ast.PreambleDecl {
	if p.trace {
		defer un(trace(p, "PreambleDecl"))
	}
	pos := p.expect(token.Preamble)
	closer := p.expectOpener()
	text := p.parseExpr()
	end := p.expectCloser(closer)
	return &ast.PreambleDecl{
		Entry:  pos,
		Text:   text,
		RBrace: end,
	}
}

func (p *parser) parseAbbrevDecl() *ast.AbbrevDecl {
	if p.trace {
		defer un(trace(p, "AbbrevDecl"))
	}
	pos := p.expect(token.Abbrev)
	closer := p.expectOpener()
	tag := p.parseTagStmt()
	end := p.expectCloser(closer)
	return &ast.AbbrevDecl{
		Entry:  pos,
		Tag:    tag,
		RBrace: end,
	}
}

func (p *parser) parseBibDecl() *ast.BibDecl {
	if p.trace {
		defer un(trace(p, "BibDecl"))
	}
	entryType := p.lit
	pos := p.expect(token.Entry)
	closer := p.expectOpener()
	if p.tok != token.Key {
		p.error(p.pos, "missing citation key for @"+entryType)
	}
	key := &ast.Ident{NamePos: p.pos, Name: p.lit}
	p.next()

	tags := make([]*ast.TagStmt, 0, 8)
	for p.tok != closer {
		switch p.tok {
		case token.Comma:
			p.next()
		case token.RBrace, token.RParen:
			p.expectCloser(closer)
		default:
			p.errorExpected(p.pos, "',' or '"+closer.String()+"'")
		}
		if p.tok == closer {
			break // trailing commas allowed
		}
		tags = append(tags, p.parseTagStmt())
	}
	end := p.expectCloser(closer)
	return &ast.BibDecl{
		Type:   entryType,
		Entry:  pos,
		Key:    key,
		Tags:   tags,
		RBrace: end,
	}
}

func (p *parser) parseDecl() ast.Decl {
	if p.trace {
		defer un(trace(p, "Declaration"))
	}

	switch p.tok {
	case token.Preamble:
		return p.parsePreambleDecl()
	case token.Abbrev:
		return p.parseAbbrevDecl()
	case token.Entry:
		return p.parseBibDecl()
	default:
		p.errorExpected(p.pos, "entry")
		return nil // unreachable
	}
}

// ----------------------------------------------------------------------------
// Source files

func (p *parser) parseFile() *ast.File {
	if p.trace {
		defer un(trace(p, "File"))
	}

	for p.tok != token.EOF {
		switch p.tok {
		case token.Junk:
			p.decls = append(p.decls, &ast.CommentDecl{Start: p.pos, Text: p.lit})
			p.next()
		case token.Comment:
			c := &ast.CommentDecl{Start: p.pos, Command: true}
			p.next()
			if p.tok == token.Junk {
				c.Text = p.lit
				p.next()
			}
			if p.mode&ParseComments != 0 {
				p.decls = append(p.decls, c)
			}
		default:
			p.decls = append(p.decls, p.parseDecl())
		}
	}

	return &ast.File{Entries: p.decls}
}
