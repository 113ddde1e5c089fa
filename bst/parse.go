package bst

import (
	"errors"
	"fmt"
	goscan "go/scanner"
	gotok "go/token"
	"strconv"
	"strings"

	"github.com/jschaf/bibtex/v2/token"
)

type tokKind int

const (
	tEOF tokKind = iota
	tLBrace
	tRBrace
	tInt
	tString
	tQuote
	tName
)

// The parser scans and parses in one pass. Style programs are small and have
// no context-sensitive lexing, so there is no separate scanner package.
type parser struct {
	file   *gotok.File
	src    []byte
	offs   int
	errors goscan.ErrorList

	// Next token
	pos gotok.Pos
	tok tokKind
	lit string
	n   int // value of a tInt token
}

// bailout is used to stop parsing at the first error.
type bailout struct{}

func (p *parser) init(fset *gotok.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.file.SetLinesForContent(src)
	p.src = src
	p.next()
}

func (p *parser) error(offs int, msg string) {
	p.errors.Add(p.file.Position(p.file.Pos(offs)), msg)
	panic(bailout{})
}

func (p *parser) errorExpected(what string) {
	msg := "expected " + what
	switch p.tok {
	case tEOF:
		msg += ", found end of input"
	case tString:
		msg += `, found "` + p.lit + `"`
	default:
		msg += ", found '" + p.lit + "'"
	}
	p.error(p.file.Offset(p.pos), msg)
}

// ----------------------------------------------------------------------------
// Scanning

func isNameChar(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', '\v', '{', '}', '%', '"', '#', '\'':
		return false
	}
	return true
}

func (p *parser) skipSpaceAndComments() {
	for p.offs < len(p.src) {
		switch p.src[p.offs] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.offs++
		case '%':
			for p.offs < len(p.src) && p.src[p.offs] != '\n' {
				p.offs++
			}
		default:
			return
		}
	}
}

func (p *parser) scanName() string {
	start := p.offs
	for p.offs < len(p.src) && isNameChar(p.src[p.offs]) {
		p.offs++
	}
	return string(p.src[start:p.offs])
}

func (p *parser) next() {
	p.skipSpaceAndComments()
	start := p.offs
	p.pos = p.file.Pos(start)
	p.n = 0
	if p.offs >= len(p.src) {
		p.tok, p.lit = tEOF, ""
		return
	}
	switch ch := p.src[p.offs]; ch {
	case '{':
		p.offs++
		p.tok, p.lit = tLBrace, "{"
	case '}':
		p.offs++
		p.tok, p.lit = tRBrace, "}"
	case '"':
		p.offs++
		for p.offs < len(p.src) && p.src[p.offs] != '"' {
			if p.src[p.offs] == '\n' {
				p.error(start, "string literal not terminated")
			}
			p.offs++
		}
		if p.offs >= len(p.src) {
			p.error(start, "string literal not terminated")
		}
		p.tok, p.lit = tString, string(p.src[start+1:p.offs])
		p.offs++
	case '#':
		p.offs++
		lit := p.scanName()
		n, err := strconv.Atoi(lit)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				p.error(start, fmt.Sprintf("integer #%s out of range", lit))
			}
			p.error(start, fmt.Sprintf("illegal integer #%s", lit))
		}
		p.tok, p.lit, p.n = tInt, "#"+lit, n
	case '\'':
		p.offs++
		name := p.scanName()
		if name == "" {
			p.error(start, "expected function name after '")
		}
		p.tok, p.lit = tQuote, strings.ToLower(name)
	default:
		if '0' <= ch && ch <= '9' {
			p.error(start, fmt.Sprintf("unexpected digit %q; integers are written #%c", ch, ch))
		}
		name := p.scanName()
		if name == "" {
			p.error(start, fmt.Sprintf("illegal character %q", ch))
		}
		p.tok, p.lit = tName, strings.ToLower(name)
	}
}

// ----------------------------------------------------------------------------
// Parsing

func (p *parser) loc(pos gotok.Pos) token.Locator {
	return token.LocatorOf(p.file.Position(pos))
}

func (p *parser) expect(tok tokKind, what string) gotok.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorExpected(what)
	}
	p.next()
	return pos
}

// parseNames parses a braced, possibly empty, list of names.
func (p *parser) parseNames() []string {
	p.expect(tLBrace, "'{'")
	var names []string
	for p.tok == tName {
		names = append(names, p.lit)
		p.next()
	}
	p.expect(tRBrace, "name or '}'")
	return names
}

// parseName parses exactly one name in braces.
func (p *parser) parseName() string {
	p.expect(tLBrace, "'{'")
	if p.tok != tName {
		p.errorExpected("name")
	}
	name := p.lit
	p.next()
	p.expect(tRBrace, "'}'")
	return name
}

// parseBody parses instructions up to and including the closing brace. The
// opening brace has already been consumed.
func (p *parser) parseBody() []Instr {
	var body []Instr
	for {
		in := Instr{Loc: p.loc(p.pos)}
		switch p.tok {
		case tRBrace:
			p.next()
			return body
		case tInt:
			in.Kind, in.Int = PushInt, p.n
		case tString:
			in.Kind, in.Str = PushString, p.lit
		case tQuote:
			in.Kind, in.Name = PushFunc, p.lit
		case tName:
			in.Kind, in.Name = Call, p.lit
		case tLBrace:
			p.next()
			in.Kind, in.Block = PushBlock, p.parseBody()
			body = append(body, in)
			continue
		default:
			p.errorExpected("'}'")
		}
		p.next()
		body = append(body, in)
	}
}

func (p *parser) parseCommand() Command {
	pos := p.pos
	if p.tok != tName {
		p.errorExpected("command")
	}
	kind, ok := commandKinds[p.lit]
	if !ok {
		p.error(p.file.Offset(pos), fmt.Sprintf("unknown command %q", p.lit))
	}
	p.next()
	cmd := Command{Kind: kind, Loc: p.loc(pos)}
	switch kind {
	case Entry:
		cmd.Fields = p.parseNames()
		cmd.Ints = p.parseNames()
		cmd.Strs = p.parseNames()
	case Execute, Iterate, Reverse:
		cmd.Name = p.parseName()
	case Function:
		cmd.Name = p.parseName()
		p.expect(tLBrace, "'{'")
		cmd.Body = p.parseBody()
	case Integers, Strings:
		cmd.Names = p.parseNames()
	case Macro:
		cmd.Name = p.parseName()
		p.expect(tLBrace, "'{'")
		if p.tok != tString {
			p.errorExpected("string")
		}
		cmd.Text = p.lit
		p.next()
		p.expect(tRBrace, "'}'")
	case Read, Sort:
		// no arguments
	}
	return cmd
}

// Parse compiles the style program src. The name is used in positions. On a
// syntax error the result holds the commands parsed before it and the error
// is a go/scanner.ErrorList with one entry.
func Parse(name string, src []byte) (prog *Program, err error) {
	var p parser
	prog = &Program{Name: name}
	defer func() {
		if e := recover(); e != nil {
			// resume same panic if it's not a bailout
			if _, ok := e.(bailout); !ok {
				panic(e)
			}
		}
		err = p.errors.Err()
	}()
	p.init(gotok.NewFileSet(), name, src)
	for p.tok != tEOF {
		prog.Commands = append(prog.Commands, p.parseCommand())
	}
	return prog, nil
}
