// Package scanner implements a scanner for bibtex source text.
// It takes a []byte as source which can then be tokenized
// through repeated calls to the Scan method.
//
// Bibtex is context sensitive: text outside of a record is a comment, the
// first token after an entry's opening delimiter is a citation key, and an
// opening brace after '=' or '#' starts a brace string rather than a
// delimiter. The scanner tracks enough record state to make those decisions.
package scanner

import (
	"fmt"
	gotok "go/token"
	"strings"
	"unicode/utf8"

	"github.com/jschaf/bibtex/v2/token"
)

// An ErrorHandler may be provided to Scanner.Init. If a syntax error is
// encountered and a handler was installed, the handler is called with a
// position and an error message. The position points to the beginning of
// the offending token.
type ErrorHandler func(pos gotok.Position, msg string)

// A Scanner holds the scanner's internal state while processing
// a given text. It can be allocated as part of another data
// structure but must be initialized via Init before use.
type Scanner struct {
	// immutable state
	file *gotok.File  // source file handle
	src  []byte       // source
	err  ErrorHandler // error reporting; or nil
	mode Mode         // scanning mode

	// scanning state
	ch         rune        // current character
	offset     int         // character offset
	rdOffset   int         // reading offset (position after current character)
	lineOffset int         // current line offset
	prev       token.Token // previous token
	cmd        token.Token // command of the record being scanned, or Illegal
	closer     token.Token // closing delimiter of the current record, or Illegal

	// public state - ok to modify
	ErrorCount int // number of errors encountered
}

const bom = 0xFEFF // byte order mark, only permitted as very first character

// Read the next Unicode char into s.ch.
// s.ch < 0 means end-of-file.
func (s *Scanner) next() {
	if s.rdOffset < len(s.src) {
		s.offset = s.rdOffset
		if s.ch == '\n' {
			s.lineOffset = s.offset
			s.file.AddLine(s.offset)
		}
		r, w := rune(s.src[s.rdOffset]), 1
		switch {
		case r == 0:
			s.error(s.offset, "illegal character NUL")
		case r >= utf8.RuneSelf:
			// not ASCII
			r, w = utf8.DecodeRune(s.src[s.rdOffset:])
			if r == utf8.RuneError && w == 1 {
				s.error(s.offset, "illegal UTF-8 encoding")
			} else if r == bom && s.offset > 0 {
				s.error(s.offset, "illegal byte order mark")
			}
		}
		s.rdOffset += w
		s.ch = r
	} else {
		s.offset = len(s.src)
		if s.ch == '\n' {
			s.lineOffset = s.offset
			s.file.AddLine(s.offset)
		}
		s.ch = -1 // eof
	}
}

func (s *Scanner) error(offs int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(offs)), msg)
	}
	s.ErrorCount++
}

func (s *Scanner) errorf(offs int, format string, args ...interface{}) {
	s.error(offs, fmt.Sprintf(format, args...))
}

// A Mode value is a set of flags (or 0).
// They control scanner behavior.
type Mode uint

const (
	ScanComments Mode = 1 << iota // return text between records as Junk tokens
)

// Init prepares the scanner s to tokenize the text src by setting the
// scanner at the beginning of src. The scanner uses the file set file
// for position information and it adds line information for each line.
// It is ok to re-use the same file when re-scanning the same file as
// line information which is already present is ignored. Init causes a
// panic if the file size does not match the src size.
//
// Calls to Scan will invoke the error handler err if they encounter a
// syntax error and err is not nil. Also, for each error encountered,
// the Scanner field ErrorCount is incremented by one. The mode parameter
// determines how comments are handled.
//
// Note that Init may call err if there is an error in the first character
// of the file.
func (s *Scanner) Init(file *gotok.File, src []byte, err ErrorHandler, mode Mode) {
	// Explicitly initialize all fields since a scanner may be reused.
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = err
	s.mode = mode

	s.ch = ' '
	s.offset = 0
	s.rdOffset = 0
	s.lineOffset = 0
	s.prev = token.Illegal
	s.cmd = token.Illegal
	s.closer = token.Illegal
	s.ErrorCount = 0

	s.next()
	if s.ch == bom {
		s.next() // ignore BOM at file beginning
	}
}

func (s *Scanner) skipWhitespace() {
	for isSpace(s.ch) {
		s.next()
	}
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func lower(ch rune) rune     { return ('a' - 'A') | ch } // returns lower-case ch iff ch is ASCII letter
func isDecimal(ch rune) bool { return '0' <= ch && ch <= '9' }
func isLetter(ch rune) bool  { return 'a' <= lower(ch) && lower(ch) <= 'z' }

// isTagChar reports whether ch may appear in the type name after '@'.
func isTagChar(ch rune) bool {
	return isLetter(ch) || isDecimal(ch) || ch == '.' || ch == ':' || ch == '-' || ch == '_'
}

// isIdentChar reports whether ch may appear in a field name or macro name.
// Bibtex allows any printing character except a handful of delimiters.
func isIdentChar(ch rune) bool {
	if ch < 0 || isSpace(ch) {
		return false
	}
	switch ch {
	case '"', '#', '%', '\'', '(', ')', ',', '=', '{', '}':
		return false
	}
	return true
}

// isKeyChar reports whether ch may appear in a citation key.
func isKeyChar(ch rune) bool {
	if ch < 0 || isSpace(ch) {
		return false
	}
	switch ch {
	case ',', '(', ')', '{', '}':
		return false
	}
	return true
}

// scanJunk consumes text up to the next '@' or EOF.
func (s *Scanner) scanJunk() string {
	offs := s.offset
	for s.ch != '@' && s.ch >= 0 {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

// scanCommand scans the type name following '@', which was already consumed.
// Returns the lowercased name, or "" if no name follows.
func (s *Scanner) scanCommand() string {
	s.skipWhitespace()
	offs := s.offset
	for isTagChar(s.ch) {
		s.next()
	}
	return strings.ToLower(string(s.src[offs:s.offset]))
}

// scanString scans a bibtex string delimited by double quotes. The opening
// '"' was already consumed. Braces inside the string are balanced so a '"'
// inside braces does not end the string. Returns the text without delimiters.
func (s *Scanner) scanString() string {
	offs := s.offset - 1 // opening '"' already consumed
	start := s.offset
	depth := 0
	for {
		ch := s.ch
		if ch < 0 {
			s.error(offs, "string literal in double quotes not terminated")
			return string(s.src[start:s.offset])
		}
		switch {
		case ch == '{':
			depth++
		case ch == '}' && depth > 0:
			depth--
		case ch == '"' && depth == 0:
			lit := string(s.src[start:s.offset])
			s.next()
			return lit
		}
		s.next()
	}
}

// scanBraceString scans a bibtex string delimited by braces. The opening '{'
// was already consumed. Returns the text without the outer delimiters.
func (s *Scanner) scanBraceString() string {
	offs := s.offset - 1 // opening '{' already consumed
	start := s.offset
	depth := 0
	for {
		ch := s.ch
		if ch < 0 {
			s.error(offs, "string literal in braces not terminated")
			return string(s.src[start:s.offset])
		}
		switch ch {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				lit := string(s.src[start:s.offset])
				s.next()
				return lit
			}
			depth--
		}
		s.next()
	}
}

func (s *Scanner) scanNumber(offs int) string {
	for isDecimal(s.ch) {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

func (s *Scanner) scanIdent(offs int) string {
	for isIdentChar(s.ch) {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

func (s *Scanner) scanKey() string {
	offs := s.offset
	for isKeyChar(s.ch) {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

// atValueStart reports whether a '{' at the current position opens a brace
// string instead of a record delimiter.
func (s *Scanner) atValueStart() bool {
	switch s.prev {
	case token.Assign, token.Concat:
		return true
	case token.LBrace, token.LParen:
		return s.cmd == token.Preamble
	}
	return false
}

// Scan scans the next token and returns the token position, the token, and its
// literal string if applicable. The source end is indicated by token.EOF.
//
// If the returned token is a literal (token.Ident, token.Key, token.Number,
// token.String, token.BraceString), the literal string has the corresponding
// value, excluding delimiters. If the returned token is a command, the literal
// is the lowercased type name without '@'. Junk tokens are only returned if
// the ScanComments mode is set.
//
// If the returned token is token.Illegal, the literal string is the offending
// character.
//
// Scan adds line information to the file with Init. Token positions are
// relative to the file.
func (s *Scanner) Scan() (pos gotok.Pos, tok token.Token, lit string) {
	if s.cmd == token.Illegal {
		pos, tok, lit = s.scanTop()
	} else {
		pos, tok, lit = s.scanRecord()
	}
	s.prev = tok
	return
}

// scanTop scans outside of any record.
func (s *Scanner) scanTop() (pos gotok.Pos, tok token.Token, lit string) {
	for {
		pos = s.file.Pos(s.offset)
		switch s.ch {
		case -1:
			return pos, token.EOF, ""
		case '@':
			s.next()
			lit = s.scanCommand()
			switch lit {
			case "":
				s.errorf(s.file.Offset(pos), "expected entry type after '@'")
				return pos, token.Illegal, "@"
			case "comment":
				// The comment body is free text; keep scanning for the next '@'.
				return pos, token.Comment, lit
			case "string":
				tok = token.Abbrev
			case "preamble":
				tok = token.Preamble
			default:
				tok = token.Entry
			}
			s.cmd = tok
			s.closer = token.Illegal
			return pos, tok, lit
		default:
			junk := s.scanJunk()
			if s.mode&ScanComments != 0 {
				return pos, token.Junk, junk
			}
		}
	}
}

// scanRecord scans between a record command and its closing delimiter.
func (s *Scanner) scanRecord() (pos gotok.Pos, tok token.Token, lit string) {
	s.skipWhitespace()
	pos = s.file.Pos(s.offset)

	if s.closer == token.Illegal {
		// Awaiting the opening delimiter.
		switch s.ch {
		case '{':
			s.next()
			s.closer = token.RBrace
			return pos, token.LBrace, ""
		case '(':
			s.next()
			s.closer = token.RParen
			return pos, token.LParen, ""
		}
	}

	if s.cmd == token.Entry && (s.prev == token.LBrace || s.prev == token.LParen) {
		if key := s.scanKey(); key != "" {
			return pos, token.Key, key
		}
	}

	ch, offs := s.ch, s.offset
	if ch < 0 {
		return pos, token.EOF, ""
	}
	s.next() // always make progress
	switch ch {
	case '=':
		tok = token.Assign
	case '#':
		tok = token.Concat
	case ',':
		tok = token.Comma
	case '"':
		tok = token.String
		lit = s.scanString()
	case '{':
		if s.atValueStart() {
			tok = token.BraceString
			lit = s.scanBraceString()
		} else {
			tok = token.LBrace
		}
	case '(':
		tok = token.LParen
	case '}':
		tok = token.RBrace
	case ')':
		tok = token.RParen
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		tok = token.Number
		lit = s.scanNumber(offs)
	default:
		if isIdentChar(ch) {
			tok = token.Ident
			lit = s.scanIdent(offs)
		} else {
			tok = token.Illegal
			lit = string(ch)
		}
	}
	if tok == s.closer {
		// End of the record; resume scanning free text.
		s.cmd = token.Illegal
		s.closer = token.Illegal
	}
	return pos, tok, lit
}
