// Package namelist splits and formats bibtex name lists, the values of
// author and editor fields, following the rules of format.name$.
package namelist

import (
	"strings"
	"unicode/utf8"
)

// scanner tokenizes a name list. Braced groups are opaque: whitespace,
// commas and separators inside braces belong to the enclosing word.
type scanner struct {
	src      []byte
	ch       rune    // current character
	offset   int     // character offset
	rdOffset int     // reading offset (position after current character)
	prev     NameTok // previous token
	prev2    NameTok // previous-previous token
}

func (s *scanner) next() {
	if s.rdOffset < len(s.src) {
		s.offset = s.rdOffset
		r, w := rune(s.src[s.rdOffset]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(s.src[s.rdOffset:])
		}
		s.rdOffset += w
		s.ch = r
	} else {
		s.offset = len(s.src)
		s.ch = -1
	}
}

func (s *scanner) init(src string) {
	s.src = []byte(src)
	s.ch = ' '
	s.offset = 0
	s.rdOffset = 0
	s.prev = Illegal
	s.prev2 = Illegal
	s.next()
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isSep(ch rune) bool { return ch == '-' || ch == '~' }

func (s *scanner) skipWhitespace() {
	for isSpace(s.ch) {
		s.next()
	}
}

// scanWord scans up to whitespace, a comma or a separator at brace depth 0.
// Unbalanced closing braces are kept as part of the word.
func (s *scanner) scanWord() string {
	offs := s.offset
	depth := 0
	for s.ch >= 0 {
		switch {
		case s.ch == '{':
			depth++
		case s.ch == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (isSpace(s.ch) || s.ch == ',' || isSep(s.ch)):
			return string(s.src[offs:s.offset])
		}
		s.next()
	}
	return string(s.src[offs:s.offset])
}

// scan returns the next token, its literal text and its byte offset.
func (s *scanner) scan() (offs int, tok NameTok, lit string) {
	offs = s.offset
	switch ch := s.ch; {
	case ch < 0:
		tok = EOF
	case isSpace(ch):
		s.skipWhitespace() // collapse adjacent whitespace
		tok = Whitespace
		lit = string(s.src[offs:s.offset])
	case ch == ',':
		s.next()
		tok = Comma
		lit = ","
	case isSep(ch):
		s.next()
		tok = Sep
		lit = string(ch)
	default:
		tok = Word
		lit = s.scanWord()
		switch l := strings.ToLower(lit); {
		case s.prev == Whitespace && isSpace(s.ch) && l == "and":
			tok = NameSep
		case s.prev2 == NameSep && s.prev == Whitespace && s.ch < 0 && l == "others":
			tok = Others
		}
	}

	if tok != EOF {
		s.prev2 = s.prev
		s.prev = tok
	}
	return
}

// Split splits a name list on the word "and" at brace depth 0. Names are
// trimmed of surrounding whitespace. An empty or blank list has no names.
func Split(list string) []string {
	var s scanner
	s.init(list)
	var names []string
	start := 0
	for {
		offs, tok, _ := s.scan()
		switch tok {
		case NameSep:
			names = append(names, strings.TrimSpace(list[start:offs]))
			start = s.offset
		case EOF:
			if last := strings.TrimSpace(list[start:]); last != "" || len(names) > 0 {
				names = append(names, last)
			}
			return names
		}
	}
}

// Count returns the number of names in a name list, as num.names$ does.
func Count(list string) int {
	return len(Split(list))
}
