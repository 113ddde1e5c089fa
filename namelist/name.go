package namelist

import "strings"

// Span is a half-open range of token indexes.
type Span struct {
	Start, End int
}

func (s Span) Empty() bool { return s.End <= s.Start }

// Name is one name split into words and assigned to the four name parts.
type Name struct {
	Tokens []string // words in source order, braces kept
	Seps   []rune   // Seps[i] is the separator before Tokens[i]: ' ', '-', '~', ',' or 0
	Commas int      // commas at brace depth 0, including ignored extras

	First, Von, Last, Jr Span
}

// Parse splits a single name into its First, von, Last and Jr parts using
// the comma forms bibtex accepts:
//
//	First von Last
//	von Last, First
//	von Last, Jr, First
//
// Commas after the second are ignored.
func Parse(name string) Name {
	var n Name
	var commaAt [2]int
	var s scanner
	s.init(name)
	sep := rune(0)
	for {
		_, tok, lit := s.scan()
		switch tok {
		case EOF:
			return n.assign(commaAt)
		case Whitespace:
			if sep == 0 && len(n.Tokens) > 0 {
				sep = ' '
			}
		case Sep:
			if sep == 0 && len(n.Tokens) > 0 {
				sep = []rune(lit)[0]
			}
		case Comma:
			if n.Commas < 2 {
				commaAt[n.Commas] = len(n.Tokens)
				sep = ','
			}
			n.Commas++
		default:
			n.Tokens = append(n.Tokens, lit)
			n.Seps = append(n.Seps, sep)
			sep = 0
		}
	}
}

func (n Name) assign(commaAt [2]int) Name {
	num := len(n.Tokens)
	switch min(n.Commas, 2) {
	case 0:
		lastEnd := num
		vonStart := 0
		for vonStart < lastEnd-1 && !isVon(n.Tokens[vonStart]) {
			vonStart++
		}
		vonEnd := vonStart
		if vonStart < lastEnd-1 {
			vonEnd = n.vonEnd(vonStart, lastEnd)
		}
		n.First = Span{0, vonStart}
		n.Von = Span{vonStart, vonEnd}
		n.Last = Span{vonEnd, lastEnd}
		n.Jr = Span{lastEnd, lastEnd}
	case 1:
		lastEnd := commaAt[0]
		vonEnd := n.vonEnd(0, lastEnd)
		n.Von = Span{0, vonEnd}
		n.Last = Span{vonEnd, lastEnd}
		n.Jr = Span{lastEnd, lastEnd}
		n.First = Span{lastEnd, num}
	default:
		lastEnd := commaAt[0]
		vonEnd := n.vonEnd(0, lastEnd)
		n.Von = Span{0, vonEnd}
		n.Last = Span{vonEnd, lastEnd}
		n.Jr = Span{lastEnd, commaAt[1]}
		n.First = Span{commaAt[1], num}
	}
	return n
}

// vonEnd returns the index after the last von token in [vonStart, lastEnd-1).
// The Last part always keeps at least one token.
func (n Name) vonEnd(vonStart, lastEnd int) int {
	if lastEnd <= vonStart {
		return vonStart
	}
	vonEnd := lastEnd - 1
	for vonEnd > vonStart {
		if isVon(n.Tokens[vonEnd-1]) {
			return vonEnd
		}
		vonEnd--
	}
	return vonEnd
}

// Part returns the words of a part joined with their original separators.
func (n Name) Part(s Span) string {
	sb := strings.Builder{}
	for i := s.Start; i < s.End && i < len(n.Tokens); i++ {
		if i > s.Start {
			switch sep := n.Seps[i]; sep {
			case '-', '~':
				sb.WriteRune(sep)
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(n.Tokens[i])
	}
	return sb.String()
}

// specialCase maps the control sequences of foreign letters to whether they
// are lowercase.
var specialCase = map[string]bool{
	"i": true, "j": true, "oe": true, "ae": true, "aa": true, "o": true, "l": true, "ss": true,
	"OE": false, "AE": false, "AA": false, "O": false, "L": false,
}

// isVon reports whether the first letter of a word at brace depth 0 is
// lowercase. Braced groups are skipped unless they are special characters,
// like {\"u}, whose letters are inspected after the control sequence.
func isVon(tok string) bool {
	for i := 0; i < len(tok); i++ {
		ch := tok[i]
		switch {
		case 'A' <= ch && ch <= 'Z':
			return false
		case 'a' <= ch && ch <= 'z':
			return true
		case ch == '{':
			depth := 1
			i++
			if i+2 < len(tok) && tok[i] == '\\' {
				// special character
				i++
				j := i
				for j < len(tok) && isAlpha(tok[j]) {
					j++
				}
				if lower, ok := specialCase[tok[i:j]]; ok {
					return lower
				}
				for i = j; i < len(tok) && depth > 0; i++ {
					switch c := tok[i]; {
					case 'A' <= c && c <= 'Z':
						return false
					case 'a' <= c && c <= 'z':
						return true
					case c == '{':
						depth++
					case c == '}':
						depth--
					}
				}
				return false
			}
			for ; i < len(tok) && depth > 0; i++ {
				switch tok[i] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			i-- // the loop increments past the closing brace
		}
	}
	return false
}

func isAlpha(ch byte) bool { return 'a' <= ch|0x20 && ch|0x20 <= 'z' }
