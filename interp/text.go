package interp

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Text functions treat a brace group at depth 0 that starts with a
// backslash, like {\"o} or {\ss}, as one special character. Other braces
// protect their contents and are not characters themselves.

// isSpecial reports whether s[i] opens a special character.
func isSpecial(s string, i, depth int) bool {
	return depth == 0 && s[i] == '{' && i+1 < len(s) && s[i+1] == '\\'
}

// groupEnd returns the index after the brace group opening at s[open], or
// len(s) if the group is not closed.
func groupEnd(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

func isAlpha(ch byte) bool { return 'a' <= ch|0x20 && ch|0x20 <= 'z' }

func isWhite(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// controlSeq splits s, which starts after a backslash, into the control
// sequence name and the rest. A name is a run of letters or one other
// character.
func controlSeq(s string) (name, rest string) {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 && len(s) > 0 {
		i = 1
	}
	return s[:i], s[i:]
}

// foreignLetters are the control sequences that stand for letters.
var foreignLetters = map[string]bool{
	"i": true, "j": true, "oe": true, "OE": true, "ae": true, "AE": true,
	"aa": true, "AA": true, "o": true, "O": true, "l": true, "L": true, "ss": true,
}

func addPeriod(s string) string {
	t := strings.TrimRight(s, "}")
	if t == "" {
		return s
	}
	switch t[len(t)-1] {
	case '.', '?', '!':
		return s
	}
	return s + "."
}

// substring returns n characters of s starting at start, counted from 1. A
// negative start counts from the end of s, with -1 ending at the last
// character.
func substring(s string, start, n int) string {
	r := []rune(s)
	l := len(r)
	if n <= 0 || start == 0 || start > l || start < -l {
		return ""
	}
	n = min(n, l)
	if start > 0 {
		from := start - 1
		return string(r[from:min(from+n, l)])
	}
	to := l + start + 1
	return string(r[max(to-n, 0):to])
}

func textLength(s string) int {
	n, depth := 0, 0
	for i := 0; i < len(s); {
		switch {
		case isSpecial(s, i, depth):
			n++
			i = groupEnd(s, i)
		case s[i] == '{':
			depth++
			i++
		case s[i] == '}':
			depth = max(depth-1, 0)
			i++
		default:
			_, w := utf8.DecodeRuneInString(s[i:])
			n++
			i += w
		}
	}
	return n
}

// textPrefix returns the first n characters of s, closing any braces left
// open.
func textPrefix(s string, n int) string {
	count, depth, i := 0, 0, 0
	for i < len(s) && count < n {
		switch {
		case isSpecial(s, i, depth):
			count++
			i = groupEnd(s, i)
		case s[i] == '{':
			depth++
			i++
		case s[i] == '}':
			depth = max(depth-1, 0)
			i++
		default:
			_, w := utf8.DecodeRuneInString(s[i:])
			count++
			i += w
		}
	}
	return s[:i] + strings.Repeat("}", depth)
}

// purify keeps letters, digits and whitespace, turning hyphens and ties
// into spaces. Special characters keep the letters they stand for, and
// accents on Unicode letters are dropped.
func purify(s string) string {
	s = norm.NFD.String(s)
	sb := strings.Builder{}
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case isSpecial(s, i, depth):
			end := groupEnd(s, i)
			body := strings.TrimSuffix(s[i+2:end], "}")
			purifySpecial(&sb, body)
			i = end
		case s[i] == '{':
			depth++
			i++
		case s[i] == '}':
			depth = max(depth-1, 0)
			i++
		case isWhite(s[i]) || s[i] == '-' || s[i] == '~':
			sb.WriteByte(' ')
			i++
		default:
			r, w := utf8.DecodeRuneInString(s[i:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sb.WriteRune(r)
			}
			i += w
		}
	}
	return sb.String()
}

// purifySpecial writes the letters of a special character. body follows
// the opening "{\".
func purifySpecial(sb *strings.Builder, body string) {
	name, rest := controlSeq(body)
	if foreignLetters[name] {
		sb.WriteString(name)
	}
	for i := 0; i < len(rest); {
		if rest[i] == '\\' {
			_, after := controlSeq(rest[i+1:])
			i = len(rest) - len(after)
			continue
		}
		r, w := utf8.DecodeRuneInString(rest[i:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
		i += w
	}
}

// changeCase converts s to title case ('t'), lower case ('l') or upper
// case ('u'). Text inside braces is left alone, except in special
// characters. In title case the first character and the first character
// after a colon and whitespace keep their case.
func changeCase(s string, mode byte) string {
	sb := strings.Builder{}
	depth := 0
	colon := false
	keep := func(i int) bool {
		return mode == 't' && (i == 0 || colon && isWhite(s[i-1]))
	}
	for i := 0; i < len(s); {
		switch {
		case isSpecial(s, i, depth):
			end := groupEnd(s, i)
			if keep(i) {
				sb.WriteString(s[i:end])
			} else {
				sb.WriteString(caseSpecial(s[i:end], mode))
			}
			colon = false
			i = end
		case s[i] == '{':
			depth++
			colon = false
			sb.WriteByte(s[i])
			i++
		case s[i] == '}':
			depth = max(depth-1, 0)
			sb.WriteByte(s[i])
			i++
		case depth > 0:
			sb.WriteByte(s[i])
			i++
		default:
			r, w := utf8.DecodeRuneInString(s[i:])
			switch {
			case mode == 'u':
				sb.WriteRune(unicode.ToUpper(r))
			case keep(i):
				sb.WriteRune(r)
			default:
				sb.WriteRune(unicode.ToLower(r))
			}
			if r == ':' {
				colon = true
			} else if !isWhite(s[i]) {
				colon = false
			}
			i += w
		}
	}
	return sb.String()
}

// caseSpecial converts the letters of a special character. Control
// sequences keep their names, except the foreign letters, which change case.
func caseSpecial(grp string, mode byte) string {
	sb := strings.Builder{}
	for i := 0; i < len(grp); {
		if grp[i] == '\\' {
			name, rest := controlSeq(grp[i+1:])
			sb.WriteByte('\\')
			sb.WriteString(caseControl(name, mode))
			i = len(grp) - len(rest)
			continue
		}
		r, w := utf8.DecodeRuneInString(grp[i:])
		if mode == 'u' {
			r = unicode.ToUpper(r)
		} else {
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
		i += w
	}
	return sb.String()
}

func caseControl(name string, mode byte) string {
	if mode == 'u' {
		switch name {
		case "oe", "ae", "aa", "o", "l":
			return strings.ToUpper(name)
		}
		return name
	}
	switch name {
	case "OE", "AE", "AA", "O", "L":
		return strings.ToLower(name)
	}
	return name
}

// charWidths are the widths of the cmr10 font in hundredths of a point.
var charWidths = [128]int{
	' ': 278, '!': 278, '"': 500, '#': 833, '$': 500, '%': 833, '&': 778, '\'': 278,
	'(': 389, ')': 389, '*': 500, '+': 778, ',': 278, '-': 333, '.': 278, '/': 500,
	'0': 500, '1': 500, '2': 500, '3': 500, '4': 500, '5': 500, '6': 500, '7': 500, '8': 500, '9': 500,
	':': 278, ';': 278, '<': 278, '=': 778, '>': 472, '?': 472, '@': 778,
	'A': 750, 'B': 708, 'C': 722, 'D': 764, 'E': 681, 'F': 653, 'G': 785, 'H': 750, 'I': 361,
	'J': 514, 'K': 778, 'L': 625, 'M': 917, 'N': 750, 'O': 778, 'P': 681, 'Q': 778, 'R': 736,
	'S': 556, 'T': 722, 'U': 750, 'V': 750, 'W': 1028, 'X': 750, 'Y': 750, 'Z': 611,
	'[': 278, '\\': 500, ']': 278, '^': 500, '`': 278,
	'a': 500, 'b': 556, 'c': 444, 'd': 556, 'e': 444, 'f': 306, 'g': 500, 'h': 556, 'i': 278,
	'j': 306, 'k': 528, 'l': 278, 'm': 833, 'n': 556, 'o': 500, 'p': 556, 'q': 528, 'r': 392,
	's': 394, 't': 389, 'u': 556, 'v': 528, 'w': 722, 'x': 528, 'y': 528, 'z': 444,
	'{': 500, '|': 1000, '}': 500, '~': 500,
}

// specialWidths are the widths of foreign letters that differ from their
// first letter.
var specialWidths = map[string]int{
	"ss": 500, "ae": 722, "oe": 778, "AE": 903, "OE": 1014,
}

// runeWidth returns the width of r. A letter outside ASCII measures as its
// unaccented base letter.
func runeWidth(r rune) int {
	if r < utf8.RuneSelf {
		return charWidths[r]
	}
	base, _ := utf8.DecodeRuneInString(norm.NFD.String(string(r)))
	if base < utf8.RuneSelf {
		return charWidths[base]
	}
	return 0
}

// width measures s in the cmr10 font.
func width(s string) int {
	w, depth := 0, 0
	for i := 0; i < len(s); {
		switch {
		case isSpecial(s, i, depth):
			end := groupEnd(s, i)
			w += specialWidth(strings.TrimSuffix(s[i+1:end], "}"))
			i = end
			continue
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth = max(depth-1, 0)
		}
		r, n := utf8.DecodeRuneInString(s[i:])
		w += runeWidth(r)
		i += n
	}
	return w
}

// specialWidth measures the inside of a special character. A control word
// measures as its first letter unless it has a width of its own; control
// symbols such as accents have no width.
func specialWidth(body string) int {
	w := 0
	for i := 0; i < len(body); {
		switch body[i] {
		case '\\':
			name, rest := controlSeq(body[i+1:])
			if sw, ok := specialWidths[name]; ok {
				w += sw
			} else if name != "" && isAlpha(name[0]) {
				w += charWidths[name[0]]
			}
			i = len(body) - len(rest)
		case '{', '}':
			i++
		default:
			r, n := utf8.DecodeRuneInString(body[i:])
			w += runeWidth(r)
			i += n
		}
	}
	return w
}
