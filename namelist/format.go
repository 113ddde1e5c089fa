package namelist

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// longToken is the number of text characters after which a default
// separator or a trailing tie becomes a space.
const longToken = 3

// FormatError reports a malformed format.name$ pattern.
type FormatError struct {
	Format string
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("name format %q: %s", e.Format, e.Msg)
}

// Format renders n with a format.name$ pattern such as "{ff~}{vv~}{ll}{, jj}".
//
// Text outside braces is copied. Each brace group names one part with its
// first letter, f, v, l or j; a doubled letter writes whole words, a single
// letter abbreviates them to their first letter. A braced string right after
// the letters replaces the default separator between words. The group, text
// before and after the letters included, is omitted when the part is empty.
func Format(n Name, format string) (string, error) {
	sb := strings.Builder{}
	for i := 0; i < len(format); {
		switch format[i] {
		case '{':
			end := matchBrace(format, i)
			if end < 0 {
				return "", &FormatError{Format: format, Msg: "unbalanced braces"}
			}
			if err := n.formatGroup(&sb, format, format[i+1:end]); err != nil {
				return "", err
			}
			i = end + 1
		case '}':
			return "", &FormatError{Format: format, Msg: "unbalanced braces"}
		default:
			sb.WriteByte(format[i])
			i++
		}
	}
	return sb.String(), nil
}

// matchBrace returns the index of the brace closing the one at s[open], or
// -1 if there is none.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (n Name) span(letter byte) (Span, bool) {
	switch letter {
	case 'f':
		return n.First, true
	case 'v':
		return n.Von, true
	case 'l':
		return n.Last, true
	case 'j':
		return n.Jr, true
	default:
		return Span{}, false
	}
}

func (n Name) formatGroup(sb *strings.Builder, format, body string) error {
	// Text before the part letter, skipping nested groups.
	i, depth := 0, 0
	for ; i < len(body); i++ {
		ch := body[i]
		if depth == 0 && isAlpha(ch) {
			break
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	if i == len(body) {
		// No part letter; the group is literal text.
		sb.WriteString("{" + body + "}")
		return nil
	}
	pre := body[:i]
	letter := body[i] | 0x20
	span, ok := n.span(letter)
	if !ok {
		return &FormatError{Format: format, Msg: fmt.Sprintf("illegal name part letter %q", body[i])}
	}
	full := i+1 < len(body) && body[i+1]|0x20 == letter
	for i < len(body) && isAlpha(body[i]) {
		i++
	}
	inter, useDefault := "", true
	if i < len(body) && body[i] == '{' {
		end := matchBrace(body, i)
		if end < 0 {
			return &FormatError{Format: format, Msg: "unbalanced braces"}
		}
		inter, useDefault = body[i+1:end], false
		i = end + 1
	}
	post := body[i:]

	if span.Empty() {
		return nil
	}
	sb.WriteString(pre)
	partStart := sb.Len()
	for cur := span.Start; cur < span.End; cur++ {
		tok := n.Tokens[cur]
		if full {
			sb.WriteString(tok)
		} else {
			sb.WriteString(abbreviate(tok))
		}
		if cur+1 == span.End {
			break
		}
		if !useDefault {
			sb.WriteString(inter)
			continue
		}
		if !full {
			sb.WriteByte('.')
		}
		switch sep := n.Seps[cur+1]; {
		case sep == '-' || sep == '~':
			sb.WriteRune(sep)
		case cur+2 == span.End || !enoughTextChars(sb.String()[partStart:], longToken):
			sb.WriteByte('~')
		default:
			sb.WriteByte(' ')
		}
	}

	// A single trailing tie is discretionary; "~~" forces one tie.
	switch {
	case strings.HasSuffix(post, "~~"):
		sb.WriteString(post[:len(post)-1])
	case strings.HasSuffix(post, "~"):
		sb.WriteString(post[:len(post)-1])
		if enoughTextChars(sb.String()[partStart:], longToken) {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte('~')
		}
	default:
		sb.WriteString(post)
	}
	return nil
}

// abbreviate returns the first letter of a word. A special character such as
// {\"O} is kept whole; other braces are skipped.
func abbreviate(tok string) string {
	for i := 0; i < len(tok); {
		r, w := utf8.DecodeRuneInString(tok[i:])
		switch {
		case unicode.IsLetter(r):
			return tok[i : i+w]
		case r == '{' && i+1 < len(tok) && tok[i+1] == '\\':
			if end := matchBrace(tok, i); end >= 0 {
				return tok[i : end+1]
			}
			return tok[i:]
		}
		i += w
	}
	return ""
}

// enoughTextChars reports whether s holds at least n text characters. A
// special character at brace depth 1 counts as one.
func enoughTextChars(s string, n int) bool {
	count, depth := 0, 0
	for i := 0; i < len(s) && count < n; {
		ch := s[i]
		i++
		switch ch {
		case '{':
			depth++
			if depth == 1 && i < len(s) && s[i] == '\\' {
				i++
				for i < len(s) && depth > 0 {
					switch s[i] {
					case '{':
						depth++
					case '}':
						depth--
					}
					i++
				}
			}
		case '}':
			depth--
		}
		if ch >= utf8.RuneSelf {
			_, w := utf8.DecodeRuneInString(s[i-1:])
			i += w - 1
		}
		count++
	}
	return count >= n
}
