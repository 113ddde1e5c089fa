package interp

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/namelist"
)

// builtinTable holds the built-in functions every Processor starts with.
// Operands are listed bottom to top; the top of the stack is popped first.
var builtinTable = map[string]Builtin{
	">":            compareInts(func(a, b int) bool { return a > b }),
	"<":            compareInts(func(a, b int) bool { return a < b }),
	"=":            equals,
	"+":            arith(addInt),
	"-":            arith(subInt),
	"*":            concat,
	":=":           assign,
	"add.period$":  mapString(addPeriod),
	"call.type$":   callType,
	"change.case$": changeCaseBuiltin,
	"chr.to.int$":  chrToInt,
	"cite$":        entryString(func(e *bibtex.Entry) string { return e.Key }),
	"duplicate$":   duplicate,
	"empty$":       empty,
	"format.name$": formatName,
	"if$":          ifBuiltin,
	"int.to.chr$":  intToChr,
	"int.to.str$":  intToStr,
	"missing$":     missing,
	"newline$":     newline,
	"num.names$":   numNames,
	"pop$":         pop,
	"preamble$":    preamble,
	"purify$":      mapString(purify),
	"quote$":       pushString(`"`),
	"skip$":        func(*Processor) error { return nil },
	"stack$":       stack,
	"substring$":   substringBuiltin,
	"swap$":        swap,
	"text.length$": textLengthBuiltin,
	"text.prefix$": textPrefixBuiltin,
	"top$":         top,
	"type$":        entryString(func(e *bibtex.Entry) string { return e.Type }),
	"warning$":     warning,
	"while$":       while,
	"width$":       widthBuiltin,
	"write$":       write,
}

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// compareInts pops b then a and pushes 1 if cmp(a, b), else 0.
func compareInts(cmp func(a, b int) bool) Builtin {
	return func(p *Processor) error {
		b, err := p.PopInt()
		if err != nil {
			return err
		}
		a, err := p.PopInt()
		if err != nil {
			return err
		}
		p.Push(boolValue(cmp(a, b)))
		return nil
	}
}

func arith(op func(a, b int) (int, bool)) Builtin {
	return func(p *Processor) error {
		b, err := p.PopInt()
		if err != nil {
			return err
		}
		a, err := p.PopInt()
		if err != nil {
			return err
		}
		n, ok := op(a, b)
		if !ok {
			p.complainf("integer overflow computing %d and %d", a, b)
			n = 0
		}
		p.Push(IntValue(n))
		return nil
	}
}

// addInt returns a+b and whether the sum fits in an int.
func addInt(a, b int) (int, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

// subInt returns a-b and whether the difference fits in an int.
func subInt(a, b int) (int, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}

// mapString replaces the string on top of the stack with f of it.
func mapString(f func(string) string) Builtin {
	return func(p *Processor) error {
		s, err := p.PopString()
		if err != nil {
			return err
		}
		p.Push(StringValue(f(s)))
		return nil
	}
}

func pushString(s string) Builtin {
	return func(p *Processor) error {
		p.Push(StringValue(s))
		return nil
	}
}

func entryString(f func(e *bibtex.Entry) string) Builtin {
	return func(p *Processor) error {
		e, err := p.current("")
		if err != nil {
			return err
		}
		p.Push(StringValue(f(e)))
		return nil
	}
}

// equals compares two integers or two strings. A missing field compares as
// the empty string.
func equals(p *Processor) error {
	b, err := p.Pop()
	if err != nil {
		return err
	}
	a, err := p.Pop()
	if err != nil {
		return err
	}
	for _, v := range []*Value{&a, &b} {
		if v.Kind == Missing {
			p.Warnf("%s is a missing field, not a string", v.S)
			*v = StringValue("")
		}
	}
	switch {
	case a.Kind == Int && b.Kind == Int:
		p.Push(boolValue(a.N == b.N))
	case a.Kind == Str && b.Kind == Str:
		p.Push(boolValue(a.S == b.S))
	default:
		return p.errorf(bibtex.ErrTypeMismatch, "cannot compare %s %s with %s %s", a.Kind, a, b.Kind, b)
	}
	return nil
}

func concat(p *Processor) error {
	b, err := p.PopString()
	if err != nil {
		return err
	}
	a, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(StringValue(a + b))
	return nil
}

// truncate shortens s to at most limit characters, warning if it had to.
func (p *Processor) truncate(name, s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	p.Warnf("value of %s is longer than %d characters; truncated", name, limit)
	return string([]rune(s)[:limit])
}

// assign pops a variable reference and then the value to store in it.
func assign(p *Processor) error {
	target, err := p.Pop()
	if err != nil {
		return err
	}
	if target.Kind != FuncRef || !target.sym.isVar() {
		return p.errorf(bibtex.ErrTypeMismatch, "expected variable, got %s %s", target.Kind, target)
	}
	s := target.sym
	switch s.kind {
	case symGlobalInt, symEntryInt:
		n, err := p.PopInt()
		if err != nil {
			return err
		}
		if s.kind == symGlobalInt {
			p.ints[s.name] = n
			return nil
		}
		e, err := p.current(s.name)
		if err != nil {
			return err
		}
		e.SetLocalInt(s.name, n)
	default:
		v, err := p.PopString()
		if err != nil {
			return err
		}
		if s.kind == symGlobalStr {
			p.strs[s.name] = p.truncate(s.name, v, p.ints["global.max$"])
			return nil
		}
		e, err := p.current(s.name)
		if err != nil {
			return err
		}
		e.SetLocalString(s.name, p.truncate(s.name, v, p.ints["entry.max$"]))
	}
	return nil
}

// callType calls the function named by the current entry's type, or
// default.type if the style defines no such function.
func callType(p *Processor) error {
	e, err := p.current("")
	if err != nil {
		return err
	}
	if s, ok := p.syms[e.Type]; ok && s.kind == symFunction {
		return p.call(s)
	}
	s, ok := p.syms["default.type"]
	if !ok {
		return p.errorf(bibtex.ErrUnknownName, "no function for entry type %q and no default.type", e.Type)
	}
	p.Warnf("entry type %q isn't style-file defined", e.Type)
	return p.call(s)
}

func changeCaseBuiltin(p *Processor) error {
	conv, err := p.PopString()
	if err != nil {
		return err
	}
	s, err := p.PopString()
	if err != nil {
		return err
	}
	mode := strings.ToLower(conv)
	if mode != "t" && mode != "l" && mode != "u" {
		p.complainf("%q is an illegal case-conversion string", conv)
		p.Push(StringValue(s))
		return nil
	}
	p.Push(StringValue(changeCase(s, mode[0])))
	return nil
}

func chrToInt(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	r, w := utf8.DecodeRuneInString(s)
	if w == 0 || w != len(s) {
		p.complainf("%q isn't a single character", s)
		p.Push(IntValue(0))
		return nil
	}
	p.Push(IntValue(int(r)))
	return nil
}

func duplicate(p *Processor) error {
	v, err := p.Pop()
	if err != nil {
		return err
	}
	p.Push(v)
	p.Push(v)
	return nil
}

// empty pushes 1 for a missing field or a string of only whitespace.
func empty(p *Processor) error {
	v, err := p.Pop()
	if err != nil {
		return err
	}
	switch v.Kind {
	case Missing:
		p.Push(IntValue(1))
	case Str:
		p.Push(boolValue(strings.TrimSpace(v.S) == ""))
	default:
		return p.errorf(bibtex.ErrTypeMismatch, "expected string, got %s %s", v.Kind, v)
	}
	return nil
}

// formatName pops a format, a name number and a name list, and pushes the
// formatted name.
func formatName(p *Processor) error {
	format, err := p.PopString()
	if err != nil {
		return err
	}
	n, err := p.PopInt()
	if err != nil {
		return err
	}
	list, err := p.PopString()
	if err != nil {
		return err
	}
	names := namelist.Split(list)
	if n < 1 || n > len(names) {
		p.complainf("there is no name %d in %q", n, list)
		p.Push(StringValue(""))
		return nil
	}
	s, err := namelist.Format(namelist.Parse(names[n-1]), format)
	if err != nil {
		p.complainf("%s", err)
	}
	p.Push(StringValue(s))
	return nil
}

// ifBuiltin pops the else and then functions and an integer, and calls
// then if the integer is positive.
func ifBuiltin(p *Processor) error {
	elseFn, err := p.popFunc()
	if err != nil {
		return err
	}
	thenFn, err := p.popFunc()
	if err != nil {
		return err
	}
	cond, err := p.PopInt()
	if err != nil {
		return err
	}
	if cond > 0 {
		return p.call(thenFn)
	}
	return p.call(elseFn)
}

func intToChr(p *Processor) error {
	n, err := p.PopInt()
	if err != nil {
		return err
	}
	if n < 0 || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
		p.complainf("%d isn't a valid character code", n)
		p.Push(StringValue(""))
		return nil
	}
	p.Push(StringValue(string(rune(n))))
	return nil
}

func intToStr(p *Processor) error {
	n, err := p.PopInt()
	if err != nil {
		return err
	}
	p.Push(StringValue(strconv.Itoa(n)))
	return nil
}

func missing(p *Processor) error {
	v, err := p.Pop()
	if err != nil {
		return err
	}
	p.Push(boolValue(v.Kind == Missing))
	return nil
}

func newline(p *Processor) error {
	if err := p.out.Newline(); err != nil {
		return &bibtex.Error{Kind: bibtex.ErrIO, Loc: p.loc, Msg: "writing output", Err: err}
	}
	return nil
}

func numNames(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(IntValue(namelist.Count(s)))
	return nil
}

func pop(p *Processor) error {
	_, err := p.Pop()
	return err
}

func preamble(p *Processor) error {
	p.Push(StringValue(p.db.Preamble().Expand(p.db)))
	return nil
}

// stack pops and logs the whole stack, top first.
func stack(p *Processor) error {
	for len(p.stack) > 0 {
		v, _ := p.Pop()
		p.log.Info(v.String(), p.logAttrs()...)
	}
	return nil
}

// substringBuiltin pops a length, a start position and a string. Positions
// count characters from 1; a negative start counts back from the end.
func substringBuiltin(p *Processor) error {
	n, err := p.PopInt()
	if err != nil {
		return err
	}
	start, err := p.PopInt()
	if err != nil {
		return err
	}
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(StringValue(substring(s, start, n)))
	return nil
}

func swap(p *Processor) error {
	b, err := p.Pop()
	if err != nil {
		return err
	}
	a, err := p.Pop()
	if err != nil {
		return err
	}
	p.Push(b)
	p.Push(a)
	return nil
}

func textLengthBuiltin(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(IntValue(textLength(s)))
	return nil
}

func textPrefixBuiltin(p *Processor) error {
	n, err := p.PopInt()
	if err != nil {
		return err
	}
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(StringValue(textPrefix(s, n)))
	return nil
}

func top(p *Processor) error {
	v, err := p.Pop()
	if err != nil {
		return err
	}
	p.log.Info(v.String(), p.logAttrs()...)
	return nil
}

func warning(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Warnf("%s", s)
	return nil
}

// while pops a body and a condition function, and calls the body as long as
// the condition leaves a positive integer.
func while(p *Processor) error {
	body, err := p.popFunc()
	if err != nil {
		return err
	}
	cond, err := p.popFunc()
	if err != nil {
		return err
	}
	for {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		if err := p.call(cond); err != nil {
			return err
		}
		n, err := p.PopInt()
		if err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		if err := p.call(body); err != nil {
			return err
		}
	}
}

func widthBuiltin(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	p.Push(IntValue(width(s)))
	return nil
}

func write(p *Processor) error {
	s, err := p.PopString()
	if err != nil {
		return err
	}
	if err := p.out.Write(s); err != nil {
		return &bibtex.Error{Kind: bibtex.ErrIO, Loc: p.loc, Msg: "writing output", Err: err}
	}
	return nil
}
