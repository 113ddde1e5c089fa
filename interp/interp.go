// Package interp runs compiled style programs. A Processor is a stack machine
// over a bibtex.Database: commands declare names, read the databases, and
// drive functions over the selected entries, which write the formatted
// bibliography to a sink.
package interp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/bst"
	"github.com/jschaf/bibtex/v2/internal/ctxlog"
	"github.com/jschaf/bibtex/v2/resource"
	"github.com/jschaf/bibtex/v2/sink"
	"github.com/jschaf/bibtex/v2/token"
)

// Builtin is a built-in function. It takes its operands from the stack and
// pushes its results.
type Builtin func(p *Processor) error

// Selection is the set of entries a run formats.
type Selection struct {
	All  bool     // every entry, after the cited ones
	Keys []string // cited keys in citation order; "*" is the same as All
}

const (
	DefaultMinCrossrefs = 2
	DefaultMaxCallDepth = 1000

	entryMax  = 250   // initial entry.max$
	globalMax = 20000 // initial global.max$
)

type Config struct {
	Database  *bibtex.Database // entries loaded before READ; or nil
	Sink      sink.Sink        // output; nil discards it
	Finder    resource.Finder  // resolves Sources; nil searches the working directory
	Sources   []string         // databases READ loads, in order
	Citations Selection

	// An uncited entry cross-referenced by at least MinCrossrefs selected
	// entries is selected too. Zero means DefaultMinCrossrefs.
	MinCrossrefs int
	// MaxCallDepth bounds nested calls of user functions. Zero means
	// DefaultMaxCallDepth.
	MaxCallDepth int

	Logger *slog.Logger // nil uses the logger from the Run context
}

// State is the lifecycle state of a Processor.
type State int

const (
	Idle State = iota
	Running
	Halted
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts the diagnostics of a run. A fatal error counts as one error.
type Stats struct {
	Errors   int
	Warnings int
}

// Processor executes one style program once.
type Processor struct {
	cfg Config
	db  *bibtex.Database
	out sink.Sink
	log *slog.Logger
	ctx context.Context

	builtins map[string]*symbol
	syms     map[string]*symbol // declared and predeclared names
	ints     map[string]int
	strs     map[string]string

	stack []Value
	entry *bibtex.Entry // current entry inside ITERATE and REVERSE
	loc   token.Locator // instruction being executed
	op    string        // built-in being executed
	depth int           // nested user function calls

	state    State
	stats    Stats
	declared bool // ENTRY seen
	read     bool // READ seen
}

func New(cfg Config) *Processor {
	if cfg.Database == nil {
		cfg.Database = bibtex.NewDatabase()
	}
	if cfg.Sink == nil {
		cfg.Sink = sink.Discard()
	}
	if cfg.Finder == nil {
		cfg.Finder = resource.SearchPath{}
	}
	if cfg.MinCrossrefs <= 0 {
		cfg.MinCrossrefs = DefaultMinCrossrefs
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	p := &Processor{
		cfg:      cfg,
		db:       cfg.Database,
		out:      cfg.Sink,
		log:      cfg.Logger,
		builtins: make(map[string]*symbol, len(builtinTable)),
		syms:     make(map[string]*symbol),
		ints:     make(map[string]int),
		strs:     make(map[string]string),
	}
	for name, fn := range builtinTable {
		p.builtins[name] = &symbol{name: name, kind: symBuiltin, fn: fn}
	}
	p.syms[string(bibtex.FieldCrossref)] = &symbol{name: string(bibtex.FieldCrossref), kind: symField}
	p.syms[bibtex.SortKey] = &symbol{name: bibtex.SortKey, kind: symEntryStr}
	p.syms["entry.max$"] = &symbol{name: "entry.max$", kind: symGlobalInt}
	p.syms["global.max$"] = &symbol{name: "global.max$", kind: symGlobalInt}
	p.ints["entry.max$"] = entryMax
	p.ints["global.max$"] = globalMax
	return p
}

// Register adds a built-in function. It must be called before Run.
func (p *Processor) Register(name string, fn Builtin) error {
	if p.state != Idle {
		return fmt.Errorf("interp: Register(%q) on %s processor", name, p.state)
	}
	name = strings.ToLower(name)
	if _, ok := p.builtins[name]; ok {
		return bibtex.Errorf(bibtex.ErrRedeclared, token.NoLoc, "built-in %q already registered", name)
	}
	if _, ok := p.syms[name]; ok {
		return bibtex.Errorf(bibtex.ErrRedeclared, token.NoLoc, "%q is predeclared", name)
	}
	p.builtins[name] = &symbol{name: name, kind: symBuiltin, fn: fn}
	return nil
}

func (p *Processor) State() State               { return p.state }
func (p *Processor) Database() *bibtex.Database { return p.db }

// Entry returns the current entry, or nil outside ITERATE and REVERSE.
func (p *Processor) Entry() *bibtex.Entry { return p.entry }

// Run executes prog. The sink is closed when Run returns, whether or not
// the program failed; output written before a failure is kept.
func (p *Processor) Run(ctx context.Context, prog *bst.Program) (stats Stats, err error) {
	if p.state != Idle {
		return p.stats, fmt.Errorf("interp: Run on %s processor", p.state)
	}
	p.state = Running
	p.ctx = ctx
	if p.log == nil {
		p.log = ctxlog.FromContext(ctx)
	}
	defer func() {
		if cerr := p.out.Close(); cerr != nil && err == nil {
			err = &bibtex.Error{Kind: bibtex.ErrIO, Msg: "closing output", Err: cerr}
		}
		if err != nil {
			p.state = Errored
			p.stats.Errors++
		} else {
			p.state = Halted
		}
		stats = p.stats
	}()

	for _, cmd := range prog.Commands {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		p.loc = cmd.Loc
		p.log.Debug("command", "kind", cmd.Kind, "loc", cmd.Loc.String())
		if err := p.command(cmd); err != nil {
			return p.stats, err
		}
	}
	return p.stats, nil
}

func (p *Processor) command(cmd bst.Command) error {
	switch cmd.Kind {
	case bst.Entry:
		if p.declared {
			return p.errorf(bibtex.ErrRedeclared, "ENTRY command repeated")
		}
		p.declared = true
		for _, names := range []struct {
			list []string
			kind symKind
		}{{cmd.Fields, symField}, {cmd.Ints, symEntryInt}, {cmd.Strs, symEntryStr}} {
			for _, name := range names.list {
				if _, err := p.declare(name, names.kind, cmd.Loc); err != nil {
					return err
				}
			}
		}
	case bst.Function:
		s, err := p.declare(cmd.Name, symFunction, cmd.Loc)
		if err != nil {
			return err
		}
		s.body = cmd.Body
	case bst.Integers:
		for _, name := range cmd.Names {
			if _, err := p.declare(name, symGlobalInt, cmd.Loc); err != nil {
				return err
			}
			p.ints[name] = 0
		}
	case bst.Strings:
		for _, name := range cmd.Names {
			if _, err := p.declare(name, symGlobalStr, cmd.Loc); err != nil {
				return err
			}
			p.strs[name] = ""
		}
	case bst.Macro:
		p.db.StoreMacro(cmd.Name, bibtex.Value{bibtex.Str(cmd.Text)})
	case bst.Read:
		return p.readDatabases()
	case bst.Execute:
		s, err := p.lookup(cmd.Name)
		if err != nil {
			return err
		}
		p.entry = nil
		return p.callTop(s)
	case bst.Iterate, bst.Reverse:
		s, err := p.lookup(cmd.Name)
		if err != nil {
			return err
		}
		entries := p.db.Entries()
		if cmd.Kind == bst.Reverse {
			slices.Reverse(entries)
		}
		defer func() { p.entry = nil }()
		for _, e := range entries {
			if err := p.ctx.Err(); err != nil {
				return err
			}
			p.entry = e
			if err := p.callTop(s); err != nil {
				return err
			}
		}
	case bst.Sort:
		p.db.Sort()
	default:
		return p.errorf(bibtex.ErrUnknownName, "unknown command %s", cmd.Kind)
	}
	return nil
}

// readDatabases loads every source, then selects the cited entries. All
// missing sources are reported together before anything is loaded.
func (p *Processor) readDatabases() error {
	if p.read {
		return p.errorf(bibtex.ErrRedeclared, "READ command repeated")
	}
	p.read = true
	srcs := make([][]byte, len(p.cfg.Sources))
	var missing []error
	for i, name := range p.cfg.Sources {
		b, err := resource.Read(p.cfg.Finder, name, resource.Bib, p.loc)
		if bibtex.KindOf(err) == bibtex.ErrFileNotFound {
			missing = append(missing, err)
			continue
		}
		if err != nil {
			return err
		}
		srcs[i] = b
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}
	for i, name := range p.cfg.Sources {
		if err := bibtex.ParseInto(p.db, name, srcs[i]); err != nil {
			return err
		}
		p.log.Debug("read database", "name", name, "entries", p.db.Len())
	}

	all := p.cfg.Citations.All
	keys := make([]string, 0, len(p.cfg.Citations.Keys))
	for _, k := range p.cfg.Citations.Keys {
		if k == "*" {
			all = true
			continue
		}
		keys = append(keys, k)
	}
	for _, key := range p.db.Select(keys, all, p.cfg.MinCrossrefs) {
		p.Warnf("I didn't find a database entry for %q", key)
	}
	return nil
}

func (p *Processor) declare(name string, kind symKind, loc token.Locator) (*symbol, error) {
	if _, ok := p.builtins[name]; ok {
		return nil, p.errorf(bibtex.ErrRedeclared, "%q is a built-in function", name)
	}
	if prev, ok := p.syms[name]; ok {
		if prev.loc.IsValid() {
			return nil, p.errorf(bibtex.ErrRedeclared, "%q already declared at %s", name, prev.loc)
		}
		return nil, p.errorf(bibtex.ErrRedeclared, "%q is predeclared", name)
	}
	s := &symbol{name: name, kind: kind, loc: loc}
	p.syms[name] = s
	return s, nil
}

// lookup resolves a name. Declared names shadow nothing: a name is declared
// at most once, so entry fields and variables, globals and functions share
// one table, consulted before the built-ins.
func (p *Processor) lookup(name string) (*symbol, error) {
	if s, ok := p.syms[name]; ok {
		return s, nil
	}
	if s, ok := p.builtins[name]; ok {
		return s, nil
	}
	return nil, p.errorf(bibtex.ErrUnknownName, "unknown function or variable %q", name)
}

// current returns the current entry for an operation that needs one. Built-ins
// pass an empty name; their errors already name them.
func (p *Processor) current(name string) (*bibtex.Entry, error) {
	if p.entry != nil {
		return p.entry, nil
	}
	if name != "" {
		return nil, p.errorf(bibtex.ErrNoEntry, "%s: used outside ITERATE or REVERSE", name)
	}
	return nil, p.errorf(bibtex.ErrNoEntry, "used outside ITERATE or REVERSE")
}

// callTop calls s from a command and discards what it leaves on the stack.
func (p *Processor) callTop(s *symbol) error {
	if err := p.call(s); err != nil {
		return err
	}
	if n := len(p.stack); n > 0 {
		p.Warnf("%d value(s) left on the stack by %s", n, s.name)
		p.stack = p.stack[:0]
	}
	return nil
}

func (p *Processor) call(s *symbol) error {
	switch s.kind {
	case symBuiltin:
		prev := p.op
		p.op = s.name
		err := s.fn(p)
		p.op = prev
		return err
	case symFunction, symBlock:
		if p.depth >= p.cfg.MaxCallDepth {
			return p.errorf(bibtex.ErrCallDepth, "calling %s: more than %d nested calls", s.name, p.cfg.MaxCallDepth)
		}
		p.depth++
		loc, op := p.loc, p.op
		p.op = ""
		err := p.exec(s.body)
		p.depth--
		p.op = op
		if err == nil {
			p.loc = loc
		}
		return err
	case symField:
		e, err := p.current(s.name)
		if err != nil {
			return err
		}
		v, ok, err := p.db.GetField(e, s.name)
		if err != nil {
			return err
		}
		if !ok {
			p.Push(Value{Kind: Missing, S: s.name})
			return nil
		}
		p.Push(StringValue(v.Expand(p.db)))
	case symEntryInt:
		e, err := p.current(s.name)
		if err != nil {
			return err
		}
		n, _ := e.LocalInt(s.name)
		p.Push(IntValue(n))
	case symEntryStr:
		e, err := p.current(s.name)
		if err != nil {
			return err
		}
		str, _ := e.LocalString(s.name)
		p.Push(StringValue(str))
	case symGlobalInt:
		p.Push(IntValue(p.ints[s.name]))
	case symGlobalStr:
		p.Push(StringValue(p.strs[s.name]))
	}
	return nil
}

func (p *Processor) exec(body []bst.Instr) error {
	for _, in := range body {
		p.loc = in.Loc
		switch in.Kind {
		case bst.PushInt:
			p.Push(IntValue(in.Int))
		case bst.PushString:
			p.Push(StringValue(in.Str))
		case bst.PushFunc:
			s, err := p.lookup(in.Name)
			if err != nil {
				return err
			}
			p.Push(Value{Kind: FuncRef, sym: s})
		case bst.PushBlock:
			p.Push(Value{Kind: FuncRef, sym: &symbol{name: "{...}", kind: symBlock, loc: in.Loc, body: in.Block}})
		case bst.Call:
			s, err := p.lookup(in.Name)
			if err != nil {
				return err
			}
			if err := p.call(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Field returns the current entry's value of a field declared by ENTRY,
// following crossref. It's for built-ins that need a field by name.
func (p *Processor) Field(name string) (string, bool, error) {
	name = strings.ToLower(name)
	if s, ok := p.syms[name]; !ok || s.kind != symField {
		return "", false, p.errorf(bibtex.ErrUndefinedField, "field %q is not declared by ENTRY", name)
	}
	e, err := p.current(name)
	if err != nil {
		return "", false, err
	}
	v, ok, err := p.db.GetField(e, name)
	if err != nil || !ok {
		return "", false, err
	}
	return v.Expand(p.db), true, nil
}

// ----------------------------------------------------------------------------
// Stack

func (p *Processor) Push(v Value) {
	p.stack = append(p.stack, v)
}

func (p *Processor) Pop() (Value, error) {
	n := len(p.stack)
	if n == 0 {
		return Value{}, p.errorf(bibtex.ErrStackEmpty, "pop from empty stack")
	}
	v := p.stack[n-1]
	p.stack = p.stack[:n-1]
	return v, nil
}

func (p *Processor) PopInt() (int, error) {
	v, err := p.Pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != Int {
		return 0, p.errorf(bibtex.ErrTypeMismatch, "expected integer, got %s %s", v.Kind, v)
	}
	return v.N, nil
}

// PopString pops a string. A missing field pops as "" with a warning.
func (p *Processor) PopString() (string, error) {
	v, err := p.Pop()
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case Str:
		return v.S, nil
	case Missing:
		p.Warnf("%s is a missing field, not a string", v.S)
		return "", nil
	default:
		return "", p.errorf(bibtex.ErrTypeMismatch, "expected string, got %s %s", v.Kind, v)
	}
}

func (p *Processor) popFunc() (*symbol, error) {
	v, err := p.Pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != FuncRef {
		return nil, p.errorf(bibtex.ErrTypeMismatch, "expected function, got %s %s", v.Kind, v)
	}
	return v.sym, nil
}

// ----------------------------------------------------------------------------
// Diagnostics

func (p *Processor) errorf(kind bibtex.ErrorKind, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.op != "" {
		msg = p.op + ": " + msg
	}
	return &bibtex.Error{Kind: kind, Loc: p.loc, Msg: msg}
}

func (p *Processor) logAttrs() []any {
	attrs := []any{"loc", p.loc.String()}
	if p.entry != nil {
		attrs = append(attrs, "entry", p.entry.Key)
	}
	return attrs
}

// Warnf reports a warning and counts it.
func (p *Processor) Warnf(format string, args ...any) {
	p.stats.Warnings++
	p.log.Warn(fmt.Sprintf(format, args...), p.logAttrs()...)
}

// complainf reports an error the run recovers from and counts it.
func (p *Processor) complainf(format string, args ...any) {
	p.stats.Errors++
	msg := fmt.Sprintf(format, args...)
	if p.op != "" {
		msg = p.op + ": " + msg
	}
	p.log.Error(msg, p.logAttrs()...)
}
