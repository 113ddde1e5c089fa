package interp

import (
	"strconv"

	"github.com/jschaf/bibtex/v2/bst"
	"github.com/jschaf/bibtex/v2/token"
)

// Kind is the type of a stack value.
type Kind int

const (
	Missing Kind = iota // a field the current entry lacks
	Int
	Str
	FuncRef
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing field"
	case Int:
		return "integer"
	case Str:
		return "string"
	case FuncRef:
		return "function"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an operand stack value.
type Value struct {
	Kind Kind
	N    int     // Int
	S    string  // Str; for Missing, the field name
	sym  *symbol // FuncRef
}

func IntValue(n int) Value       { return Value{Kind: Int, N: n} }
func StringValue(s string) Value { return Value{Kind: Str, S: s} }

// String returns the value the way stack$ and top$ print it.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return strconv.Itoa(v.N)
	case Str:
		return `"` + v.S + `"`
	case FuncRef:
		return "'" + v.sym.name
	default:
		return "missing field " + v.S
	}
}

type symKind int

const (
	symBuiltin symKind = iota + 1
	symFunction
	symBlock
	symField
	symEntryInt
	symEntryStr
	symGlobalInt
	symGlobalStr
)

// symbol is anything a name in a style program can denote.
type symbol struct {
	name string
	kind symKind
	loc  token.Locator // declaration; NoLoc for predeclared names
	fn   Builtin       // symBuiltin
	body []bst.Instr   // symFunction, symBlock
}

func (s *symbol) isVar() bool {
	switch s.kind {
	case symEntryInt, symEntryStr, symGlobalInt, symGlobalStr:
		return true
	}
	return false
}
