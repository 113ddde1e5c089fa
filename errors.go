package bibtex

import (
	"errors"
	"fmt"

	"github.com/jschaf/bibtex/v2/token"
)

// ErrorKind is the closed set of failures the engine reports. Each kind is
// itself an error so callers can test with errors.Is(err, ErrDuplicateKey).
type ErrorKind int

const (
	ErrParse          ErrorKind = iota + 1 // malformed bibliography or style source
	ErrDuplicateKey                        // citation key defined twice
	ErrMissingEntry                        // crossref or citation names an unknown key
	ErrUndefinedField                      // style program requires a field nobody declared
	ErrStackEmpty                          // built-in popped an empty stack
	ErrTypeMismatch                        // built-in operand of the wrong type
	ErrUnknownName                         // style program names no function or variable
	ErrRedeclared                          // style program declares a name twice
	ErrCallDepth                           // user function recursion too deep
	ErrNoEntry                             // entry operation outside ITERATE or REVERSE
	ErrFileNotFound                        // resource lookup found nothing
	ErrIO                                  // resource could not be read or written
)

var kindNames = [...]string{
	ErrParse:          "parse error",
	ErrDuplicateKey:   "duplicate key",
	ErrMissingEntry:   "missing entry",
	ErrUndefinedField: "undefined field",
	ErrStackEmpty:     "stack empty",
	ErrTypeMismatch:   "type mismatch",
	ErrUnknownName:    "unknown name",
	ErrRedeclared:     "redeclared name",
	ErrCallDepth:      "call depth exceeded",
	ErrNoEntry:        "no current entry",
	ErrFileNotFound:   "file not found",
	ErrIO:             "i/o error",
}

func (k ErrorKind) Error() string { return k.String() }

func (k ErrorKind) String() string {
	if 0 < k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrorClass groups error kinds by what is defective: the source text, the
// data, the style program, or the environment.
type ErrorClass int

const (
	ClassParse ErrorClass = iota
	ClassData
	ClassInterpreter
	ClassResource
)

func (c ErrorClass) String() string {
	switch c {
	case ClassParse:
		return "parse"
	case ClassData:
		return "data"
	case ClassInterpreter:
		return "interpreter"
	case ClassResource:
		return "resource"
	default:
		return "unknown"
	}
}

func (k ErrorKind) Class() ErrorClass {
	switch k {
	case ErrParse:
		return ClassParse
	case ErrDuplicateKey, ErrMissingEntry, ErrUndefinedField:
		return ClassData
	case ErrFileNotFound, ErrIO:
		return ClassResource
	default:
		return ClassInterpreter
	}
}

// Error is a diagnostic with the source location it applies to.
type Error struct {
	Kind ErrorKind
	Loc  token.Locator // where the problem was detected; may be token.NoLoc
	Msg  string        // detail, without the kind or location
	Err  error         // underlying cause; or nil
}

// Errorf returns an *Error of kind k at loc with a formatted message.
func Errorf(k ErrorKind, loc token.Locator, format string, args ...any) *Error {
	return &Error{Kind: k, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Loc.IsValid() {
		return e.Loc.String() + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of the first *Error in err's tree, or 0 if there
// is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}
