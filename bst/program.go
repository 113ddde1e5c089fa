// Package bst compiles bibliography style programs, the .bst files that
// drive the interpreter, into a list of commands.
//
// A style program is a sequence of commands such as
//
//	ENTRY { author title } { } { label }
//	FUNCTION { article } { author format.names output new.block }
//	READ
//	ITERATE { call.type$ }
//
// Function bodies compile to instructions: integer, string and function
// reference literals, inline blocks, and calls by name. Names are not
// resolved here; that happens when the program runs.
package bst

import (
	"strconv"
	"strings"

	"github.com/jschaf/bibtex/v2/token"
)

// CommandKind is the kind of a top-level command.
type CommandKind int

const (
	Entry CommandKind = iota + 1
	Execute
	Function
	Integers
	Iterate
	Macro
	Read
	Reverse
	Sort
	Strings
)

var commandNames = [...]string{
	Entry:    "ENTRY",
	Execute:  "EXECUTE",
	Function: "FUNCTION",
	Integers: "INTEGERS",
	Iterate:  "ITERATE",
	Macro:    "MACRO",
	Read:     "READ",
	Reverse:  "REVERSE",
	Sort:     "SORT",
	Strings:  "STRINGS",
}

var commandKinds map[string]CommandKind

func init() {
	commandKinds = make(map[string]CommandKind, len(commandNames))
	for k, name := range commandNames {
		if name != "" {
			commandKinds[strings.ToLower(name)] = CommandKind(k)
		}
	}
}

func (k CommandKind) String() string {
	if 0 < k && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "CommandKind(" + strconv.Itoa(int(k)) + ")"
}

// Command is one top-level command. Which fields are set depends on Kind:
//
//	ENTRY            Fields, Ints, Strs
//	EXECUTE          Name
//	FUNCTION         Name, Body
//	INTEGERS         Names
//	ITERATE          Name
//	MACRO            Name, Text
//	READ             -
//	REVERSE          Name
//	SORT             -
//	STRINGS          Names
type Command struct {
	Kind CommandKind
	Loc  token.Locator

	Name  string
	Names []string
	Text  string
	Body  []Instr

	Fields []string // entry fields
	Ints   []string // entry integer variables
	Strs   []string // entry string variables
}

// InstrKind is the kind of a function body instruction.
type InstrKind int

const (
	PushInt    InstrKind = iota + 1 // #42
	PushString                      // "text"
	PushFunc                        // 'name
	PushBlock                       // { ... }
	Call                            // name
)

var instrNames = [...]string{
	PushInt:    "PushInt",
	PushString: "PushString",
	PushFunc:   "PushFunc",
	PushBlock:  "PushBlock",
	Call:       "Call",
}

func (k InstrKind) String() string {
	if 0 < k && int(k) < len(instrNames) {
		return instrNames[k]
	}
	return "InstrKind(" + strconv.Itoa(int(k)) + ")"
}

// Instr is one instruction of a function body.
type Instr struct {
	Kind  InstrKind
	Loc   token.Locator
	Int   int     // PushInt
	Name  string  // PushFunc, Call: lowercased name
	Str   string  // PushString
	Block []Instr // PushBlock
}

// String returns the instruction in source form.
func (in Instr) String() string {
	switch in.Kind {
	case PushInt:
		return "#" + strconv.Itoa(in.Int)
	case PushString:
		return `"` + in.Str + `"`
	case PushFunc:
		return "'" + in.Name
	case PushBlock:
		parts := make([]string, len(in.Block))
		for i, b := range in.Block {
			parts[i] = b.String()
		}
		return "{ " + strings.Join(parts, " ") + " }"
	case Call:
		return in.Name
	default:
		return in.Kind.String()
	}
}

// Program is a compiled style program.
type Program struct {
	Name     string
	Commands []Command
}
