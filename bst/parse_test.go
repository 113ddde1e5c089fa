package bst

import (
	"errors"
	goscan "go/scanner"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jschaf/bibtex/v2/token"
)

var ignoreLoc = cmpopts.IgnoreTypes(token.Locator{})

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Command
	}{
		{
			"entry",
			"ENTRY { author title } { } { label }",
			[]Command{{Kind: Entry, Fields: []string{"author", "title"}, Strs: []string{"label"}}},
		},
		{
			"case folding",
			"Integers { Output.State }\nstrings{s}",
			[]Command{
				{Kind: Integers, Names: []string{"output.state"}},
				{Kind: Strings, Names: []string{"s"}},
			},
		},
		{
			"macro",
			`MACRO {jan} {"January"}`,
			[]Command{{Kind: Macro, Name: "jan", Text: "January"}},
		},
		{
			"bare commands",
			"READ SORT % a comment\nEXECUTE {begin.bib} ITERATE {call.type$} REVERSE {reverse.pass}",
			[]Command{
				{Kind: Read},
				{Kind: Sort},
				{Kind: Execute, Name: "begin.bib"},
				{Kind: Iterate, Name: "call.type$"},
				{Kind: Reverse, Name: "reverse.pass"},
			},
		},
		{
			"function",
			`FUNCTION {not} { { #0 } { #1 } if$ }`,
			[]Command{{Kind: Function, Name: "not", Body: []Instr{
				{Kind: PushBlock, Block: []Instr{{Kind: PushInt, Int: 0}}},
				{Kind: PushBlock, Block: []Instr{{Kind: PushInt, Int: 1}}},
				{Kind: Call, Name: "if$"},
			}}},
		},
		{
			"literals",
			`FUNCTION {f} { #-3 #+4 "a {b} c" 'Skip$ := }`,
			[]Command{{Kind: Function, Name: "f", Body: []Instr{
				{Kind: PushInt, Int: -3},
				{Kind: PushInt, Int: 4},
				{Kind: PushString, Str: "a {b} c"},
				{Kind: PushFunc, Name: "skip$"},
				{Kind: Call, Name: ":="},
			}}},
		},
		{"empty", "  % nothing here\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse("test.bst", []byte(tt.src))
			if err != nil {
				t.Fatalf("Parse() error: %s", err)
			}
			if diff := cmp.Diff(tt.want, prog.Commands, ignoreLoc, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_locators(t *testing.T) {
	src := "ENTRY {}{}{}\n\nFUNCTION {f}\n{\n  write$\n}\n"
	prog, err := Parse("plain.bst", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %s", err)
	}
	got := []token.Locator{prog.Commands[0].Loc, prog.Commands[1].Loc, prog.Commands[1].Body[0].Loc}
	want := []token.Locator{{Name: "plain.bst", Line: 1}, {Name: "plain.bst", Line: 3}, {Name: "plain.bst", Line: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() locators mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		src  string
		line int
		msg  string
	}{
		{"FROB {x}", 1, `unknown command "frob"`},
		{"READ\nFUNCTION {f} { \"abc\n }", 2, "string literal not terminated"},
		{"EXECUTE {}", 1, "expected name, found '}'"},
		{"FUNCTION {f} { 42 }", 1, "unexpected digit '4'; integers are written #4"},
		{"FUNCTION {f} { # }", 1, "illegal integer #"},
		{"FUNCTION {f} { ' }", 1, "expected function name after '"},
		{"FUNCTION {f} { #1", 1, "expected '}', found end of input"},
		{"MACRO {m} {x}", 1, "expected string, found 'x'"},
		{"ENTRY {a} {b}", 1, "expected '{', found end of input"},
		{"}", 1, "expected command, found '}'"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, err := Parse("bad.bst", []byte(tt.src))
			var list goscan.ErrorList
			if !errors.As(err, &list) || len(list) != 1 {
				t.Fatalf("Parse() error = %v; want one-element ErrorList", err)
			}
			if diff := cmp.Diff(tt.msg, list[0].Msg); diff != "" {
				t.Errorf("Parse() message mismatch (-want +got):\n%s", diff)
			}
			if list[0].Pos.Line != tt.line {
				t.Errorf("Parse() line = %d; want %d", list[0].Pos.Line, tt.line)
			}
		})
	}
}

func TestParse_partial(t *testing.T) {
	prog, err := Parse("bad.bst", []byte("READ SORT FROB"))
	if err == nil {
		t.Fatal("Parse() error = nil; want error")
	}
	if diff := cmp.Diff([]Command{{Kind: Read}, {Kind: Sort}}, prog.Commands, ignoreLoc); diff != "" {
		t.Errorf("Parse() partial mismatch (-want +got):\n%s", diff)
	}
}

func TestInstr_String(t *testing.T) {
	prog, err := Parse("s.bst", []byte(`FUNCTION {f} { #1 "x" 'g { h } i }`))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, in := range prog.Commands[0].Body {
		got = append(got, in.String())
	}
	want := []string{"#1", `"x"`, "'g", "{ h }", "i"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Instr.String() mismatch (-want +got):\n%s", diff)
	}
}
