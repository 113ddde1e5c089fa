package namelist

import "strconv"

type NameTok int

const (
	Illegal NameTok = iota
	EOF
	Whitespace // any whitespace
	Word       // Foo, {Foo bar}, Fo{\"o}
	Sep        // '-' or '~' between the words of one name
	NameSep    // name separator, "and" surrounded by whitespace
	Others     // "others" following a name separator
	Comma      // ,
)

var tokens = [...]string{
	Illegal:    "Illegal",
	EOF:        "EOF",
	Whitespace: "Whitespace",
	Word:       "Word",
	Sep:        "Sep",
	NameSep:    "NameSep",
	Others:     "Others",
	Comma:      "Comma",
}

func (tok NameTok) String() string {
	s := ""
	if 0 <= tok && tok < NameTok(len(tokens)) {
		s = tokens[tok]
	}
	if s == "" {
		s = "nameTok(" + strconv.Itoa(int(tok)) + ")"
	}
	return s
}
