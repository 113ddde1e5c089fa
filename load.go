package bibtex

import (
	"errors"
	"fmt"
	goscan "go/scanner"
	gotok "go/token"

	"github.com/jschaf/bibtex/v2/ast"
	"github.com/jschaf/bibtex/v2/parser"
	"github.com/jschaf/bibtex/v2/token"
)

// ValueOf converts a parsed value expression into a Value.
func ValueOf(x ast.Expr) (Value, error) {
	ops := ast.Operands(x)
	v := make(Value, 0, len(ops))
	for _, op := range ops {
		switch t := op.(type) {
		case *ast.BasicLit:
			switch t.Tok {
			case token.String:
				v = append(v, Str(t.Value))
			case token.BraceString:
				v = append(v, Braced(t.Value))
			case token.Number:
				v = append(v, Num(t.Value))
			default:
				return nil, fmt.Errorf("value of literal kind %s", t.Tok)
			}
		case *ast.Ident:
			v = append(v, Macro(t.Name))
		default:
			return nil, fmt.Errorf("value of %s node", op.Kind())
		}
	}
	return v, nil
}

// Load applies the declarations of a parsed file to db in file order. The
// first failure, like a duplicate key, stops the load.
func Load(db *Database, fset *gotok.FileSet, f *ast.File) error {
	loc := func(n ast.Node) token.Locator {
		return token.LocatorOf(fset.Position(n.Pos()))
	}
	for _, decl := range f.Entries {
		switch d := decl.(type) {
		case *ast.CommentDecl:
			// nothing to load
		case *ast.AbbrevDecl:
			v, err := ValueOf(d.Tag.Value)
			if err != nil {
				return &Error{Kind: ErrParse, Loc: loc(d), Msg: "@string " + d.Tag.Name, Err: err}
			}
			db.StoreMacro(d.Tag.Name, v)
		case *ast.PreambleDecl:
			v, err := ValueOf(d.Text)
			if err != nil {
				return &Error{Kind: ErrParse, Loc: loc(d), Msg: "@preamble", Err: err}
			}
			db.AppendPreamble(v)
		case *ast.BibDecl:
			e, err := db.InsertEntry(d.Type, d.Key.Name, loc(d))
			if err != nil {
				return err
			}
			for _, tag := range d.Tags {
				v, err := ValueOf(tag.Value)
				if err != nil {
					return &Error{Kind: ErrParse, Loc: loc(tag), Msg: "field " + tag.Name, Err: err}
				}
				db.SetField(e, tag.Name, v)
			}
		default:
			return Errorf(ErrParse, loc(d), "unexpected %s declaration", d.Kind())
		}
	}
	return nil
}

// ParseInto parses bibtex source text and loads it into db. Syntax errors are
// returned as an *Error of kind ErrParse located at the offending line.
func ParseInto(db *Database, name string, src []byte) error {
	fset := gotok.NewFileSet()
	f, err := parser.ParseFile(fset, name, src, 0)
	if err != nil {
		var list goscan.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			return Errorf(ErrParse, token.LocatorOf(list[0].Pos), "%s", list[0].Msg)
		}
		return &Error{Kind: ErrParse, Loc: token.Locator{Name: name}, Err: err}
	}
	return Load(db, fset, f)
}
