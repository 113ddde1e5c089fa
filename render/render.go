// Package render writes bibliographies back out as .bib text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jschaf/bibtex/v2"
	"github.com/jschaf/bibtex/v2/ast"
)

// ItemRenderer writes one constituent of a field value.
type ItemRenderer interface {
	Render(w io.Writer, it bibtex.Item) error
}

type ItemRendererFunc func(w io.Writer, it bibtex.Item) error

func (f ItemRendererFunc) Render(w io.Writer, it bibtex.Item) error {
	return f(w, it)
}

// Defaults returns the renderers for each item kind, indexed by kind.
func Defaults() []ItemRenderer {
	return []ItemRenderer{
		bibtex.StringLiteral: ItemRendererFunc(renderString),
		bibtex.NumberLiteral: ItemRendererFunc(renderNumber),
		bibtex.Block:         ItemRendererFunc(renderBlock),
		bibtex.MacroRef:      ItemRendererFunc(renderMacro),
	}
}

func renderString(w io.Writer, it bibtex.Item) error {
	_, err := io.WriteString(w, `"`+it.Text+`"`)
	return err
}

func renderNumber(w io.Writer, it bibtex.Item) error {
	_, err := io.WriteString(w, it.Text)
	return err
}

func renderBlock(w io.Writer, it bibtex.Item) error {
	_, err := io.WriteString(w, "{"+it.Text+"}")
	return err
}

func renderMacro(w io.Writer, it bibtex.Item) error {
	_, err := io.WriteString(w, it.Text)
	return err
}

// Renderer writes values, entries and whole databases.
type Renderer struct {
	items  []ItemRenderer
	indent string
}

type Option func(r *Renderer)

// WithItemOverride replaces the renderer for one item kind.
func WithItemOverride(k bibtex.ItemKind, ir ItemRenderer) Option {
	return func(r *Renderer) {
		r.items[k] = ir
	}
}

// WithIndent sets the indentation of entry fields. The default is two
// spaces.
func WithIndent(s string) Option {
	return func(r *Renderer) {
		r.indent = s
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{items: Defaults(), indent: "  "}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Value writes v in source form, joining items with " # ".
func (r *Renderer) Value(w io.Writer, v bibtex.Value) error {
	for i, it := range v {
		if i > 0 {
			if _, err := io.WriteString(w, " # "); err != nil {
				return err
			}
		}
		if int(it.Kind) >= len(r.items) || r.items[it.Kind] == nil {
			return fmt.Errorf("render: unhandled item kind %s", it.Kind)
		}
		if err := r.items[it.Kind].Render(w, it); err != nil {
			return err
		}
	}
	return nil
}

// Entry writes one entry with its own fields in declaration order.
func (r *Renderer) Entry(w io.Writer, e *bibtex.Entry) error {
	if _, err := fmt.Fprintf(w, "@%s{%s,\n", e.Type, e.Key); err != nil {
		return err
	}
	for _, name := range e.Fields() {
		v, _ := e.Field(name)
		if _, err := fmt.Fprintf(w, "%s%s = ", r.indent, name); err != nil {
			return err
		}
		if err := r.Value(w, v); err != nil {
			return fmt.Errorf("render field %s of %s: %w", name, e.Key, err)
		}
		if _, err := io.WriteString(w, ",\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}

// Database writes the preamble, the macros in definition order, and the
// entries in the database's current order, separated by blank lines.
func (r *Renderer) Database(w io.Writer, db *bibtex.Database) error {
	sep := ""
	if pre := db.Preamble(); len(pre) > 0 {
		if _, err := io.WriteString(w, "@preamble{"); err != nil {
			return err
		}
		if err := r.Value(w, pre); err != nil {
			return fmt.Errorf("render preamble: %w", err)
		}
		if _, err := io.WriteString(w, "}\n"); err != nil {
			return err
		}
		sep = "\n"
	}
	if names := db.Macros(); len(names) > 0 {
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		for _, name := range names {
			v, _ := db.LookupMacro(name)
			if _, err := fmt.Fprintf(w, "@string{%s = ", name); err != nil {
				return err
			}
			if err := r.Value(w, v); err != nil {
				return fmt.Errorf("render macro %s: %w", name, err)
			}
			if _, err := io.WriteString(w, "}\n"); err != nil {
				return err
			}
		}
		sep = "\n"
	}
	for _, e := range db.Entries() {
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		if err := r.Entry(w, e); err != nil {
			return err
		}
		sep = "\n"
	}
	return nil
}

// Database writes db with the default renderer.
func Database(w io.Writer, db *bibtex.Database) error {
	return NewRenderer().Database(w, db)
}

// Value writes v with the default renderer.
func Value(w io.Writer, v bibtex.Value) error {
	return NewRenderer().Value(w, v)
}

// File writes a parsed file in canonical form, keeping every declaration in
// source order, comments included. Text between records that is only
// whitespace is dropped. Macros are not expanded.
func (r *Renderer) File(w io.Writer, f *ast.File) error {
	sb := &strings.Builder{}
	first := true
	err := ast.Walk(f, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if c, ok := n.(*ast.CommentDecl); ok && strings.TrimSpace(c.Text) == "" && !c.Command {
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if _, ok := n.(ast.Decl); ok {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if _, ok := n.(ast.Decl); ok {
			if !first {
				sb.WriteByte('\n')
			}
			first = false
		}
		switch t := n.(type) {
		case *ast.File:
			return ast.WalkContinue, nil
		case *ast.CommentDecl:
			if t.Command {
				sb.WriteString("@comment")
			}
			sb.WriteString(strings.TrimSpace(t.Text))
		case *ast.AbbrevDecl:
			sb.WriteString("@string{" + t.Tag.Name + " = ")
			if err := r.expr(sb, t.Tag.Value); err != nil {
				return ast.WalkStop, err
			}
			sb.WriteString("}")
		case *ast.PreambleDecl:
			sb.WriteString("@preamble{")
			if err := r.expr(sb, t.Text); err != nil {
				return ast.WalkStop, err
			}
			sb.WriteString("}")
		case *ast.BibDecl:
			key := ""
			if t.Key != nil {
				key = t.Key.Name
			}
			sb.WriteString("@" + t.Type + "{" + key + ",\n")
			for _, tag := range t.Tags {
				sb.WriteString(r.indent + tag.Name + " = ")
				if err := r.expr(sb, tag.Value); err != nil {
					return ast.WalkStop, err
				}
				sb.WriteString(",\n")
			}
			sb.WriteString("}")
		default:
			return ast.WalkStop, fmt.Errorf("render: unexpected %s node", n.Kind())
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) expr(w io.Writer, x ast.Expr) error {
	v, err := bibtex.ValueOf(x)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return r.Value(w, v)
}
