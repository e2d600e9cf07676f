package yinvert

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph/formats/dot"
	"gonum.org/v1/gonum/graph/formats/dot/ast"
)

// flipDOT rewrites -Tdot and -Txdot output. The output is parsed with the
// gonum DOT grammar, coordinate attributes are mirrored, and the file is
// printed back.
func flipDOT(data []byte) ([]byte, error) {
	file, err := dot.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse dot output: %w", err)
	}

	for _, g := range file.Graphs {
		bb, ok := rootBB(g.Stmts)
		if !ok {
			continue
		}
		f, err := newFlipperFromBB(bb)
		if err != nil {
			return nil, err
		}
		if err := f.walkStmts(g.Stmts); err != nil {
			return nil, err
		}
	}
	return []byte(file.String() + "\n"), nil
}

// rootBB finds the bounding box declared directly on the root graph.
func rootBB(stmts []ast.Stmt) (string, bool) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AttrStmt:
			if s.Kind != ast.GraphKind {
				continue
			}
			for _, a := range s.Attrs {
				if a.Key == "bb" {
					return unquote(a.Val), true
				}
			}
		case *ast.Attr:
			if s.Key == "bb" {
				return unquote(s.Val), true
			}
		}
	}
	return "", false
}

func (f flipper) walkStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *ast.NodeStmt:
			err = f.flipAttrs(s.Attrs)
		case *ast.EdgeStmt:
			err = f.flipAttrs(s.Attrs)
		case *ast.AttrStmt:
			err = f.flipAttrs(s.Attrs)
		case *ast.Attr:
			err = f.flipAttrs([]*ast.Attr{s})
		case *ast.Subgraph:
			err = f.walkStmts(s.Stmts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f flipper) flipAttrs(attrs []*ast.Attr) error {
	for _, a := range attrs {
		out, ok, err := f.flipAttr(a.Key, unquote(a.Val))
		if err != nil {
			return fmt.Errorf("attribute %s: %w", a.Key, err)
		}
		if ok {
			a.Val = quote(out)
		}
	}
	return nil
}

// unquote strips DOT quoting: surrounding quotes, escaped quotes and
// backslash-newline line continuations.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, "\\\r\n", "")
	s = strings.ReplaceAll(s, "\\\n", "")
	return strings.ReplaceAll(s, `\"`, `"`)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
