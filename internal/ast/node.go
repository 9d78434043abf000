package ast

import "pytrace/internal/source"

// Pos locates a node in the source.
type Pos struct {
	Span source.Span
	Line int
}

// Position returns the node position.
func (p Pos) Position() Pos { return p }

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Module is a parsed source file.
type Module struct {
	File *source.File
	Body []Stmt
	// Doc reports whether Body[0] is a docstring.
	Doc bool
}

// Position places the module at line 1.
func (m *Module) Position() Pos { return Pos{Line: 1} }
