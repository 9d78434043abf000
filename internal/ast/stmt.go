package ast

import "pytrace/internal/token"

type (
	ExprStmt struct {
		Pos
		Value Expr
	}

	// Assign is `t1 = t2 = value`.
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Pos
		Target Expr
		Op     token.Kind // binary operator kind
		Value  Expr
	}

	// AnnAssign is `target: annotation [= value]`; the annotation is dropped.
	AnnAssign struct {
		Pos
		Target Expr
		Value  Expr
	}

	// If also represents elif branches: an elif is an *If as the only
	// statement of OrElse with Elif set.
	If struct {
		Pos
		Test   Expr
		Body   []Stmt
		OrElse []Stmt
		Elif   bool
	}

	While struct {
		Pos
		Test   Expr
		Body   []Stmt
		OrElse []Stmt
	}

	For struct {
		Pos
		Target Expr
		Iter   Expr
		Body   []Stmt
		OrElse []Stmt
	}

	Break struct {
		Pos
	}

	Continue struct {
		Pos
	}

	Pass struct {
		Pos
	}

	Return struct {
		Pos
		Value Expr
	}

	FunctionDef struct {
		Pos
		Name       string
		Params     *Params
		Body       []Stmt
		Decorators []Expr
		Doc        bool
	}

	ClassDef struct {
		Pos
		Name       string
		Bases      []Expr
		Body       []Stmt
		Decorators []Expr
		Doc        bool
	}

	Try struct {
		Pos
		Body     []Stmt
		Handlers []ExceptHandler
		OrElse   []Stmt
		Finally  []Stmt
	}

	Raise struct {
		Pos
		Exc   Expr
		Cause Expr
	}

	Assert struct {
		Pos
		Test Expr
		Msg  Expr
	}

	Delete struct {
		Pos
		Targets []Expr
	}

	Global struct {
		Pos
		Names []string
	}

	Nonlocal struct {
		Pos
		Names []string
	}

	Import struct {
		Pos
		Names []Alias
	}

	ImportFrom struct {
		Pos
		Module string
		Names  []Alias // a single "*" alias imports everything public
	}
)

// ExceptHandler is one `except [Type [as Name]]:` clause.
type ExceptHandler struct {
	Pos
	Type Expr
	Name string
	Body []Stmt
}

type Alias struct {
	Name   string
	AsName string
}

// Bound returns the name the alias binds.
func (a Alias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

func (*ExprStmt) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*AnnAssign) stmtNode()   {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Return) stmtNode()      {}
func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Try) stmtNode()         {}
func (*Raise) stmtNode()       {}
func (*Assert) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Global) stmtNode()      {}
func (*Nonlocal) stmtNode()    {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
