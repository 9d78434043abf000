package ast

import "pytrace/internal/token"

type (
	Name struct {
		Pos
		ID string
	}

	IntLit struct {
		Pos
		Value int64
	}

	FloatLit struct {
		Pos
		Value float64
	}

	StrLit struct {
		Pos
		Value string
	}

	BoolLit struct {
		Pos
		Value bool
	}

	NoneLit struct {
		Pos
	}

	EllipsisLit struct {
		Pos
	}

	// FString is an f-string split into literal text and replacement fields.
	FString struct {
		Pos
		Parts []FStringPart
	}

	List struct {
		Pos
		Elts []Expr
	}

	Tuple struct {
		Pos
		Elts []Expr
	}

	Set struct {
		Pos
		Elts []Expr
	}

	// Dict keeps keys and values pairwise; a nil key marks a **mapping unpack.
	Dict struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	BinOp struct {
		Pos
		Op          token.Kind
		Left, Right Expr
	}

	UnaryOp struct {
		Pos
		Op      token.Kind // Minus, Plus, Tilde, KwNot
		Operand Expr
	}

	// BoolOp is a chain of `and` or `or` operands.
	BoolOp struct {
		Pos
		Op     token.Kind // KwAnd, KwOr
		Values []Expr
	}

	Compare struct {
		Pos
		Left        Expr
		Ops         []CmpOp
		Comparators []Expr
	}

	IfExp struct {
		Pos
		Test, Body, OrElse Expr
	}

	Lambda struct {
		Pos
		Params *Params
		Body   Expr
	}

	Call struct {
		Pos
		Func     Expr
		Args     []Expr // may contain *Starred
		Keywords []Keyword
	}

	Attribute struct {
		Pos
		Value Expr
		Attr  string
	}

	Subscript struct {
		Pos
		Value Expr
		Index Expr // *Slice for slicing
	}

	Slice struct {
		Pos
		Lower, Upper, Step Expr // each may be nil
	}

	Starred struct {
		Pos
		Value Expr
	}

	// NamedExpr is the walrus operator.
	NamedExpr struct {
		Pos
		Target *Name
		Value  Expr
	}

	// Comp covers list, set and dict comprehensions and generator expressions.
	Comp struct {
		Pos
		Kind       CompKind
		Elt        Expr // key for dict comprehensions
		Value      Expr // dict comprehensions only
		Generators []Comprehension
	}
)

// FStringPart is literal text (Expr == nil) or a replacement field.
type FStringPart struct {
	Lit        string
	Expr       Expr
	Conversion byte     // 0, 's', 'r' or 'a'
	Spec       *FString // nil when absent
	// Debug holds the source text for `{expr=}` fields.
	Debug string
}

type Keyword struct {
	Name  string // empty for **kwargs unpacking
	Value Expr
}

type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

type CompKind uint8

const (
	ListComp CompKind = iota
	SetComp
	DictComp
	GenExp
)

type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNotEq
	CmpLt
	CmpLtE
	CmpGt
	CmpGtE
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

func (op CmpOp) String() string {
	return [...]string{"==", "!=", "<", "<=", ">", ">=", "in", "not in", "is", "is not"}[op]
}

// ParamKind classifies a function parameter.
type ParamKind uint8

const (
	ParamPositional ParamKind = iota
	ParamVarArgs
	ParamKwOnly
	ParamVarKw
)

type Param struct {
	Pos
	Name    string
	Kind    ParamKind
	Default Expr
}

type Params struct {
	List []Param
}

// Names returns parameter names in declaration order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.List))
	for _, prm := range p.List {
		out = append(out, prm.Name)
	}
	return out
}

// VarNames returns parameter names in local-variable order: positional,
// then keyword-only, then *args, then **kwargs.
func (p *Params) VarNames() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.List))
	for _, kind := range [...]ParamKind{ParamPositional, ParamKwOnly, ParamVarArgs, ParamVarKw} {
		for _, prm := range p.List {
			if prm.Kind == kind {
				out = append(out, prm.Name)
			}
		}
	}
	return out
}

func (*Name) exprNode()        {}
func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*StrLit) exprNode()      {}
func (*BoolLit) exprNode()     {}
func (*NoneLit) exprNode()     {}
func (*EllipsisLit) exprNode() {}
func (*FString) exprNode()     {}
func (*List) exprNode()        {}
func (*Tuple) exprNode()       {}
func (*Set) exprNode()         {}
func (*Dict) exprNode()        {}
func (*BinOp) exprNode()       {}
func (*UnaryOp) exprNode()     {}
func (*BoolOp) exprNode()      {}
func (*Compare) exprNode()     {}
func (*IfExp) exprNode()       {}
func (*Lambda) exprNode()      {}
func (*Call) exprNode()        {}
func (*Attribute) exprNode()   {}
func (*Subscript) exprNode()   {}
func (*Slice) exprNode()       {}
func (*Starred) exprNode()     {}
func (*NamedExpr) exprNode()   {}
func (*Comp) exprNode()        {}
