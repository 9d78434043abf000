package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF
	// Newline ends a logical line.
	Newline
	// Indent opens a block.
	Indent
	// Dedent closes a block.
	Dedent

	Ident
	IntLit
	FloatLit
	StringLit
	FStringLit

	KwFalse
	KwNone
	KwTrue
	KwAnd
	KwAs
	KwAssert
	KwBreak
	KwClass
	KwContinue
	KwDef
	KwDel
	KwElif
	KwElse
	KwExcept
	KwFinally
	KwFor
	KwFrom
	KwGlobal
	KwIf
	KwImport
	KwIn
	KwIs
	KwLambda
	KwNonlocal
	KwNot
	KwOr
	KwPass
	KwRaise
	KwReturn
	KwTry
	KwWhile
	KwWith
	KwYield
	KwAsync
	KwAwait

	Plus          // +
	Minus         // -
	Star          // *
	StarStar      // **
	Slash         // /
	SlashSlash    // //
	Percent       // %
	At            // @
	Amp           // &
	Pipe          // |
	Caret         // ^
	Tilde         // ~
	Shl           // <<
	Shr           // >>
	Lt            // <
	Gt            // >
	LtEq          // <=
	GtEq          // >=
	EqEq          // ==
	BangEq        // !=
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	FloorAssign   // //=
	PercentAssign // %=
	PowAssign     // **=
	AmpAssign     // &=
	PipeAssign    // |=
	CaretAssign   // ^=
	ShlAssign     // <<=
	ShrAssign     // >>=
	Walrus        // :=
	LParen        // (
	RParen        // )
	LBracket      // [
	RBracket      // ]
	LBrace        // {
	RBrace        // }
	Comma         // ,
	Colon         // :
	Dot           // .
	Semicolon     // ;
	Arrow         // ->
	Ellipsis      // ...
)

var kindNames = [...]string{
	Invalid:       "Invalid",
	EOF:           "EOF",
	Newline:       "NEWLINE",
	Indent:        "INDENT",
	Dedent:        "DEDENT",
	Ident:         "Ident",
	IntLit:        "IntLit",
	FloatLit:      "FloatLit",
	StringLit:     "StringLit",
	FStringLit:    "FStringLit",
	KwFalse:       "False",
	KwNone:        "None",
	KwTrue:        "True",
	KwAnd:         "and",
	KwAs:          "as",
	KwAssert:      "assert",
	KwBreak:       "break",
	KwClass:       "class",
	KwContinue:    "continue",
	KwDef:         "def",
	KwDel:         "del",
	KwElif:        "elif",
	KwElse:        "else",
	KwExcept:      "except",
	KwFinally:     "finally",
	KwFor:         "for",
	KwFrom:        "from",
	KwGlobal:      "global",
	KwIf:          "if",
	KwImport:      "import",
	KwIn:          "in",
	KwIs:          "is",
	KwLambda:      "lambda",
	KwNonlocal:    "nonlocal",
	KwNot:         "not",
	KwOr:          "or",
	KwPass:        "pass",
	KwRaise:       "raise",
	KwReturn:      "return",
	KwTry:         "try",
	KwWhile:       "while",
	KwWith:        "with",
	KwYield:       "yield",
	KwAsync:       "async",
	KwAwait:       "await",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	StarStar:      "**",
	Slash:         "/",
	SlashSlash:    "//",
	Percent:       "%",
	At:            "@",
	Amp:           "&",
	Pipe:          "|",
	Caret:         "^",
	Tilde:         "~",
	Shl:           "<<",
	Shr:           ">>",
	Lt:            "<",
	Gt:            ">",
	LtEq:          "<=",
	GtEq:          ">=",
	EqEq:          "==",
	BangEq:        "!=",
	Assign:        "=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	FloorAssign:   "//=",
	PercentAssign: "%=",
	PowAssign:     "**=",
	AmpAssign:     "&=",
	PipeAssign:    "|=",
	CaretAssign:   "^=",
	ShlAssign:     "<<=",
	ShrAssign:     ">>=",
	Walrus:        ":=",
	LParen:        "(",
	RParen:        ")",
	LBracket:      "[",
	RBracket:      "]",
	LBrace:        "{",
	RBrace:        "}",
	Comma:         ",",
	Colon:         ":",
	Dot:           ".",
	Semicolon:     ";",
	Arrow:         "->",
	Ellipsis:      "...",
}

// String returns the source spelling for operators and keywords, or the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// AugmentedOp maps an augmented assignment kind to its binary operator.
// ok is false for any other kind.
func (k Kind) AugmentedOp() (op Kind, ok bool) {
	switch k {
	case PlusAssign:
		return Plus, true
	case MinusAssign:
		return Minus, true
	case StarAssign:
		return Star, true
	case SlashAssign:
		return Slash, true
	case FloorAssign:
		return SlashSlash, true
	case PercentAssign:
		return Percent, true
	case PowAssign:
		return StarStar, true
	case AmpAssign:
		return Amp, true
	case PipeAssign:
		return Pipe, true
	case CaretAssign:
		return Caret, true
	case ShlAssign:
		return Shl, true
	case ShrAssign:
		return Shr, true
	default:
		return Invalid, false
	}
}
