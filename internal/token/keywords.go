package token

var keywords = map[string]Kind{
	"False":    KwFalse,
	"None":     KwNone,
	"True":     KwTrue,
	"and":      KwAnd,
	"as":       KwAs,
	"assert":   KwAssert,
	"break":    KwBreak,
	"class":    KwClass,
	"continue": KwContinue,
	"def":      KwDef,
	"del":      KwDel,
	"elif":     KwElif,
	"else":     KwElse,
	"except":   KwExcept,
	"finally":  KwFinally,
	"for":      KwFor,
	"from":     KwFrom,
	"global":   KwGlobal,
	"if":       KwIf,
	"import":   KwImport,
	"in":       KwIn,
	"is":       KwIs,
	"lambda":   KwLambda,
	"nonlocal": KwNonlocal,
	"not":      KwNot,
	"or":       KwOr,
	"pass":     KwPass,
	"raise":    KwRaise,
	"return":   KwReturn,
	"try":      KwTry,
	"while":    KwWhile,
	"with":     KwWith,
	"yield":    KwYield,
	"async":    KwAsync,
	"await":    KwAwait,
}

// LookupKeyword returns the keyword kind for an identifier spelling.
func LookupKeyword(s string) (Kind, bool) {
	k, ok := keywords[s]
	return k, ok
}
