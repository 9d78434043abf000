package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexBadIndent          Code = 1004
	LexInconsistentDedent Code = 1005
	LexTabsMixed          Code = 1006
	LexUnbalancedBracket  Code = 1007
	LexBadEscape          Code = 1008
	LexBadContinuation    Code = 1009

	// Syntax
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynExpectIdentifier  Code = 2002
	SynExpectColon       Code = 2003
	SynExpectIndent      Code = 2004
	SynExpectNewline     Code = 2005
	SynUnclosedParen     Code = 2006
	SynUnclosedBracket   Code = 2007
	SynUnclosedBrace     Code = 2008
	SynBadAssignTarget   Code = 2009
	SynTooDeeplyNested   Code = 2010
	SynBadFString        Code = 2011
	SynOutsideLoop       Code = 2012
	SynReturnOutsideFunc Code = 2013
	SynBadParameters     Code = 2014
	SynUnsupported       Code = 2015
	SynBadArguments      Code = 2016
	SynNonlocalAtModule  Code = 2017

	// IO
	IOLoadFileError Code = 4001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		LexInfo:               "Lexical information",
		LexUnknownChar:        "Invalid character",
		LexUnterminatedString: "Unterminated string literal",
		LexBadNumber:          "Invalid number literal",
		LexBadIndent:          "Unexpected indent",
		LexInconsistentDedent: "Unindent does not match any outer indentation level",
		LexTabsMixed:          "Inconsistent use of tabs and spaces in indentation",
		LexUnbalancedBracket:  "Unmatched bracket",
		LexBadEscape:          "Invalid escape sequence",
		LexBadContinuation:    "Unexpected character after line continuation character",
		SynInfo:               "Syntax information",
		SynUnexpectedToken:    "Invalid syntax",
		SynExpectIdentifier:   "Expected identifier",
		SynExpectColon:        "Expected ':'",
		SynExpectIndent:       "Expected an indented block",
		SynExpectNewline:      "Expected end of statement",
		SynUnclosedParen:      "'(' was never closed",
		SynUnclosedBracket:    "'[' was never closed",
		SynUnclosedBrace:      "'{' was never closed",
		SynBadAssignTarget:    "Cannot assign to expression",
		SynTooDeeplyNested:    "Too many nested parentheses",
		SynBadFString:         "Invalid f-string",
		SynOutsideLoop:        "'break' or 'continue' outside loop",
		SynReturnOutsideFunc:  "'return' outside function",
		SynBadParameters:      "Invalid parameter list",
		SynUnsupported:        "Unsupported syntax",
		SynBadArguments:       "Invalid argument list",
		SynNonlocalAtModule:   "Nonlocal declaration not allowed at module level",
		IOLoadFileError:       "Failed to load file",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
