package lexer

import "fmt"

// TokenType identifies a lexical class.
type TokenType int

const (
	EOF TokenType = iota
	LowerName
	UpperName
	QualifiedName // Module.Sub.name or Module.Tag, dot-joined in Text
	DotField      // not produced by the lexer; every .field is lexed as AccessFn
	AccessFn      // .field; the parser tells field access from an access function by adjacency
	Int
	Hex
	Float
	Char
	String
	Operator
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Equals
	Arrow
	Pipe
	Colon
	Backslash
	DotDot
	Underscore
	KwModule
	KwExposing
	KwImport
	KwAs
	KwIf
	KwThen
	KwElse
	KwCase
	KwOf
	KwLet
	KwIn
	KwType
	KwAlias
	KwPort
	KwInfix
)

var keywords = map[string]TokenType{
	"module":   KwModule,
	"exposing": KwExposing,
	"import":   KwImport,
	"as":       KwAs,
	"if":       KwIf,
	"then":     KwThen,
	"else":     KwElse,
	"case":     KwCase,
	"of":       KwOf,
	"let":      KwLet,
	"in":       KwIn,
	"type":     KwType,
	"alias":    KwAlias,
	"port":     KwPort,
	"infix":    KwInfix,
}

// Token is one lexical unit with its source position.
type Token struct {
	Type   TokenType
	Text   string
	Line   int // 1-based
	Column int // 1-based
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case String:
		return fmt.Sprintf("string literal %q", t.Text)
	case Char:
		return fmt.Sprintf("character literal '%s'", t.Text)
	}
	return fmt.Sprintf("%q", t.Text)
}
