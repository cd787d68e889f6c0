package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(t *testing.T, source string) []TokenType {
	t.Helper()
	toks, err := Lex(source)
	require.NoError(t, err)
	out := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Type)
	}
	return out
}

func TestLexDeclaration(t *testing.T) {
	toks, err := Lex("f x = x + 1")
	require.NoError(t, err)
	require.Len(t, toks, 7) // f x = x + 1 EOF
	assert.Equal(t, LowerName, toks[0].Type)
	assert.Equal(t, Equals, toks[2].Type)
	assert.Equal(t, Operator, toks[4].Type)
	assert.Equal(t, "+", toks[4].Text)
	assert.Equal(t, Int, toks[5].Type)
}

func TestLexQualifiedNames(t *testing.T) {
	toks, err := Lex("List.map Maybe.Just Pine_kernel.int_add")
	require.NoError(t, err)
	for _, tok := range toks[:3] {
		assert.Equal(t, QualifiedName, tok.Type, tok.Text)
	}
	assert.Equal(t, "List.map", toks[0].Text)
	assert.Equal(t, "Maybe.Just", toks[1].Text)
	assert.Equal(t, "Pine_kernel.int_add", toks[2].Text)
}

func TestLexFieldAccess(t *testing.T) {
	toks, err := Lex("record.field .accessor")
	require.NoError(t, err)
	assert.Equal(t, LowerName, toks[0].Type)
	assert.Equal(t, AccessFn, toks[1].Type)
	assert.Equal(t, "field", toks[1].Text)
	assert.Equal(t, AccessFn, toks[2].Type)
}

func TestLexKeywordsAndLayout(t *testing.T) {
	toks, err := Lex("let\n    x = 1\nin\nx")
	require.NoError(t, err)
	assert.Equal(t, KwLet, toks[0].Type)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, LowerName, toks[1].Type)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 5, toks[1].Column)
	assert.Equal(t, KwIn, toks[4].Type)
}

func TestLexLiterals(t *testing.T) {
	assert.Equal(t,
		[]TokenType{Int, Hex, Float, Char, String, EOF},
		kinds(t, "12 0x1F 1.5 'a' \"hi\""))
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := Lex("\"a\\nb\\u{48}\"")
	require.NoError(t, err)
	assert.Equal(t, "a\nbH", toks[0].Text)
}

func TestLexTripleQuotedString(t *testing.T) {
	toks, err := Lex("\"\"\"two\nlines\"\"\"")
	require.NoError(t, err)
	assert.Equal(t, String, toks[0].Type)
	assert.Equal(t, "two\nlines", toks[0].Text)
}

func TestLexComments(t *testing.T) {
	assert.Equal(t,
		[]TokenType{LowerName, Int, EOF},
		kinds(t, "x -- line comment\n{- block {- nested -} -} 1"))
}

func TestLexOperators(t *testing.T) {
	toks, err := Lex("a :: b |> c -> d")
	require.NoError(t, err)
	assert.Equal(t, Operator, toks[1].Type)
	assert.Equal(t, "::", toks[1].Text)
	assert.Equal(t, Operator, toks[3].Type)
	assert.Equal(t, "|>", toks[3].Text)
	assert.Equal(t, Arrow, toks[5].Type)
}

func TestLexErrors(t *testing.T) {
	_, err := Lex("\"unterminated")
	assert.Error(t, err)

	_, err = Lex("'ab'")
	assert.Error(t, err)

	_, err = Lex("{- never closed")
	assert.Error(t, err)
}
