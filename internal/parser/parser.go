// Package parser is a recursive-descent parser for the surface language.
// It produces syntax.File values; all semantic work (imports, precedence,
// pattern compilation) happens in the front compiler.
//
// The layout rule is positional: a token continues the expression under
// construction only while its column is greater than the enclosing block's
// anchor column. Top-level declarations anchor at column 1; let
// declarations and case branches anchor at the column of their first
// token.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/lexer"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// ParseFile parses a whole module source.
func ParseFile(source string) (*syntax.File, error) {
	p, err := newParser(source)
	if err != nil {
		return nil, err
	}
	return p.parseFile()
}

// ParseExpressionString parses a standalone expression, as entered
// interactively.
func ParseExpressionString(source string) (syntax.Expr, error) {
	p, err := newParser(source)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().Type != lexer.EOF {
		return nil, p.errorf("unexpected %s after expression", p.peek())
	}
	return expr, nil
}

// ParseDeclarationString parses a standalone declaration, as entered
// interactively.
func ParseDeclarationString(source string) (syntax.Declaration, error) {
	p, err := newParser(source)
	if err != nil {
		return nil, err
	}
	decl, err := p.parseDeclaration()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != lexer.EOF {
		return nil, p.errorf("unexpected %s after declaration", p.peek())
	}
	return decl, nil
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func newParser(source string) (*parser, error) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, diag.WithPath(diag.New(diag.CodeParseError, "parse", "%v", err), "lexer")
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) lexer.Token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) next() lexer.Token {
	tok := p.toks[p.pos]
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt lexer.TokenType, what string) (lexer.Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf("expected %s, found %s", what, tok)
	}
	return p.next(), nil
}

func (p *parser) errorf(format string, args ...any) error {
	tok := p.peek()
	msg := fmt.Sprintf(format, args...)
	return diag.New(diag.CodeParseError, "parse", "%d:%d: %s", tok.Line, tok.Column, msg)
}

func tokenEnd(tok lexer.Token) int {
	switch tok.Type {
	case lexer.AccessFn:
		return tok.Column + 1 + len([]rune(tok.Text))
	case lexer.String:
		// Approximate; only adjacency of names and brackets matters.
		return tok.Column + len([]rune(tok.Text)) + 2
	default:
		return tok.Column + len([]rune(tok.Text))
	}
}

func (p *parser) prevToken() lexer.Token {
	if p.pos == 0 {
		return lexer.Token{}
	}
	return p.toks[p.pos-1]
}

// adjacentToPrev reports whether the next token follows the previous one
// with no whitespace, used for field access and negation.
func (p *parser) adjacentToPrev() bool {
	prev := p.prevToken()
	cur := p.peek()
	return prev.Line == cur.Line && tokenEnd(prev) == cur.Column
}

func rangeFrom(start, end lexer.Token) syntax.Range {
	return syntax.Range{
		Start: syntax.Position{Line: start.Line, Column: start.Column},
		End:   syntax.Position{Line: end.Line, Column: tokenEnd(end)},
	}
}

func (p *parser) rangeSince(start lexer.Token) syntax.Range {
	return rangeFrom(start, p.prevToken())
}

// ---------------------------------------------------------------------------
// File structure

func (p *parser) parseFile() (*syntax.File, error) {
	file := &syntax.File{}

	module, err := p.parseModuleHeader()
	if err != nil {
		return nil, err
	}
	file.Module = module

	for p.peek().Type == lexer.KwImport {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		file.Imports = append(file.Imports, imp)
	}

	for p.peek().Type != lexer.EOF {
		if p.peek().Column != 1 {
			return nil, p.errorf("top-level declarations must start at column 1, found %s", p.peek())
		}
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		if decl != nil {
			file.Declarations = append(file.Declarations, decl)
		}
	}
	return file, nil
}

func (p *parser) parseModuleHeader() (syntax.ModuleDefinition, error) {
	var def syntax.ModuleDefinition
	start, err := p.expect(lexer.KwModule, "'module'")
	if err != nil {
		return def, err
	}
	name, err := p.parseModuleName()
	if err != nil {
		return def, err
	}
	if _, err := p.expect(lexer.KwExposing, "'exposing'"); err != nil {
		return def, err
	}
	exposing, err := p.parseExposing()
	if err != nil {
		return def, err
	}
	def.Name = name
	def.Exposing = exposing
	def.Range = p.rangeSince(start)
	return def, nil
}

func (p *parser) parseModuleName() ([]string, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.UpperName:
		p.next()
		return []string{tok.Text}, nil
	case lexer.QualifiedName:
		p.next()
		return strings.Split(tok.Text, "."), nil
	}
	return nil, p.errorf("expected a module name, found %s", tok)
}

func (p *parser) parseExposing() (syntax.Exposing, error) {
	var exp syntax.Exposing
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return exp, err
	}
	if p.peek().Type == lexer.DotDot {
		p.next()
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return exp, err
		}
		exp.All = true
		return exp, nil
	}
	for {
		item, err := p.parseExposedItem()
		if err != nil {
			return exp, err
		}
		exp.Items = append(exp.Items, item)
		if p.peek().Type == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return exp, err
	}
	return exp, nil
}

func (p *parser) parseExposedItem() (syntax.ExposedItem, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.LowerName:
		p.next()
		return syntax.ExposedItem{Name: tok.Text}, nil
	case lexer.UpperName:
		p.next()
		item := syntax.ExposedItem{Name: tok.Text}
		if p.peek().Type == lexer.LParen && p.peekAt(1).Type == lexer.DotDot {
			p.next()
			p.next()
			if _, err := p.expect(lexer.RParen, "')'"); err != nil {
				return item, err
			}
			item.OpenTags = true
		}
		return item, nil
	case lexer.LParen:
		// Exposed operator, e.g. (+)
		p.next()
		op, err := p.expect(lexer.Operator, "an operator")
		if err != nil {
			return syntax.ExposedItem{}, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return syntax.ExposedItem{}, err
		}
		return syntax.ExposedItem{Name: "(" + op.Text + ")"}, nil
	}
	return syntax.ExposedItem{}, p.errorf("expected an exposed name, found %s", tok)
}

func (p *parser) parseImport() (syntax.Import, error) {
	var imp syntax.Import
	start, err := p.expect(lexer.KwImport, "'import'")
	if err != nil {
		return imp, err
	}
	name, err := p.parseModuleName()
	if err != nil {
		return imp, err
	}
	imp.ModuleName = name
	if p.peek().Type == lexer.KwAs {
		p.next()
		alias, err := p.expect(lexer.UpperName, "an alias name")
		if err != nil {
			return imp, err
		}
		imp.Alias = alias.Text
	}
	if p.peek().Type == lexer.KwExposing {
		p.next()
		exposing, err := p.parseExposing()
		if err != nil {
			return imp, err
		}
		imp.Exposing = &exposing
	}
	imp.Range = p.rangeSince(start)
	return imp, nil
}

// ---------------------------------------------------------------------------
// Declarations

// parseDeclaration parses one top-level declaration. Type annotations are
// recognized and skipped; they return a nil declaration.
func (p *parser) parseDeclaration() (syntax.Declaration, error) {
	tok := p.peek()
	declCol := tok.Column
	switch tok.Type {
	case lexer.KwType:
		return p.parseTypeDeclaration()
	case lexer.KwPort:
		return p.parsePortDeclaration(declCol)
	case lexer.KwInfix:
		return p.parseInfixDeclaration(declCol)
	case lexer.LowerName:
		if p.peekAt(1).Type == lexer.Colon {
			p.skipPastBlock(declCol)
			return nil, nil
		}
		decl, err := p.parseFunctionDeclaration(declCol)
		if err != nil {
			return nil, err
		}
		return decl, nil
	}
	return nil, p.errorf("expected a declaration, found %s", tok)
}

// skipPastBlock consumes tokens until the next token at or left of the
// anchor column, used for type annotations.
func (p *parser) skipPastBlock(anchorCol int) {
	p.next()
	for p.peek().Type != lexer.EOF && p.peek().Column > anchorCol {
		p.next()
	}
}

func (p *parser) parseFunctionDeclaration(declCol int) (*syntax.FunctionDeclaration, error) {
	start, err := p.expect(lexer.LowerName, "a declaration name")
	if err != nil {
		return nil, err
	}
	decl := &syntax.FunctionDeclaration{Name: start.Text}
	for p.peek().Type != lexer.Equals {
		if p.peek().Type == lexer.EOF {
			return nil, p.errorf("expected '=' in declaration of %q", decl.Name)
		}
		param, err := p.parsePatternAtom()
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("declaration %q", decl.Name))
		}
		decl.Params = append(decl.Params, param)
	}
	p.next() // consume '='
	body, err := p.parseExpr(declCol)
	if err != nil {
		return nil, diag.WithPath(err, fmt.Sprintf("declaration %q", decl.Name))
	}
	decl.Body = body
	decl.Range = p.rangeSince(start)
	return decl, nil
}

func (p *parser) parseTypeDeclaration() (syntax.Declaration, error) {
	start, _ := p.expect(lexer.KwType, "'type'")
	if p.peek().Type == lexer.KwAlias {
		p.next()
		return p.parseAliasDeclaration(start)
	}
	name, err := p.expect(lexer.UpperName, "a type name")
	if err != nil {
		return nil, err
	}
	decl := &syntax.CustomTypeDeclaration{Name: name.Text}
	for p.peek().Type == lexer.LowerName {
		decl.TypeParams = append(decl.TypeParams, p.next().Text)
	}
	if _, err := p.expect(lexer.Equals, "'='"); err != nil {
		return nil, err
	}
	for {
		tag, err := p.parseTypeTag()
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("type %q", decl.Name))
		}
		decl.Tags = append(decl.Tags, tag)
		if p.peek().Type == lexer.Pipe && p.peek().Column > start.Column {
			p.next()
			continue
		}
		break
	}
	decl.Range = p.rangeSince(start)
	return decl, nil
}

func (p *parser) parseTypeTag() (syntax.TypeTag, error) {
	name, err := p.expect(lexer.UpperName, "a tag name")
	if err != nil {
		return syntax.TypeTag{}, err
	}
	arity := 0
	for p.isTypeAtomStart() && p.peek().Column > name.Column {
		if err := p.skipTypeAtom(); err != nil {
			return syntax.TypeTag{}, err
		}
		arity++
	}
	return syntax.TypeTag{Name: name.Text, Arity: arity}, nil
}

func (p *parser) parseAliasDeclaration(start lexer.Token) (syntax.Declaration, error) {
	name, err := p.expect(lexer.UpperName, "an alias name")
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.LowerName {
		p.next() // type parameters
	}
	if _, err := p.expect(lexer.Equals, "'='"); err != nil {
		return nil, err
	}
	decl := &syntax.AliasDeclaration{Name: name.Text}
	if p.peek().Type == lexer.LBrace {
		fields, err := p.parseRecordTypeFields()
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("type alias %q", decl.Name))
		}
		decl.Fields = fields
	} else {
		if err := p.skipTypeExpr(); err != nil {
			return nil, err
		}
	}
	decl.Range = p.rangeSince(start)
	return decl, nil
}

func (p *parser) parseRecordTypeFields() ([]string, error) {
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	var fields []string
	if p.peek().Type == lexer.RBrace {
		p.next()
		return fields, nil
	}
	for {
		name, err := p.expect(lexer.LowerName, "a field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon, "':'"); err != nil {
			return nil, err
		}
		if err := p.skipTypeExpr(); err != nil {
			return nil, err
		}
		fields = append(fields, name.Text)
		if p.peek().Type == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *parser) parsePortDeclaration(declCol int) (syntax.Declaration, error) {
	start, _ := p.expect(lexer.KwPort, "'port'")
	name := "port"
	if p.peek().Type == lexer.LowerName {
		name = p.peek().Text
	}
	p.skipPastBlock(declCol)
	return &syntax.PortDeclaration{Name: name, Range: p.rangeSince(start)}, nil
}

func (p *parser) parseInfixDeclaration(declCol int) (syntax.Declaration, error) {
	start, _ := p.expect(lexer.KwInfix, "'infix'")
	op := ""
	for p.peek().Type != lexer.EOF && p.peek().Column > declCol {
		tok := p.next()
		if tok.Type == lexer.Operator && op == "" {
			op = tok.Text
		}
	}
	return &syntax.InfixDeclaration{Operator: op, Range: p.rangeSince(start)}, nil
}

// ---------------------------------------------------------------------------
// Type expressions (structure only; the compiler is untyped)

func (p *parser) isTypeAtomStart() bool {
	switch p.peek().Type {
	case lexer.UpperName, lexer.QualifiedName, lexer.LowerName, lexer.LParen, lexer.LBrace:
		return true
	}
	return false
}

func (p *parser) skipTypeExpr() error {
	if err := p.skipTypeApp(); err != nil {
		return err
	}
	for p.peek().Type == lexer.Arrow {
		p.next()
		if err := p.skipTypeApp(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) skipTypeApp() error {
	if !p.isTypeAtomStart() {
		return p.errorf("expected a type, found %s", p.peek())
	}
	first := p.peek().Column
	if err := p.skipTypeAtom(); err != nil {
		return err
	}
	for p.isTypeAtomStart() && p.peek().Column > first {
		if err := p.skipTypeAtom(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) skipTypeAtom() error {
	switch p.peek().Type {
	case lexer.UpperName, lexer.QualifiedName, lexer.LowerName:
		p.next()
		return nil
	case lexer.LParen:
		p.next()
		if p.peek().Type == lexer.RParen {
			p.next()
			return nil
		}
		for {
			if err := p.skipTypeExpr(); err != nil {
				return err
			}
			if p.peek().Type == lexer.Comma {
				p.next()
				continue
			}
			break
		}
		_, err := p.expect(lexer.RParen, "')'")
		return err
	case lexer.LBrace:
		_, err := p.parseRecordTypeFields()
		return err
	}
	return p.errorf("expected a type, found %s", p.peek())
}

// intFromToken parses decimal and hex literal text.
func intFromToken(tok lexer.Token) (int64, error) {
	if tok.Type == lexer.Hex {
		return strconv.ParseInt(strings.TrimPrefix(tok.Text, "0x"), 16, 64)
	}
	return strconv.ParseInt(tok.Text, 10, 64)
}
