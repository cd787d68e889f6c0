package parser

import (
	"github.com/conifer-lang/conifer/internal/lexer"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// parseExpr parses a full expression. anchorCol is the layout anchor: a
// token at a column at or left of it ends the expression.
func (p *parser) parseExpr(anchorCol int) (syntax.Expr, error) {
	if blockExpr, ok, err := p.parseBlockExpr(anchorCol); ok || err != nil {
		return blockExpr, err
	}
	left, err := p.parseApplication(anchorCol)
	if err != nil {
		return nil, err
	}
	for p.continues(anchorCol) && p.peek().Type == lexer.Operator {
		op := p.next()
		// A block expression may close an operator chain: f <| \x -> ...
		if blockExpr, ok, err := p.parseBlockExpr(anchorCol); ok || err != nil {
			if err != nil {
				return nil, err
			}
			return p.operatorApplication(op.Text, left, blockExpr), nil
		}
		right, err := p.parseApplication(anchorCol)
		if err != nil {
			return nil, err
		}
		left = p.operatorApplication(op.Text, left, right)
	}
	return left, nil
}

func (p *parser) operatorApplication(op string, left, right syntax.Expr) syntax.Expr {
	r := syntax.Range{Start: left.ExprRange().Start, End: right.ExprRange().End}
	return &syntax.OperatorApplication{
		Operator: op, Left: left, Right: right,
		ExprBase: syntax.Base(r),
	}
}

// continues reports whether the next token still belongs to the current
// layout block.
func (p *parser) continues(anchorCol int) bool {
	tok := p.peek()
	return tok.Type != lexer.EOF && tok.Column > anchorCol
}

// parseBlockExpr parses if/let/case/lambda, which consume everything up
// to the end of the layout block.
func (p *parser) parseBlockExpr(anchorCol int) (syntax.Expr, bool, error) {
	switch p.peek().Type {
	case lexer.KwIf:
		e, err := p.parseIf(anchorCol)
		return e, true, err
	case lexer.KwLet:
		e, err := p.parseLet(anchorCol)
		return e, true, err
	case lexer.KwCase:
		e, err := p.parseCase(anchorCol)
		return e, true, err
	case lexer.Backslash:
		e, err := p.parseLambda(anchorCol)
		return e, true, err
	}
	return nil, false, nil
}

func (p *parser) parseIf(anchorCol int) (syntax.Expr, error) {
	start := p.next() // 'if'
	cond, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwThen, "'then'"); err != nil {
		return nil, err
	}
	thenExpr, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwElse, "'else'"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	return &syntax.IfBlock{
		Cond: cond, Then: thenExpr, Else: elseExpr,
		ExprBase: syntax.Base(p.rangeSince(start)),
	}, nil
}

func (p *parser) parseLambda(anchorCol int) (syntax.Expr, error) {
	start := p.next() // '\'
	var params []syntax.Pattern
	for p.peek().Type != lexer.Arrow {
		if p.peek().Type == lexer.EOF {
			return nil, p.errorf("expected '->' in lambda")
		}
		param, err := p.parsePatternAtom()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	p.next() // '->'
	body, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	return &syntax.LambdaExpr{
		Params: params, Body: body,
		ExprBase: syntax.Base(p.rangeSince(start)),
	}, nil
}

func (p *parser) parseLet(anchorCol int) (syntax.Expr, error) {
	start := p.next() // 'let'
	if p.peek().Type == lexer.EOF {
		return nil, p.errorf("expected declarations after 'let'")
	}
	declCol := p.peek().Column
	var decls []syntax.LetDeclaration
	for {
		tok := p.peek()
		if tok.Type == lexer.KwIn {
			p.next()
			break
		}
		if tok.Type == lexer.EOF {
			return nil, p.errorf("expected 'in' to close let block")
		}
		if tok.Column != declCol {
			return nil, p.errorf("let declarations must align at column %d, found %s", declCol, tok)
		}
		decl, err := p.parseLetDeclaration(declCol)
		if err != nil {
			return nil, err
		}
		if decl != nil {
			decls = append(decls, decl)
		}
	}
	body, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	return &syntax.LetBlock{
		Declarations: decls, Body: body,
		ExprBase: syntax.Base(p.rangeSince(start)),
	}, nil
}

func (p *parser) parseLetDeclaration(declCol int) (syntax.LetDeclaration, error) {
	tok := p.peek()
	if tok.Type == lexer.LowerName {
		if p.peekAt(1).Type == lexer.Colon {
			// Type annotation inside a let block.
			p.skipPastBlock(declCol)
			return nil, nil
		}
		// A lower name followed by '=' or by parameter patterns is a let
		// function; a lower name inside a larger pattern is a
		// destructuring.
		decl, err := p.parseFunctionDeclaration(declCol)
		if err != nil {
			return nil, err
		}
		return &syntax.LetFunction{Declaration: *decl}, nil
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Equals, "'=' in let destructuring"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(declCol)
	if err != nil {
		return nil, err
	}
	return &syntax.LetDestructuring{Pattern: pattern, Expr: value}, nil
}

func (p *parser) parseCase(anchorCol int) (syntax.Expr, error) {
	start := p.next() // 'case'
	subject, err := p.parseExpr(anchorCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwOf, "'of'"); err != nil {
		return nil, err
	}
	if p.peek().Type == lexer.EOF {
		return nil, p.errorf("expected case branches")
	}
	branchCol := p.peek().Column
	if branchCol <= anchorCol {
		return nil, p.errorf("case branches must be indented past column %d", anchorCol)
	}
	var branches []syntax.CaseBranch
	for p.peek().Type != lexer.EOF && p.peek().Column == branchCol {
		pattern, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Arrow, "'->' after case pattern"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(branchCol)
		if err != nil {
			return nil, err
		}
		branches = append(branches, syntax.CaseBranch{Pattern: pattern, Body: body})
	}
	if len(branches) == 0 {
		return nil, p.errorf("case block has no branches")
	}
	return &syntax.CaseBlock{
		Subject: subject, Branches: branches,
		ExprBase: syntax.Base(p.rangeSince(start)),
	}, nil
}

// parseApplication parses a chain of juxtaposed atoms.
func (p *parser) parseApplication(anchorCol int) (syntax.Expr, error) {
	first, err := p.parseAtomSuffixed(anchorCol)
	if err != nil {
		return nil, err
	}
	items := []syntax.Expr{first}
	for p.continues(anchorCol) && p.startsAtom() {
		arg, err := p.parseAtomSuffixed(anchorCol)
		if err != nil {
			return nil, err
		}
		items = append(items, arg)
	}
	if len(items) == 1 {
		return first, nil
	}
	r := syntax.Range{
		Start: items[0].ExprRange().Start,
		End:   items[len(items)-1].ExprRange().End,
	}
	return &syntax.Application{Items: items, ExprBase: syntax.Base(r)}, nil
}

func (p *parser) startsAtom() bool {
	switch p.peek().Type {
	case lexer.LowerName, lexer.UpperName, lexer.QualifiedName, lexer.AccessFn,
		lexer.Int, lexer.Hex, lexer.Float, lexer.Char, lexer.String,
		lexer.LParen, lexer.LBracket, lexer.LBrace:
		return true
	case lexer.Operator:
		// Adjacent unary minus: f -1
		return p.peek().Text == "-" && p.nextAdjacentToOperand()
	}
	return false
}

func (p *parser) nextAdjacentToOperand() bool {
	cur := p.peek()
	after := p.peekAt(1)
	return after.Line == cur.Line && after.Column == cur.Column+1
}

// parseAtomSuffixed parses an atom plus any adjacent record accesses.
func (p *parser) parseAtomSuffixed(anchorCol int) (syntax.Expr, error) {
	atom, err := p.parseAtom(anchorCol)
	if err != nil {
		return nil, err
	}
	for p.peek().Type == lexer.AccessFn && p.adjacentToPrev() {
		tok := p.next()
		r := syntax.Range{Start: atom.ExprRange().Start, End: syntax.Position{Line: tok.Line, Column: tokenEnd(tok)}}
		atom = &syntax.RecordAccess{
			Record: atom, Field: tok.Text,
			ExprBase: syntax.Base(r),
		}
	}
	return atom, nil
}

func (p *parser) parseAtom(anchorCol int) (syntax.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.Int, lexer.Hex:
		p.next()
		n, err := intFromToken(tok)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q: %v", tok.Text, err)
		}
		return &syntax.IntegerLiteral{Value: n, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.Float:
		p.next()
		return &syntax.FloatLiteral{Text: tok.Text, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.Char:
		p.next()
		return &syntax.CharLiteral{Value: []rune(tok.Text)[0], ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.String:
		p.next()
		return &syntax.StringLiteral{Value: tok.Text, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.LowerName:
		p.next()
		return &syntax.FunctionOrValue{Name: tok.Text, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.UpperName:
		p.next()
		return &syntax.FunctionOrValue{Name: tok.Text, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.QualifiedName:
		p.next()
		moduleName, name := splitQualified(tok.Text)
		return &syntax.FunctionOrValue{
			ModuleName: moduleName, Name: name,
			ExprBase: syntax.Base(rangeFrom(tok, tok)),
		}, nil

	case lexer.AccessFn:
		p.next()
		return &syntax.RecordAccessFunction{Field: tok.Text, ExprBase: syntax.Base(rangeFrom(tok, tok))}, nil

	case lexer.Operator:
		if tok.Text == "-" && p.nextAdjacentToOperand() {
			p.next()
			operand, err := p.parseAtomSuffixed(anchorCol)
			if err != nil {
				return nil, err
			}
			r := syntax.Range{Start: syntax.Position{Line: tok.Line, Column: tok.Column}, End: operand.ExprRange().End}
			return &syntax.Negation{Operand: operand, ExprBase: syntax.Base(r)}, nil
		}
		return nil, p.errorf("unexpected operator %s", tok)

	case lexer.LParen:
		return p.parseParenthesized(anchorCol)

	case lexer.LBracket:
		return p.parseList(anchorCol)

	case lexer.LBrace:
		return p.parseRecord(anchorCol)
	}
	return nil, p.errorf("unexpected %s", tok)
}

func splitQualified(text string) ([]string, string) {
	parts := splitDots(text)
	return parts[:len(parts)-1], parts[len(parts)-1]
}

func splitDots(text string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		if r == '.' {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

func (p *parser) parseParenthesized(anchorCol int) (syntax.Expr, error) {
	start := p.next() // '('
	if p.peek().Type == lexer.RParen {
		end := p.next()
		return &syntax.UnitExpr{ExprBase: syntax.Base(rangeFrom(start, end))}, nil
	}
	if p.peek().Type == lexer.Operator && p.peekAt(1).Type == lexer.RParen {
		op := p.next()
		end := p.next()
		return &syntax.PrefixOperator{Operator: op.Text, ExprBase: syntax.Base(rangeFrom(start, end))}, nil
	}
	var items []syntax.Expr
	for {
		item, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peek().Type == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	end, err := p.expect(lexer.RParen, "')'")
	if err != nil {
		return nil, err
	}
	base := syntax.Base(rangeFrom(start, end))
	if len(items) == 1 {
		return &syntax.ParenthesizedExpr{Inner: items[0], ExprBase: base}, nil
	}
	if len(items) > 3 {
		return nil, p.errorf("tuples have at most three elements")
	}
	return &syntax.TupleExpr{Items: items, ExprBase: base}, nil
}

func (p *parser) parseList(anchorCol int) (syntax.Expr, error) {
	start := p.next() // '['
	var items []syntax.Expr
	if p.peek().Type != lexer.RBracket {
		for {
			item, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.peek().Type == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	end, err := p.expect(lexer.RBracket, "']'")
	if err != nil {
		return nil, err
	}
	return &syntax.ListLiteral{Items: items, ExprBase: syntax.Base(rangeFrom(start, end))}, nil
}

func (p *parser) parseRecord(anchorCol int) (syntax.Expr, error) {
	start := p.next() // '{'
	if p.peek().Type == lexer.RBrace {
		end := p.next()
		return &syntax.RecordExpr{ExprBase: syntax.Base(rangeFrom(start, end))}, nil
	}
	if p.peek().Type == lexer.LowerName && p.peekAt(1).Type == lexer.Pipe {
		name := p.next()
		p.next() // '|'
		fields, err := p.parseRecordFields()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(lexer.RBrace, "'}'")
		if err != nil {
			return nil, err
		}
		return &syntax.RecordUpdate{
			RecordName: name.Text, Fields: fields,
			ExprBase: syntax.Base(rangeFrom(start, end)),
		}, nil
	}
	fields, err := p.parseRecordFields()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.RBrace, "'}'")
	if err != nil {
		return nil, err
	}
	return &syntax.RecordExpr{Fields: fields, ExprBase: syntax.Base(rangeFrom(start, end))}, nil
}

func (p *parser) parseRecordFields() ([]syntax.RecordField, error) {
	var fields []syntax.RecordField
	for {
		name, err := p.expect(lexer.LowerName, "a field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Equals, "'='"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		fields = append(fields, syntax.RecordField{Name: name.Text, Value: value})
		if p.peek().Type == lexer.Comma {
			p.next()
			continue
		}
		return fields, nil
	}
}
