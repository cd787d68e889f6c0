package parser

import (
	"github.com/conifer-lang/conifer/internal/lexer"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// parsePattern parses a full pattern, including :: chains.
func (p *parser) parsePattern() (syntax.Pattern, error) {
	left, err := p.parsePatternApplication()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == lexer.Operator && p.peek().Text == "::" {
		p.next()
		tail, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return &syntax.UnConsPattern{Head: left, Tail: tail}, nil
	}
	return left, nil
}

// parsePatternApplication parses a tag applied to argument atoms, or a
// single atom.
func (p *parser) parsePatternApplication() (syntax.Pattern, error) {
	tok := p.peek()
	if tok.Type == lexer.UpperName || tok.Type == lexer.QualifiedName {
		p.next()
		var moduleName []string
		name := tok.Text
		if tok.Type == lexer.QualifiedName {
			moduleName, name = splitQualified(tok.Text)
		}
		pattern := &syntax.NamedPattern{ModuleName: moduleName, Name: name}
		for p.startsPatternAtom() {
			arg, err := p.parsePatternAtom()
			if err != nil {
				return nil, err
			}
			pattern.Args = append(pattern.Args, arg)
		}
		return pattern, nil
	}
	return p.parsePatternAtom()
}

func (p *parser) startsPatternAtom() bool {
	switch p.peek().Type {
	case lexer.LowerName, lexer.UpperName, lexer.QualifiedName, lexer.Underscore,
		lexer.Int, lexer.Hex, lexer.Float, lexer.Char, lexer.String,
		lexer.LParen, lexer.LBracket, lexer.LBrace:
		return true
	}
	return false
}

func (p *parser) parsePatternAtom() (syntax.Pattern, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.Underscore:
		p.next()
		return &syntax.AllPattern{}, nil

	case lexer.LowerName:
		p.next()
		return &syntax.VarPattern{Name: tok.Text}, nil

	case lexer.UpperName:
		p.next()
		return &syntax.NamedPattern{Name: tok.Text}, nil

	case lexer.QualifiedName:
		p.next()
		moduleName, name := splitQualified(tok.Text)
		return &syntax.NamedPattern{ModuleName: moduleName, Name: name}, nil

	case lexer.Int:
		p.next()
		n, err := intFromToken(tok)
		if err != nil {
			return nil, p.errorf("invalid integer pattern %q: %v", tok.Text, err)
		}
		return &syntax.IntPattern{Value: n}, nil

	case lexer.Hex:
		p.next()
		n, err := intFromToken(tok)
		if err != nil {
			return nil, p.errorf("invalid hex pattern %q: %v", tok.Text, err)
		}
		return &syntax.HexPattern{Value: n}, nil

	case lexer.Float:
		p.next()
		return &syntax.FloatPattern{Text: tok.Text}, nil

	case lexer.Char:
		p.next()
		return &syntax.CharPattern{Value: []rune(tok.Text)[0]}, nil

	case lexer.String:
		p.next()
		return &syntax.StringPattern{Value: tok.Text}, nil

	case lexer.LParen:
		return p.parseParenPattern()

	case lexer.LBracket:
		return p.parseListPattern()

	case lexer.LBrace:
		return p.parseRecordPattern()
	}
	return nil, p.errorf("expected a pattern, found %s", tok)
}

func (p *parser) parseParenPattern() (syntax.Pattern, error) {
	p.next() // '('
	if p.peek().Type == lexer.RParen {
		p.next()
		return &syntax.UnitPattern{}, nil
	}
	var items []syntax.Pattern
	for {
		item, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if p.peek().Type == lexer.KwAs {
			p.next()
			name, err := p.expect(lexer.LowerName, "a name after 'as'")
			if err != nil {
				return nil, err
			}
			item = &syntax.AsPattern{Inner: item, Name: name.Text}
		}
		items = append(items, item)
		if p.peek().Type == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	if len(items) == 1 {
		return &syntax.ParenthesizedPattern{Inner: items[0]}, nil
	}
	if len(items) > 3 {
		return nil, p.errorf("tuple patterns have at most three elements")
	}
	return &syntax.TuplePattern{Items: items}, nil
}

func (p *parser) parseListPattern() (syntax.Pattern, error) {
	p.next() // '['
	pattern := &syntax.ListPattern{}
	if p.peek().Type != lexer.RBracket {
		for {
			item, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			pattern.Items = append(pattern.Items, item)
			if p.peek().Type == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
		return nil, err
	}
	return pattern, nil
}

func (p *parser) parseRecordPattern() (syntax.Pattern, error) {
	p.next() // '{'
	pattern := &syntax.RecordPattern{}
	if p.peek().Type != lexer.RBrace {
		for {
			name, err := p.expect(lexer.LowerName, "a field name")
			if err != nil {
				return nil, err
			}
			pattern.Fields = append(pattern.Fields, name.Text)
			if p.peek().Type == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return pattern, nil
}
