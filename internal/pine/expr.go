package pine

import (
	"fmt"
	"strings"
)

// Expr is the kernel expression language. Expressions are closed tagged
// unions; the codec below round-trips them through values so that programs
// can carry and re-evaluate their own encoded form.
type Expr interface {
	exprNode()
}

// LiteralExpr evaluates to its value.
type LiteralExpr struct {
	Value Value
}

// ListExpr evaluates its items in order into a list value.
type ListExpr struct {
	Items []Expr
}

// KernelAppExpr applies a named kernel function to the value of Arg.
type KernelAppExpr struct {
	Name string
	Arg  Expr
}

// ConditionalExpr branches on a kernel boolean.
type ConditionalExpr struct {
	Cond    Expr
	IfTrue  Expr
	IfFalse Expr
}

// EnvironmentExpr evaluates to the current environment value.
type EnvironmentExpr struct{}

// ParseAndEvalExpr evaluates Encoded to a value, decodes that value back
// into an expression, and evaluates it under the value of Env. This is the
// sole reflection mechanism and the substrate for recursion.
type ParseAndEvalExpr struct {
	Encoded Expr
	Env     Expr
}

// StringTagExpr is an opaque inspection label; the evaluator preserves it
// but ignores it semantically.
type StringTagExpr struct {
	Tag   string
	Inner Expr
}

func (*LiteralExpr) exprNode()      {}
func (*ListExpr) exprNode()         {}
func (*KernelAppExpr) exprNode()    {}
func (*ConditionalExpr) exprNode()  {}
func (*EnvironmentExpr) exprNode()  {}
func (*ParseAndEvalExpr) exprNode() {}
func (*StringTagExpr) exprNode()    {}

// Expression encoding tags. EncodeExpr produces [tagBlob, [operands...]]
// for every variant, so the decoder can dispatch on the first element.
const (
	tagLiteral      = "Literal"
	tagList         = "List"
	tagKernelApp    = "KernelApplication"
	tagConditional  = "Conditional"
	tagEnvironment  = "Environment"
	tagParseAndEval = "ParseAndEval"
	tagStringTag    = "StringTag"
)

// EncodeExpr serializes an expression as a value.
func EncodeExpr(e Expr) Value {
	switch expr := e.(type) {
	case *LiteralExpr:
		return tagged(tagLiteral, expr.Value)
	case *ListExpr:
		items := make([]Value, len(expr.Items))
		for i, item := range expr.Items {
			items[i] = EncodeExpr(item)
		}
		return tagged(tagList, &ListValue{Items: items})
	case *KernelAppExpr:
		return tagged(tagKernelApp, ValueFromString(expr.Name), EncodeExpr(expr.Arg))
	case *ConditionalExpr:
		return tagged(tagConditional,
			EncodeExpr(expr.Cond), EncodeExpr(expr.IfTrue), EncodeExpr(expr.IfFalse))
	case *EnvironmentExpr:
		return tagged(tagEnvironment)
	case *ParseAndEvalExpr:
		return tagged(tagParseAndEval, EncodeExpr(expr.Encoded), EncodeExpr(expr.Env))
	case *StringTagExpr:
		return tagged(tagStringTag, ValueFromString(expr.Tag), EncodeExpr(expr.Inner))
	}
	panic(fmt.Sprintf("EncodeExpr: unknown expression type %T", e))
}

func tagged(tag string, operands ...Value) Value {
	return &ListValue{Items: []Value{
		ValueFromString(tag),
		&ListValue{Items: operands},
	}}
}

// DecodeExpr parses a value produced by EncodeExpr back into an expression.
func DecodeExpr(v Value) (Expr, error) {
	list, ok := v.(*ListValue)
	if !ok {
		return nil, fmt.Errorf("expected a tagged list, got %s", DescribeValue(v))
	}
	if len(list.Items) != 2 {
		return nil, fmt.Errorf("expected a two-element tagged list, got %d elements", len(list.Items))
	}
	tag, err := StringFromValue(list.Items[0])
	if err != nil {
		return nil, fmt.Errorf("invalid expression tag: %w", err)
	}
	operands, ok := ListItems(list.Items[1])
	if !ok {
		return nil, fmt.Errorf("%s: operands must be a list", tag)
	}
	switch tag {
	case tagLiteral:
		if len(operands) != 1 {
			return nil, fmt.Errorf("Literal: expected 1 operand, got %d", len(operands))
		}
		return &LiteralExpr{Value: operands[0]}, nil

	case tagList:
		if len(operands) != 1 {
			return nil, fmt.Errorf("List: expected 1 operand, got %d", len(operands))
		}
		encItems, ok := ListItems(operands[0])
		if !ok {
			return nil, fmt.Errorf("List: items operand must be a list")
		}
		var items []Expr
		if len(encItems) > 0 {
			items = make([]Expr, len(encItems))
		}
		for i, enc := range encItems {
			item, err := DecodeExpr(enc)
			if err != nil {
				return nil, fmt.Errorf("List item %d: %w", i, err)
			}
			items[i] = item
		}
		return &ListExpr{Items: items}, nil

	case tagKernelApp:
		if len(operands) != 2 {
			return nil, fmt.Errorf("KernelApplication: expected 2 operands, got %d", len(operands))
		}
		name, err := StringFromValue(operands[0])
		if err != nil {
			return nil, fmt.Errorf("KernelApplication name: %w", err)
		}
		arg, err := DecodeExpr(operands[1])
		if err != nil {
			return nil, fmt.Errorf("KernelApplication %s argument: %w", name, err)
		}
		return &KernelAppExpr{Name: name, Arg: arg}, nil

	case tagConditional:
		if len(operands) != 3 {
			return nil, fmt.Errorf("Conditional: expected 3 operands, got %d", len(operands))
		}
		parts := make([]Expr, 3)
		for i, enc := range operands {
			part, err := DecodeExpr(enc)
			if err != nil {
				return nil, fmt.Errorf("Conditional operand %d: %w", i, err)
			}
			parts[i] = part
		}
		return &ConditionalExpr{Cond: parts[0], IfTrue: parts[1], IfFalse: parts[2]}, nil

	case tagEnvironment:
		return &EnvironmentExpr{}, nil

	case tagParseAndEval:
		if len(operands) != 2 {
			return nil, fmt.Errorf("ParseAndEval: expected 2 operands, got %d", len(operands))
		}
		encoded, err := DecodeExpr(operands[0])
		if err != nil {
			return nil, fmt.Errorf("ParseAndEval expression: %w", err)
		}
		env, err := DecodeExpr(operands[1])
		if err != nil {
			return nil, fmt.Errorf("ParseAndEval environment: %w", err)
		}
		return &ParseAndEvalExpr{Encoded: encoded, Env: env}, nil

	case tagStringTag:
		if len(operands) != 2 {
			return nil, fmt.Errorf("StringTag: expected 2 operands, got %d", len(operands))
		}
		label, err := StringFromValue(operands[0])
		if err != nil {
			return nil, fmt.Errorf("StringTag label: %w", err)
		}
		inner, err := DecodeExpr(operands[1])
		if err != nil {
			return nil, fmt.Errorf("StringTag %s: %w", label, err)
		}
		return &StringTagExpr{Tag: label, Inner: inner}, nil
	}
	return nil, fmt.Errorf("unknown expression tag %q", tag)
}

// DescribeExpr renders a compact single-line form for diagnostics.
func DescribeExpr(e Expr) string {
	switch expr := e.(type) {
	case *LiteralExpr:
		return fmt.Sprintf("Literal(%s)", DescribeValue(expr.Value))
	case *ListExpr:
		parts := make([]string, len(expr.Items))
		for i, item := range expr.Items {
			parts[i] = DescribeExpr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *KernelAppExpr:
		return fmt.Sprintf("%s(%s)", expr.Name, DescribeExpr(expr.Arg))
	case *ConditionalExpr:
		return fmt.Sprintf("if %s then %s else %s",
			DescribeExpr(expr.Cond), DescribeExpr(expr.IfTrue), DescribeExpr(expr.IfFalse))
	case *EnvironmentExpr:
		return "Environment"
	case *ParseAndEvalExpr:
		return fmt.Sprintf("ParseAndEval(%s, %s)", DescribeExpr(expr.Encoded), DescribeExpr(expr.Env))
	case *StringTagExpr:
		return fmt.Sprintf("StringTag(%q, %s)", expr.Tag, DescribeExpr(expr.Inner))
	}
	return fmt.Sprintf("%T", e)
}
