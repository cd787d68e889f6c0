package frontend

import (
	"github.com/conifer-lang/conifer/internal/syntax"
)

// operatorInfo fixes the precedence and associativity of the standard
// operators. The parser builds operator chains in plain source order;
// Reassociate rewrites them into the canonical tree.
type operatorInfo struct {
	Priority   int
	RightAssoc bool
}

var operatorTable = map[string]operatorInfo{
	"<|": {Priority: 0, RightAssoc: true},
	"|>": {Priority: 0},
	"||": {Priority: 2, RightAssoc: true},
	"&&": {Priority: 3, RightAssoc: true},
	"==": {Priority: 4},
	"/=": {Priority: 4},
	"<":  {Priority: 4},
	">":  {Priority: 4},
	"<=": {Priority: 4},
	">=": {Priority: 4},
	"++": {Priority: 5, RightAssoc: true},
	"::": {Priority: 5, RightAssoc: true},
	"+":  {Priority: 6},
	"-":  {Priority: 6},
	"*":  {Priority: 7},
	"//": {Priority: 7},
	"/":  {Priority: 7},
	"^":  {Priority: 8, RightAssoc: true},
	"<<": {Priority: 9, RightAssoc: true},
	">>": {Priority: 9},
}

func operatorLookup(op string) operatorInfo {
	if info, ok := operatorTable[op]; ok {
		return info
	}
	// Unknown operators bind tightest and resolve (or fail) by name
	// later.
	return operatorInfo{Priority: 9}
}

// Reassociate rewrites an operator application until the tree respects
// the priority table and, within a priority level, the declared
// associativity. The rewrite flattens the chain into source order and
// rebuilds it by precedence climbing, which makes it a fix point:
// reassociating twice gives the same tree.
func Reassociate(expr *syntax.OperatorApplication) syntax.Expr {
	operands, operators := flattenOperatorChain(expr)
	b := &opChainBuilder{operands: operands, operators: operators}
	return b.build(0)
}

// flattenOperatorChain lists the operands and operators of a chain in
// source order. Parenthesized expressions are opaque: they were grouped
// explicitly.
func flattenOperatorChain(expr syntax.Expr) ([]syntax.Expr, []string) {
	if op, ok := expr.(*syntax.OperatorApplication); ok {
		leftOperands, leftOps := flattenOperatorChain(op.Left)
		rightOperands, rightOps := flattenOperatorChain(op.Right)
		operands := append(leftOperands, rightOperands...)
		operators := append(append(leftOps, op.Operator), rightOps...)
		return operands, operators
	}
	return []syntax.Expr{expr}, nil
}

type opChainBuilder struct {
	operands  []syntax.Expr
	operators []string
	pos       int // index of the next operator
}

// build assembles the canonical tree for all operators with priority at
// least minPriority.
func (b *opChainBuilder) build(minPriority int) syntax.Expr {
	left := b.operands[b.pos]
	for b.pos < len(b.operators) {
		op := b.operators[b.pos]
		info := operatorLookup(op)
		if info.Priority < minPriority {
			break
		}
		b.pos++
		nextMin := info.Priority + 1
		if info.RightAssoc {
			nextMin = info.Priority
		}
		right := b.build(nextMin)
		r := syntax.Range{
			Start: left.ExprRange().Start,
			End:   right.ExprRange().End,
		}
		left = &syntax.OperatorApplication{
			Operator: op, Left: left, Right: right,
			ExprBase: syntax.Base(r),
		}
	}
	return left
}
