package emit

import (
	"github.com/conifer-lang/conifer/internal/pine"
)

// Reduce applies local peephole reductions to an emitted expression:
// list literals of literals collapse, kernel applications and
// conditionals over literal operands fold. ParseAndEval is deliberately
// left alone here; the calling conventions already elide the trampoline
// wherever the callee is statically known.
func Reduce(e pine.Expr) pine.Expr {
	switch expr := e.(type) {
	case *pine.ListExpr:
		items := make([]pine.Expr, len(expr.Items))
		allLiteral := true
		for i, item := range expr.Items {
			items[i] = Reduce(item)
			if _, ok := items[i].(*pine.LiteralExpr); !ok {
				allLiteral = false
			}
		}
		if allLiteral {
			values := make([]pine.Value, len(items))
			for i, item := range items {
				values[i] = item.(*pine.LiteralExpr).Value
			}
			return lit(&pine.ListValue{Items: values})
		}
		return &pine.ListExpr{Items: items}

	case *pine.KernelAppExpr:
		arg := Reduce(expr.Arg)
		reduced := &pine.KernelAppExpr{Name: expr.Name, Arg: arg}
		if argLit, ok := arg.(*pine.LiteralExpr); ok {
			folded, err := pine.Evaluate(pine.EmptyList, &pine.KernelAppExpr{
				Name: expr.Name,
				Arg:  lit(argLit.Value),
			})
			if err == nil {
				return lit(folded)
			}
		}
		return reduced

	case *pine.ConditionalExpr:
		cond := Reduce(expr.Cond)
		if condLit, ok := cond.(*pine.LiteralExpr); ok {
			if pine.ValuesEqual(condLit.Value, pine.TrueValue) {
				return Reduce(expr.IfTrue)
			}
			if pine.ValuesEqual(condLit.Value, pine.FalseValue) {
				return Reduce(expr.IfFalse)
			}
		}
		return &pine.ConditionalExpr{
			Cond:    cond,
			IfTrue:  Reduce(expr.IfTrue),
			IfFalse: Reduce(expr.IfFalse),
		}

	case *pine.StringTagExpr:
		return &pine.StringTagExpr{Tag: expr.Tag, Inner: Reduce(expr.Inner)}

	case *pine.ParseAndEvalExpr:
		return &pine.ParseAndEvalExpr{
			Encoded: Reduce(expr.Encoded),
			Env:     Reduce(expr.Env),
		}
	}
	return e
}
