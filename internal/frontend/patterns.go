package frontend

import (
	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// PatternBinding is one name bound by a pattern, with its projection
// path from the matched value.
type PatternBinding struct {
	Name string
	Path []core.Deconstruction
}

// patternResult is the contract of pattern compilation: conditions the
// subject must satisfy, and the bindings the pattern introduces.
type patternResult struct {
	conditions []core.Expr
	bindings   []PatternBinding
}

func unsupportedPattern(kind string) error {
	return diag.New(diag.CodeUnsupported, "frontend", "unsupported pattern: %s", kind)
}

// compilePattern compiles a pattern against a subject expression. The
// conditions reference the subject through its deconstruction paths; the
// bindings carry paths only, so callers can inline or re-root them.
func (c *Compiler) compilePattern(stack *CompilationStack, pat syntax.Pattern, subject core.Expr) (*patternResult, error) {
	result := &patternResult{}
	if err := c.compilePatternAt(stack, pat, subject, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Compiler) compilePatternAt(
	stack *CompilationStack,
	pat syntax.Pattern,
	subject core.Expr,
	path []core.Deconstruction,
	result *patternResult,
) error {
	at := func() core.Expr {
		return core.ApplyDeconstructionPathToIR(path, subject)
	}
	equalTo := func(v pine.Value) core.Expr {
		return &core.KernelApplication{
			Name: "equal",
			Arg:  &core.ListExpr{Items: []core.Expr{at(), &core.Literal{Value: v}}},
		}
	}

	switch p := pat.(type) {
	case *syntax.AllPattern, *syntax.UnitPattern:
		return nil

	case *syntax.VarPattern:
		result.bindings = append(result.bindings, PatternBinding{Name: p.Name, Path: clonePath(path)})
		return nil

	case *syntax.AsPattern:
		if err := c.compilePatternAt(stack, p.Inner, subject, path, result); err != nil {
			return err
		}
		result.bindings = append(result.bindings, PatternBinding{Name: p.Name, Path: clonePath(path)})
		return nil

	case *syntax.ParenthesizedPattern:
		return c.compilePatternAt(stack, p.Inner, subject, path, result)

	case *syntax.CharPattern:
		result.conditions = append(result.conditions, equalTo(pine.ValueFromChar(p.Value)))
		return nil

	case *syntax.IntPattern:
		result.conditions = append(result.conditions, equalTo(pine.ValueFromInt(p.Value)))
		return nil

	case *syntax.StringPattern:
		result.conditions = append(result.conditions, equalTo(stringValue(p.Value)))
		return nil

	case *syntax.HexPattern:
		return unsupportedPattern("hexadecimal literal")

	case *syntax.FloatPattern:
		return unsupportedPattern("floating-point literal")

	case *syntax.ListPattern:
		if len(p.Items) == 0 {
			result.conditions = append(result.conditions, equalTo(pine.EmptyList))
			return nil
		}
		return c.compileSequencePattern(stack, p.Items, subject, path, result)

	case *syntax.TuplePattern:
		return c.compileSequencePattern(stack, p.Items, subject, path, result)

	case *syntax.UnConsPattern:
		// A list differs from itself with one item dropped exactly when
		// it is non-empty.
		result.conditions = append(result.conditions, &core.KernelApplication{
			Name: "negate",
			Arg: &core.KernelApplication{
				Name: "equal",
				Arg: &core.ListExpr{Items: []core.Expr{
					at(),
					&core.KernelApplication{
						Name: "skip",
						Arg: &core.ListExpr{Items: []core.Expr{
							&core.Literal{Value: pine.ValueFromInt(1)},
							at(),
						}},
					},
				}},
			},
		})
		if err := c.compilePatternAt(stack, p.Head, subject,
			append(clonePath(path), &core.ListItemDeconstruction{Index: 0}), result); err != nil {
			return err
		}
		return c.compilePatternAt(stack, p.Tail, subject,
			append(clonePath(path), &core.SkipItemsDeconstruction{Count: 1}), result)

	case *syntax.RecordPattern:
		for _, field := range p.Fields {
			result.bindings = append(result.bindings, PatternBinding{
				Name: field,
				Path: append(clonePath(path), &core.PineFunctionApplicationDeconstruction{
					Function: buildRecordFieldAccessFunction(field),
				}),
			})
		}
		return nil

	case *syntax.NamedPattern:
		return c.compileNamedPattern(stack, p, subject, path, result)
	}
	return diag.New(diag.CodeInvariantViolation, "frontend", "unknown pattern %T", pat)
}

// compileSequencePattern matches lists and tuples: a length check plus
// one sub-pattern per element.
func (c *Compiler) compileSequencePattern(
	stack *CompilationStack,
	items []syntax.Pattern,
	subject core.Expr,
	path []core.Deconstruction,
	result *patternResult,
) error {
	at := core.ApplyDeconstructionPathToIR(path, subject)
	result.conditions = append(result.conditions, &core.KernelApplication{
		Name: "equal",
		Arg: &core.ListExpr{Items: []core.Expr{
			&core.KernelApplication{Name: "length", Arg: at},
			&core.Literal{Value: pine.ValueFromInt(int64(len(items)))},
		}},
	})
	for i, item := range items {
		itemPath := append(clonePath(path), &core.ListItemDeconstruction{Index: i})
		if err := c.compilePatternAt(stack, item, subject, itemPath, result); err != nil {
			return err
		}
	}
	return nil
}

// compileNamedPattern matches a choice-type tag. A zero-argument tag
// with a known constructor value compares the whole value, which also
// covers the boolean override; otherwise the tag name is compared
// against the value's head, so no import resolution is needed.
func (c *Compiler) compileNamedPattern(
	stack *CompilationStack,
	p *syntax.NamedPattern,
	subject core.Expr,
	path []core.Deconstruction,
	result *patternResult,
) error {
	at := core.ApplyDeconstructionPathToIR(path, subject)
	if len(p.Args) == 0 {
		if value, ok := c.resolveTagValue(stack, p.ModuleName, p.Name); ok {
			result.conditions = append(result.conditions, &core.KernelApplication{
				Name: "equal",
				Arg:  &core.ListExpr{Items: []core.Expr{at, &core.Literal{Value: value}}},
			})
			return nil
		}
	}
	result.conditions = append(result.conditions, &core.KernelApplication{
		Name: "equal",
		Arg: &core.ListExpr{Items: []core.Expr{
			&core.Literal{Value: pine.ValueFromString(p.Name)},
			&core.KernelApplication{Name: "head", Arg: at},
		}},
	})
	for i, arg := range p.Args {
		argPath := append(clonePath(path),
			&core.ListItemDeconstruction{Index: 1},
			&core.ListItemDeconstruction{Index: i})
		if err := c.compilePatternAt(stack, arg, subject, argPath, result); err != nil {
			return err
		}
	}
	return nil
}

// resolveTagValue resolves a zero-arity tag pattern to its constructed
// value when the constructor is in scope.
func (c *Compiler) resolveTagValue(stack *CompilationStack, moduleName []string, name string) (pine.Value, bool) {
	expr, err := c.resolveName(stack, moduleName, name)
	if err != nil {
		return nil, false
	}
	literal, ok := expr.(*core.Literal)
	if !ok {
		return nil, false
	}
	return literal.Value, true
}

func clonePath(path []core.Deconstruction) []core.Deconstruction {
	return append([]core.Deconstruction{}, path...)
}

// paramBindings reduces a parameter pattern to its flat binding list;
// parameter patterns contribute no conditions.
func (c *Compiler) paramBindings(stack *CompilationStack, pat syntax.Pattern) ([]core.FunctionParamName, error) {
	result, err := c.compilePattern(stack, pat, &core.Ref{Name: "<param>"})
	if err != nil {
		return nil, err
	}
	out := make([]core.FunctionParamName, len(result.bindings))
	for i, b := range result.bindings {
		out[i] = core.FunctionParamName{Name: b.Name, Path: b.Path}
	}
	return out, nil
}
