// Package core defines the compiler's intermediate representation. The
// front compiler lowers surface syntax into these expressions; the back
// emitter lowers them to kernel expressions.
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conifer-lang/conifer/internal/pine"
)

// Expr is the base interface for IR expressions.
type Expr interface {
	String() string
	coreExpr()
}

// Literal evaluates to a fixed kernel value.
type Literal struct {
	Value pine.Value
}

// ListExpr builds a list from its items.
type ListExpr struct {
	Items []Expr
}

// KernelApplication applies a named kernel function to one argument.
type KernelApplication struct {
	Name string
	Arg  Expr
}

// Conditional branches on a kernel boolean.
type Conditional struct {
	Cond    Expr
	IfTrue  Expr
	IfFalse Expr
}

// Ref references a binding in a parent scope: a let declaration, a
// parameter, a module declaration, or an import.
type Ref struct {
	Name string
}

// FunctionParamName binds one name inside a positional parameter, reached
// through a deconstruction path from the argument value.
type FunctionParamName struct {
	Name string
	Path []Deconstruction
}

// Function is an anonymous function. Each positional parameter holds the
// flat list of names its pattern binds.
type Function struct {
	Params [][]FunctionParamName
	Body   Expr
}

// Apply is a function application, kept distinct from Function so that
// full application can be emitted specially.
type Apply struct {
	Fn   Expr
	Args []Expr
}

// DeclBlock is a mutually recursive let block.
type DeclBlock struct {
	Declarations map[string]Expr
	Body         Expr
}

// PineFunctionApply applies a pre-built kernel subroutine to the value of
// Arg. The subroutine receives that value as its whole environment.
type PineFunctionApply struct {
	Function pine.Expr
	Arg      Expr
}

// StringTag is an opaque inspection label carried through emission.
type StringTag struct {
	Tag   string
	Inner Expr
}

func (*Literal) coreExpr()           {}
func (*ListExpr) coreExpr()          {}
func (*KernelApplication) coreExpr() {}
func (*Conditional) coreExpr()       {}
func (*Ref) coreExpr()               {}
func (*Function) coreExpr()          {}
func (*Apply) coreExpr()             {}
func (*DeclBlock) coreExpr()         {}
func (*PineFunctionApply) coreExpr() {}
func (*StringTag) coreExpr()         {}

func (e *Literal) String() string {
	return fmt.Sprintf("Literal(%s)", pine.DescribeValue(e.Value))
}

func (e *ListExpr) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e *KernelApplication) String() string {
	return fmt.Sprintf("Pine_kernel.%s %s", e.Name, e.Arg)
}

func (e *Conditional) String() string {
	return fmt.Sprintf("if %s then %s else %s", e.Cond, e.IfTrue, e.IfFalse)
}

func (e *Ref) String() string { return e.Name }

func (e *Function) String() string {
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		names := make([]string, len(p))
		for j, n := range p {
			names[j] = n.Name
		}
		params[i] = "(" + strings.Join(names, " ") + ")"
	}
	return fmt.Sprintf("\\%s -> %s", strings.Join(params, " "), e.Body)
}

func (e *Apply) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", e.Fn, strings.Join(parts, " "))
}

func (e *DeclBlock) String() string {
	names := DeclarationNames(e.Declarations)
	return fmt.Sprintf("let {%s} in %s", strings.Join(names, ", "), e.Body)
}

func (e *PineFunctionApply) String() string {
	return fmt.Sprintf("PineFunctionApply(%s)", e.Arg)
}

func (e *StringTag) String() string {
	return fmt.Sprintf("StringTag(%q, %s)", e.Tag, e.Inner)
}

// Deconstruction is one step of a projection path from a parameter or a
// case subject to a bound sub-value. Steps compose left to right.
type Deconstruction interface {
	deconstruction()
}

// ListItemDeconstruction selects the item at a fixed index.
type ListItemDeconstruction struct {
	Index int
}

// SkipItemsDeconstruction drops a fixed number of leading items.
type SkipItemsDeconstruction struct {
	Count int
}

// PineFunctionApplicationDeconstruction applies a pre-built kernel
// subroutine to the value, passing it as the whole environment.
type PineFunctionApplicationDeconstruction struct {
	Function pine.Expr
}

func (*ListItemDeconstruction) deconstruction()                {}
func (*SkipItemsDeconstruction) deconstruction()               {}
func (*PineFunctionApplicationDeconstruction) deconstruction() {}

// ApplyDeconstruction lowers one deconstruction step over a kernel
// expression.
func ApplyDeconstruction(d Deconstruction, expr pine.Expr) pine.Expr {
	switch step := d.(type) {
	case *ListItemDeconstruction:
		inner := expr
		if step.Index > 0 {
			inner = &pine.KernelAppExpr{
				Name: "skip",
				Arg: &pine.ListExpr{Items: []pine.Expr{
					&pine.LiteralExpr{Value: pine.ValueFromInt(int64(step.Index))},
					expr,
				}},
			}
		}
		return &pine.KernelAppExpr{Name: "head", Arg: inner}
	case *SkipItemsDeconstruction:
		return &pine.KernelAppExpr{
			Name: "skip",
			Arg: &pine.ListExpr{Items: []pine.Expr{
				&pine.LiteralExpr{Value: pine.ValueFromInt(int64(step.Count))},
				expr,
			}},
		}
	case *PineFunctionApplicationDeconstruction:
		return &pine.ParseAndEvalExpr{
			Encoded: &pine.LiteralExpr{Value: pine.EncodeExpr(step.Function)},
			Env:     expr,
		}
	}
	panic(fmt.Sprintf("ApplyDeconstruction: unknown step %T", d))
}

// ApplyDeconstructionPath lowers a whole path over a kernel expression.
func ApplyDeconstructionPath(path []Deconstruction, expr pine.Expr) pine.Expr {
	for _, step := range path {
		expr = ApplyDeconstruction(step, expr)
	}
	return expr
}

// ApplyDeconstructionToIR lowers one step at the IR level, used when the
// deconstructed value is still an IR expression.
func ApplyDeconstructionToIR(d Deconstruction, expr Expr) Expr {
	switch step := d.(type) {
	case *ListItemDeconstruction:
		inner := expr
		if step.Index > 0 {
			inner = &KernelApplication{
				Name: "skip",
				Arg: &ListExpr{Items: []Expr{
					&Literal{Value: pine.ValueFromInt(int64(step.Index))},
					expr,
				}},
			}
		}
		return &KernelApplication{Name: "head", Arg: inner}
	case *SkipItemsDeconstruction:
		return &KernelApplication{
			Name: "skip",
			Arg: &ListExpr{Items: []Expr{
				&Literal{Value: pine.ValueFromInt(int64(step.Count))},
				expr,
			}},
		}
	case *PineFunctionApplicationDeconstruction:
		return &PineFunctionApply{Function: step.Function, Arg: expr}
	}
	panic(fmt.Sprintf("ApplyDeconstructionToIR: unknown step %T", d))
}

// ApplyDeconstructionPathToIR lowers a whole path at the IR level.
func ApplyDeconstructionPathToIR(path []Deconstruction, expr Expr) Expr {
	for _, step := range path {
		expr = ApplyDeconstructionToIR(step, expr)
	}
	return expr
}

// DeclarationNames returns the keys of a declaration map in a stable order.
func DeclarationNames(decls map[string]Expr) []string {
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountApplications counts function-application sites, used to choose
// between the inline and shared-subject forms of a case expression.
func CountApplications(e Expr) int {
	count := 0
	WalkExpr(e, func(sub Expr) {
		if _, ok := sub.(*Apply); ok {
			count++
		}
	})
	return count
}

// WalkExpr visits every node of an expression tree, parents first.
func WalkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch expr := e.(type) {
	case *ListExpr:
		for _, item := range expr.Items {
			WalkExpr(item, visit)
		}
	case *KernelApplication:
		WalkExpr(expr.Arg, visit)
	case *Conditional:
		WalkExpr(expr.Cond, visit)
		WalkExpr(expr.IfTrue, visit)
		WalkExpr(expr.IfFalse, visit)
	case *Function:
		WalkExpr(expr.Body, visit)
	case *Apply:
		WalkExpr(expr.Fn, visit)
		for _, arg := range expr.Args {
			WalkExpr(arg, visit)
		}
	case *DeclBlock:
		for _, name := range DeclarationNames(expr.Declarations) {
			WalkExpr(expr.Declarations[name], visit)
		}
		WalkExpr(expr.Body, visit)
	case *PineFunctionApply:
		WalkExpr(expr.Arg, visit)
	case *StringTag:
		WalkExpr(expr.Inner, visit)
	}
}
