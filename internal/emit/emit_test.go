package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/pine"
)

func intLit(n int64) core.Expr {
	return &core.Literal{Value: pine.ValueFromInt(n)}
}

func kernelAdd(a, b core.Expr) core.Expr {
	return &core.KernelApplication{
		Name: "int_add",
		Arg:  &core.ListExpr{Items: []core.Expr{a, b}},
	}
}

// applyValue drives a compiled function value through the trampoline,
// the way the runtime applies dynamic functions.
func applyValue(t *testing.T, fn pine.Value, args ...pine.Value) pine.Value {
	t.Helper()
	argExprs := make([]pine.Expr, len(args))
	for i, a := range args {
		argExprs[i] = lit(a)
	}
	result, err := pine.Evaluate(pine.EmptyEvalContext(), callTrampoline(lit(fn), argExprs))
	require.NoError(t, err)
	return result
}

func TestEmitSimpleFunction(t *testing.T) {
	// f x = x + 1
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body:   kernelAdd(&core.Ref{Name: "x"}, intLit(1)),
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["f"], pine.ValueFromInt(41))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(42), result))
}

func TestEmittedFunctionShape(t *testing.T) {
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}, {{Name: "y"}}},
			Body:   kernelAdd(&core.Ref{Name: "x"}, &core.Ref{Name: "y"}),
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.NoError(t, err)

	record, ok := parseFunctionRecordValue(compiled["f"])
	require.True(t, ok, "every emitted function is a Function record")
	assert.Equal(t, 2, record.Arity)
	assert.Empty(t, record.Collected)

	_, err = pine.DecodeExpr(record.Inner)
	assert.NoError(t, err, "the inner expression is encoded")
}

func TestPartialApplicationCollectsArguments(t *testing.T) {
	decls := map[string]core.Expr{
		"sub": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}, {{Name: "y"}}},
			Body: &core.KernelApplication{
				Name: "int_sub",
				Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "x"}, &core.Ref{Name: "y"}}},
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"sub"}, nil)
	require.NoError(t, err)

	partial := applyValue(t, compiled["sub"], pine.ValueFromInt(10))
	record, ok := parseFunctionRecordValue(partial)
	require.True(t, ok, "partial application yields a Function record")
	assert.Equal(t, 2, record.Arity)
	require.Len(t, record.Collected, 1)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(10), record.Collected[0]))

	full := applyValue(t, partial, pine.ValueFromInt(3))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(7), full))
}

func TestRecursionThroughEnvironment(t *testing.T) {
	// count n = if n == 0 then 0 else count (n - 1) + 1  (written directly in IR)
	decls := map[string]core.Expr{
		"count": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "n"}}},
			Body: &core.Conditional{
				Cond: &core.KernelApplication{
					Name: "equal",
					Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "n"}, intLit(0)}},
				},
				IfTrue: intLit(0),
				IfFalse: kernelAdd(
					&core.Apply{
						Fn: &core.Ref{Name: "count"},
						Args: []core.Expr{&core.KernelApplication{
							Name: "int_sub",
							Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "n"}, intLit(1)}},
						}},
					},
					intLit(1),
				),
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"count"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["count"], pine.ValueFromInt(5))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(5), result))
}

func TestMutualRecursionSharesOneDomain(t *testing.T) {
	// isEven n = if n == 0 then True else isOdd (n - 1)
	// isOdd n = if n == 0 then False else isEven (n - 1)
	subOne := func(name string) core.Expr {
		return &core.KernelApplication{
			Name: "int_sub",
			Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: name}, intLit(1)}},
		}
	}
	build := func(onZero pine.Value, callee string) core.Expr {
		return &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "n"}}},
			Body: &core.Conditional{
				Cond: &core.KernelApplication{
					Name: "equal",
					Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "n"}, intLit(0)}},
				},
				IfTrue:  &core.Literal{Value: onZero},
				IfFalse: &core.Apply{Fn: &core.Ref{Name: callee}, Args: []core.Expr{subOne("n")}},
			},
		}
	}
	decls := map[string]core.Expr{
		"isEven": build(pine.TrueValue, "isOdd"),
		"isOdd":  build(pine.FalseValue, "isEven"),
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"isEven"}, nil)
	require.NoError(t, err)
	require.Contains(t, compiled, "isOdd", "transitively needed declarations are emitted")

	result := applyValue(t, compiled["isEven"], pine.ValueFromInt(7))
	assert.True(t, pine.ValuesEqual(pine.FalseValue, result))

	result = applyValue(t, compiled["isEven"], pine.ValueFromInt(8))
	assert.True(t, pine.ValuesEqual(pine.TrueValue, result))
}

func TestValueDeclarationIsEvaluatedAtCompileTime(t *testing.T) {
	decls := map[string]core.Expr{
		"answer": kernelAdd(intLit(40), intLit(2)),
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body:   kernelAdd(&core.Ref{Name: "x"}, &core.Ref{Name: "answer"}),
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f", "answer"}, nil)
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(42), compiled["answer"]))

	result := applyValue(t, compiled["f"], pine.ValueFromInt(8))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(50), result))
}

func TestSelfRecursiveValueIsRejected(t *testing.T) {
	decls := map[string]core.Expr{
		"loop": &core.Ref{Name: "loop"},
	}
	_, err := EmitModuleDeclarations(decls, []string{"loop"}, nil)
	assert.Error(t, err)
}

func TestUnresolvedReferenceIsReported(t *testing.T) {
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body:   &core.Ref{Name: "missing"},
		},
	}
	_, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnresolvedReference")
}

func TestDeclBlockWithClosureCapture(t *testing.T) {
	// f x = let helper y = y + x in helper 10
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body: &core.DeclBlock{
				Declarations: map[string]core.Expr{
					"helper": &core.Function{
						Params: [][]core.FunctionParamName{{{Name: "y"}}},
						Body:   kernelAdd(&core.Ref{Name: "y"}, &core.Ref{Name: "x"}),
					},
				},
				Body: &core.Apply{Fn: &core.Ref{Name: "helper"}, Args: []core.Expr{intLit(10)}},
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["f"], pine.ValueFromInt(32))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(42), result))
}

func TestDeclBlockRecursiveHelper(t *testing.T) {
	// f n = let go acc k = if k == 0 then acc else go (acc + k) (k - 1)
	//       in go 0 n
	goBody := &core.Conditional{
		Cond: &core.KernelApplication{
			Name: "equal",
			Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "k"}, intLit(0)}},
		},
		IfTrue: &core.Ref{Name: "acc"},
		IfFalse: &core.Apply{
			Fn: &core.Ref{Name: "go"},
			Args: []core.Expr{
				kernelAdd(&core.Ref{Name: "acc"}, &core.Ref{Name: "k"}),
				&core.KernelApplication{
					Name: "int_sub",
					Arg:  &core.ListExpr{Items: []core.Expr{&core.Ref{Name: "k"}, intLit(1)}},
				},
			},
		},
	}
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "n"}}},
			Body: &core.DeclBlock{
				Declarations: map[string]core.Expr{
					"go": &core.Function{
						Params: [][]core.FunctionParamName{{{Name: "acc"}}, {{Name: "k"}}},
						Body:   goBody,
					},
				},
				Body: &core.Apply{
					Fn:   &core.Ref{Name: "go"},
					Args: []core.Expr{intLit(0), &core.Ref{Name: "n"}},
				},
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["f"], pine.ValueFromInt(4))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(10), result))
}

func TestLetValueCaptureEvaluatesOncePerCall(t *testing.T) {
	// f x = let doubled = x + x in doubled + doubled
	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body: &core.DeclBlock{
				Declarations: map[string]core.Expr{
					"doubled": kernelAdd(&core.Ref{Name: "x"}, &core.Ref{Name: "x"}),
				},
				Body: kernelAdd(&core.Ref{Name: "doubled"}, &core.Ref{Name: "doubled"}),
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["f"], pine.ValueFromInt(3))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(12), result))
}

func TestClosureEscapesDefiningScope(t *testing.T) {
	// makeAdder x = \y -> x + y; the closure must keep x after makeAdder
	// returns.
	decls := map[string]core.Expr{
		"makeAdder": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body: &core.Function{
				Params: [][]core.FunctionParamName{{{Name: "y"}}},
				Body:   kernelAdd(&core.Ref{Name: "x"}, &core.Ref{Name: "y"}),
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"makeAdder"}, nil)
	require.NoError(t, err)

	adder := applyValue(t, compiled["makeAdder"], pine.ValueFromInt(40))
	_, ok := parseFunctionRecordValue(adder)
	require.True(t, ok)

	result := applyValue(t, adder, pine.ValueFromInt(2))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(42), result))
}

func TestOverApplicationThroughTrampoline(t *testing.T) {
	// make x = \y -> y, applied to two arguments at once.
	decls := map[string]core.Expr{
		"make": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body: &core.Function{
				Params: [][]core.FunctionParamName{{{Name: "y"}}},
				Body:   &core.Ref{Name: "y"},
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"make"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["make"], pine.ValueFromInt(1), pine.ValueFromInt(99))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(99), result))
}

func TestImportedFunctionFullApplication(t *testing.T) {
	base := map[string]core.Expr{
		"inc": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body:   kernelAdd(&core.Ref{Name: "x"}, intLit(1)),
		},
	}
	baseCompiled, err := EmitModuleDeclarations(base, []string{"inc"}, nil)
	require.NoError(t, err)

	decls := map[string]core.Expr{
		"f": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body: &core.Apply{
				Fn:   &core.Ref{Name: "M.inc"},
				Args: []core.Expr{&core.Ref{Name: "x"}},
			},
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"f"},
		map[string]pine.Value{"M.inc": baseCompiled["inc"]})
	require.NoError(t, err)

	result := applyValue(t, compiled["f"], pine.ValueFromInt(41))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(42), result))
}

func TestHigherOrderArgumentDispatch(t *testing.T) {
	// apply f x = f x, called with a compiled unary function.
	decls := map[string]core.Expr{
		"apply": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "fn"}}, {{Name: "x"}}},
			Body:   &core.Apply{Fn: &core.Ref{Name: "fn"}, Args: []core.Expr{&core.Ref{Name: "x"}}},
		},
		"inc": &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "x"}}},
			Body:   kernelAdd(&core.Ref{Name: "x"}, intLit(1)),
		},
	}
	compiled, err := EmitModuleDeclarations(decls, []string{"apply", "inc"}, nil)
	require.NoError(t, err)

	result := applyValue(t, compiled["apply"], compiled["inc"], pine.ValueFromInt(9))
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(10), result))
}
