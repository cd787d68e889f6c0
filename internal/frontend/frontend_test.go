package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

func emptyStack() *CompilationStack {
	return &CompilationStack{
		ModuleAliases:          map[string]string{},
		AvailableModules:       nil,
		ImportedModules:        map[string]bool{},
		InlineableDeclarations: map[string]Inlineable{},
		ImportedFunctions:      map[string]string{},
		LocalDeclarations:      map[string]bool{},
		LocalBindings:          map[string]bool{},
	}
}

func TestApplyTagConstructorExactArity(t *testing.T) {
	expr, err := applyTagConstructor(&TagConstructor{TagName: "Just", Arity: 1},
		[]core.Expr{&core.Literal{Value: pine.ValueFromInt(7)}})
	require.NoError(t, err)
	list, ok := expr.(*core.ListExpr)
	require.True(t, ok)
	require.Len(t, list.Items, 2)
	tag := list.Items[0].(*core.Literal)
	assert.True(t, pine.ValuesEqual(pine.ValueFromString("Just"), tag.Value))
}

func TestApplyTagConstructorUnderApplication(t *testing.T) {
	expr, err := applyTagConstructor(&TagConstructor{TagName: "Pair", Arity: 2},
		[]core.Expr{&core.Literal{Value: pine.ValueFromInt(1)}})
	require.NoError(t, err)
	fn, ok := expr.(*core.Function)
	require.True(t, ok, "under-application builds a closure")
	assert.Len(t, fn.Params, 1)
}

func TestApplyTagConstructorZeroArity(t *testing.T) {
	expr, err := applyTagConstructor(&TagConstructor{TagName: "Nothing", Arity: 0}, nil)
	require.NoError(t, err)
	literal, ok := expr.(*core.Literal)
	require.True(t, ok)
	assert.True(t, pine.ValuesEqual(
		pine.List(pine.ValueFromString("Nothing"), pine.List()),
		literal.Value))
}

func TestRecordConstructorSortsFields(t *testing.T) {
	expr, err := applyRecordConstructor(&RecordConstructor{Fields: []string{"b", "a"}},
		[]core.Expr{
			&core.Literal{Value: pine.ValueFromInt(2)},
			&core.Literal{Value: pine.ValueFromInt(1)},
		})
	require.NoError(t, err)
	record := expr.(*core.ListExpr)
	payload := record.Items[1].(*core.ListExpr)
	pairs := payload.Items[0].(*core.ListExpr)
	require.Len(t, pairs.Items, 2)

	firstPair := pairs.Items[0].(*core.ListExpr)
	name := firstPair.Items[0].(*core.Literal)
	assert.True(t, pine.ValuesEqual(pine.ValueFromString("a"), name.Value),
		"fields are ordered lexicographically regardless of declaration order")
	value := firstPair.Items[1].(*core.Literal)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(1), value.Value))
}

func compileTestPattern(t *testing.T, c *Compiler, pat syntax.Pattern) *patternResult {
	t.Helper()
	result, err := c.compilePattern(emptyStack(), pat, &core.Ref{Name: "subject"})
	require.NoError(t, err)
	return result
}

func TestCompileVarPattern(t *testing.T) {
	c := NewCompiler()
	result := compileTestPattern(t, c, &syntax.VarPattern{Name: "x"})
	assert.Empty(t, result.conditions)
	require.Len(t, result.bindings, 1)
	assert.Equal(t, "x", result.bindings[0].Name)
	assert.Empty(t, result.bindings[0].Path)
}

func TestCompileEmptyListPattern(t *testing.T) {
	c := NewCompiler()
	result := compileTestPattern(t, c, &syntax.ListPattern{})
	require.Len(t, result.conditions, 1)
	assert.Empty(t, result.bindings)
}

func TestCompileUnConsPattern(t *testing.T) {
	c := NewCompiler()
	result := compileTestPattern(t, c, &syntax.UnConsPattern{
		Head: &syntax.VarPattern{Name: "x"},
		Tail: &syntax.VarPattern{Name: "rest"},
	})
	require.Len(t, result.conditions, 1)
	neg, ok := result.conditions[0].(*core.KernelApplication)
	require.True(t, ok)
	assert.Equal(t, "negate", neg.Name)

	require.Len(t, result.bindings, 2)
	assert.Equal(t, "x", result.bindings[0].Name)
	require.Len(t, result.bindings[0].Path, 1)
	_, isItem := result.bindings[0].Path[0].(*core.ListItemDeconstruction)
	assert.True(t, isItem)
	require.Len(t, result.bindings[1].Path, 1)
	skip, isSkip := result.bindings[1].Path[0].(*core.SkipItemsDeconstruction)
	require.True(t, isSkip)
	assert.Equal(t, 1, skip.Count)
}

func TestCompileNamedPatternWithArgs(t *testing.T) {
	c := NewCompiler()
	result := compileTestPattern(t, c, &syntax.NamedPattern{
		Name: "Just",
		Args: []syntax.Pattern{&syntax.VarPattern{Name: "n"}},
	})
	require.Len(t, result.conditions, 1)
	require.Len(t, result.bindings, 1)
	assert.Equal(t, "n", result.bindings[0].Name)
	assert.Len(t, result.bindings[0].Path, 2)
}

func TestFloatPatternIsRejected(t *testing.T) {
	c := NewCompiler()
	_, err := c.compilePattern(emptyStack(), &syntax.FloatPattern{Text: "1.5"}, &core.Ref{Name: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnsupportedConstruct")

	_, err = c.compilePattern(emptyStack(), &syntax.HexPattern{Value: 16}, &core.Ref{Name: "s"})
	assert.Error(t, err)
}

func TestRecordPatternBindsThroughKernelFunction(t *testing.T) {
	c := NewCompiler()
	result := compileTestPattern(t, c, &syntax.RecordPattern{Fields: []string{"x", "y"}})
	assert.Empty(t, result.conditions)
	require.Len(t, result.bindings, 2)
	_, ok := result.bindings[0].Path[0].(*core.PineFunctionApplicationDeconstruction)
	assert.True(t, ok)
}

func TestRecordSubroutinesEvaluate(t *testing.T) {
	record := pine.List(
		pine.ValueFromString(RecordTag),
		pine.List(pine.List(
			pine.List(pine.ValueFromString("a"), pine.ValueFromInt(1)),
			pine.List(pine.ValueFromString("b"), pine.ValueFromInt(2)),
		)),
	)

	access := &pine.ParseAndEvalExpr{
		Encoded: &pine.LiteralExpr{Value: pine.EncodeExpr(recordAccessFunction)},
		Env: &pine.ListExpr{Items: []pine.Expr{
			&pine.LiteralExpr{Value: record},
			&pine.LiteralExpr{Value: pine.ValueFromString("b")},
		}},
	}
	v, err := pine.Evaluate(pine.EmptyEvalContext(), access)
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(2), v))

	update := &pine.ParseAndEvalExpr{
		Encoded: &pine.LiteralExpr{Value: pine.EncodeExpr(recordUpdateFunction)},
		Env: &pine.ListExpr{Items: []pine.Expr{
			&pine.LiteralExpr{Value: record},
			&pine.LiteralExpr{Value: pine.List(
				pine.List(pine.ValueFromString("a"), pine.ValueFromInt(10)),
			)},
		}},
	}
	v, err = pine.Evaluate(pine.EmptyEvalContext(), update)
	require.NoError(t, err)

	updated := pine.List(
		pine.ValueFromString(RecordTag),
		pine.List(pine.List(
			pine.List(pine.ValueFromString("a"), pine.ValueFromInt(10)),
			pine.List(pine.ValueFromString("b"), pine.ValueFromInt(2)),
		)),
	)
	assert.True(t, pine.ValuesEqual(updated, v), "update preserves field order")
}

func TestRecordAccessMissingFieldYieldsEmpty(t *testing.T) {
	record := pine.List(
		pine.ValueFromString(RecordTag),
		pine.List(pine.List()),
	)
	access := &pine.ParseAndEvalExpr{
		Encoded: &pine.LiteralExpr{Value: pine.EncodeExpr(recordAccessFunction)},
		Env: &pine.ListExpr{Items: []pine.Expr{
			&pine.LiteralExpr{Value: record},
			&pine.LiteralExpr{Value: pine.ValueFromString("missing")},
		}},
	}
	v, err := pine.Evaluate(pine.EmptyEvalContext(), access)
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(pine.EmptyList, v))
}
