package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conifer-lang/conifer/internal/pine"
)

func TestApplyDeconstructionPath(t *testing.T) {
	subject := pine.List(
		pine.ValueFromInt(10),
		pine.ValueFromInt(20),
		pine.ValueFromInt(30),
	)
	path := []Deconstruction{
		&SkipItemsDeconstruction{Count: 1},
		&ListItemDeconstruction{Index: 1},
	}
	expr := ApplyDeconstructionPath(path, &pine.LiteralExpr{Value: subject})
	v, err := pine.Evaluate(pine.EmptyList, expr)
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(30), v))
}

func TestApplyDeconstructionIndexZero(t *testing.T) {
	subject := pine.List(pine.ValueFromInt(1), pine.ValueFromInt(2))
	expr := ApplyDeconstruction(&ListItemDeconstruction{Index: 0}, &pine.LiteralExpr{Value: subject})
	// Index zero must not emit a redundant skip.
	_, isHead := expr.(*pine.KernelAppExpr)
	assert.True(t, isHead)
	v, err := pine.Evaluate(pine.EmptyList, expr)
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(1), v))
}

func TestFreeReferences(t *testing.T) {
	// \x -> f x y   references f and y, binds x
	expr := &Function{
		Params: [][]FunctionParamName{{{Name: "x"}}},
		Body: &Apply{
			Fn:   &Ref{Name: "f"},
			Args: []Expr{&Ref{Name: "x"}, &Ref{Name: "y"}},
		},
	}
	assert.Equal(t, []string{"f", "y"}, FreeReferences(expr))
}

func TestFreeReferencesDeclBlock(t *testing.T) {
	// let g = h 1 in g x   references h and x, binds g
	expr := &DeclBlock{
		Declarations: map[string]Expr{
			"g": &Apply{Fn: &Ref{Name: "h"}, Args: []Expr{&Literal{Value: pine.ValueFromInt(1)}}},
		},
		Body: &Apply{Fn: &Ref{Name: "g"}, Args: []Expr{&Ref{Name: "x"}}},
	}
	refs := FreeReferences(expr)
	assert.ElementsMatch(t, []string{"h", "x"}, refs)
}

func TestCountApplications(t *testing.T) {
	expr := &Apply{
		Fn: &Ref{Name: "f"},
		Args: []Expr{
			&Apply{Fn: &Ref{Name: "g"}, Args: []Expr{&Ref{Name: "x"}}},
		},
	}
	assert.Equal(t, 2, CountApplications(expr))
}
