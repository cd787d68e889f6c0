package pine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntCodec(t *testing.T) {
	cases := []int64{0, 1, -1, 41, 42, 255, 256, -256, 65535, 1 << 40, -(1 << 40)}
	for _, n := range cases {
		v := ValueFromInt(n)
		got, err := IntFromValue(v)
		require.NoError(t, err, "decode %d", n)
		assert.Equal(t, n, got)
	}
}

func TestIntCodecCanonical(t *testing.T) {
	// Equality over integers is byte equality, so the encoding must have
	// no leading zero bytes in the magnitude.
	a := ValueFromInt(42).(*BlobValue)
	assert.Equal(t, []byte{4, 42}, a.Bytes)

	b := ValueFromInt(-7).(*BlobValue)
	assert.Equal(t, []byte{2, 7}, b.Bytes)

	zero := ValueFromInt(0).(*BlobValue)
	assert.Equal(t, []byte{4, 0}, zero.Bytes)
}

func TestIntFromValueRejectsBadInput(t *testing.T) {
	_, err := IntFromValue(EmptyList)
	assert.Error(t, err)

	_, err = IntFromValue(Blob([]byte{9, 1}))
	assert.Error(t, err)
}

func TestCharCodec(t *testing.T) {
	for _, r := range []rune{'a', 'A', '0', 'é', '世'} {
		v := ValueFromChar(r)
		got, err := CharFromValue(v)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(ValueFromInt(5), ValueFromInt(5)))
	assert.False(t, ValuesEqual(ValueFromInt(5), ValueFromInt(-5)))
	assert.True(t, ValuesEqual(List(ValueFromInt(1), EmptyList), List(ValueFromInt(1), List())))
	assert.False(t, ValuesEqual(List(), Blob(nil)))
}

func TestExprCodecRoundTrip(t *testing.T) {
	exprs := []Expr{
		&LiteralExpr{Value: ValueFromInt(7)},
		&ListExpr{Items: []Expr{&EnvironmentExpr{}, &LiteralExpr{Value: ValueFromString("x")}}},
		&KernelAppExpr{Name: "head", Arg: &EnvironmentExpr{}},
		&ConditionalExpr{
			Cond:    &LiteralExpr{Value: TrueValue},
			IfTrue:  &LiteralExpr{Value: ValueFromInt(1)},
			IfFalse: &LiteralExpr{Value: ValueFromInt(2)},
		},
		&ParseAndEvalExpr{
			Encoded: &LiteralExpr{Value: EncodeExpr(&EnvironmentExpr{})},
			Env:     &ListExpr{},
		},
		&StringTagExpr{Tag: "note", Inner: &LiteralExpr{Value: EmptyList}},
	}
	for _, e := range exprs {
		decoded, err := DecodeExpr(EncodeExpr(e))
		require.NoError(t, err, DescribeExpr(e))
		assert.Equal(t, e, decoded, DescribeExpr(e))
	}
}

func TestDecodeExprRejectsBlob(t *testing.T) {
	_, err := DecodeExpr(ValueFromString("not an expression"))
	assert.Error(t, err)
}

func evalOrFail(t *testing.T, env Value, expr Expr) Value {
	t.Helper()
	v, err := Evaluate(env, expr)
	require.NoError(t, err)
	return v
}

func TestEvaluateKernelFunctions(t *testing.T) {
	env := EmptyEvalContext()

	intList := func(ns ...int64) Expr {
		items := make([]Expr, len(ns))
		for i, n := range ns {
			items[i] = &LiteralExpr{Value: ValueFromInt(n)}
		}
		return &ListExpr{Items: items}
	}

	t.Run("int_add", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "int_add", Arg: intList(40, 2)})
		assert.True(t, ValuesEqual(ValueFromInt(42), v))
	})

	t.Run("int_sub", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "int_sub", Arg: intList(10, 3)})
		assert.True(t, ValuesEqual(ValueFromInt(7), v))
	})

	t.Run("int_is_less_than", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "int_is_less_than", Arg: intList(1, 2)})
		assert.True(t, ValuesEqual(TrueValue, v))
		v = evalOrFail(t, env, &KernelAppExpr{Name: "int_is_less_than", Arg: intList(2, 2)})
		assert.True(t, ValuesEqual(FalseValue, v))
	})

	t.Run("equal", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "equal", Arg: intList(5, 5)})
		assert.True(t, ValuesEqual(TrueValue, v))
	})

	t.Run("negate booleans", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "negate", Arg: &LiteralExpr{Value: TrueValue}})
		assert.True(t, ValuesEqual(FalseValue, v))
	})

	t.Run("negate integers", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "negate", Arg: &LiteralExpr{Value: ValueFromInt(3)}})
		assert.True(t, ValuesEqual(ValueFromInt(-3), v))
	})

	t.Run("head and skip", func(t *testing.T) {
		subject := &LiteralExpr{Value: List(ValueFromInt(1), ValueFromInt(2), ValueFromInt(3))}
		v := evalOrFail(t, env, &KernelAppExpr{Name: "head", Arg: subject})
		assert.True(t, ValuesEqual(ValueFromInt(1), v))

		v = evalOrFail(t, env, &KernelAppExpr{
			Name: "skip",
			Arg:  &ListExpr{Items: []Expr{&LiteralExpr{Value: ValueFromInt(2)}, subject}},
		})
		assert.True(t, ValuesEqual(List(ValueFromInt(3)), v))
	})

	t.Run("head of empty list", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "head", Arg: &ListExpr{}})
		assert.True(t, ValuesEqual(EmptyList, v))
	})

	t.Run("concat lists", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "concat", Arg: &ListExpr{Items: []Expr{
			&LiteralExpr{Value: List(ValueFromInt(1))},
			&LiteralExpr{Value: List(ValueFromInt(2), ValueFromInt(3))},
		}}})
		assert.True(t, ValuesEqual(List(ValueFromInt(1), ValueFromInt(2), ValueFromInt(3)), v))
	})

	t.Run("concat blobs", func(t *testing.T) {
		v := evalOrFail(t, env, &KernelAppExpr{Name: "concat", Arg: &ListExpr{Items: []Expr{
			&LiteralExpr{Value: ValueFromString("ab")},
			&LiteralExpr{Value: ValueFromString("cd")},
		}}})
		assert.True(t, ValuesEqual(ValueFromString("abcd"), v))
	})
}

func TestEvaluateConditional(t *testing.T) {
	v := evalOrFail(t, EmptyList, &ConditionalExpr{
		Cond:    &LiteralExpr{Value: FalseValue},
		IfTrue:  &LiteralExpr{Value: ValueFromInt(1)},
		IfFalse: &LiteralExpr{Value: ValueFromInt(2)},
	})
	assert.True(t, ValuesEqual(ValueFromInt(2), v))

	_, err := Evaluate(EmptyList, &ConditionalExpr{
		Cond:    &LiteralExpr{Value: ValueFromInt(1)},
		IfTrue:  &ListExpr{},
		IfFalse: &ListExpr{},
	})
	assert.Error(t, err)
}

func TestEvaluateParseAndEval(t *testing.T) {
	// A program that reads the first entry of the environment it is run
	// under, exercised through its own encoded form.
	program := &KernelAppExpr{Name: "head", Arg: &EnvironmentExpr{}}
	wrapper := &ParseAndEvalExpr{
		Encoded: &LiteralExpr{Value: EncodeExpr(program)},
		Env:     &LiteralExpr{Value: List(ValueFromInt(99))},
	}
	v := evalOrFail(t, EmptyList, wrapper)
	assert.True(t, ValuesEqual(ValueFromInt(99), v))
}

func TestSerializeRoundTrip(t *testing.T) {
	v := List(
		ValueFromString("M.f"),
		List(ValueFromInt(1), Blob(nil), List()),
	)
	var buf bytes.Buffer
	require.NoError(t, WriteValue(&buf, v))
	got, err := ReadValue(&buf)
	require.NoError(t, err)
	assert.True(t, ValuesEqual(v, got))
}
