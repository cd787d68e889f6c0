package pine

import (
	"fmt"
)

// EvalError is returned when reduction cannot proceed: on unknown kernel
// names, non-boolean conditions, undecodable ParseAndEval operands, and
// kernel function arguments of the wrong shape (a non-list operand list,
// a bad [count, sequence] pair, negate of a non-boolean non-integer,
// integer arithmetic on non-integer blobs, and division by zero).
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return "kernel evaluation failed: " + e.Message
}

func evalErrorf(format string, args ...any) error {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}

// Evaluate reduces an expression to a value under the given environment.
// The evaluator is a big-step reducer: it blocks until completion and
// performs no I/O.
func Evaluate(env Value, expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value, nil

	case *ListExpr:
		items := make([]Value, len(e.Items))
		for i, item := range e.Items {
			v, err := Evaluate(env, item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &ListValue{Items: items}, nil

	case *KernelAppExpr:
		arg, err := Evaluate(env, e.Arg)
		if err != nil {
			return nil, err
		}
		fn, ok := kernelFunctions[e.Name]
		if !ok {
			return nil, evalErrorf("unknown kernel function %q", e.Name)
		}
		return fn(arg)

	case *ConditionalExpr:
		cond, err := Evaluate(env, e.Cond)
		if err != nil {
			return nil, err
		}
		switch {
		case ValuesEqual(cond, TrueValue):
			return Evaluate(env, e.IfTrue)
		case ValuesEqual(cond, FalseValue):
			return Evaluate(env, e.IfFalse)
		}
		return nil, evalErrorf("condition is not a boolean: %s", DescribeValue(cond))

	case *EnvironmentExpr:
		return env, nil

	case *ParseAndEvalExpr:
		newEnv, err := Evaluate(env, e.Env)
		if err != nil {
			return nil, err
		}
		encoded, err := Evaluate(env, e.Encoded)
		if err != nil {
			return nil, err
		}
		inner, err := DecodeExpr(encoded)
		if err != nil {
			return nil, evalErrorf("ParseAndEval: %v", err)
		}
		return Evaluate(newEnv, inner)

	case *StringTagExpr:
		return Evaluate(env, e.Inner)
	}
	return nil, evalErrorf("unknown expression type %T", expr)
}

// kernelFunctions is the fixed, process-wide kernel function table.
var kernelFunctions = map[string]func(Value) (Value, error){
	"equal":           kernelEqual,
	"negate":          kernelNegate,
	"length":          kernelLength,
	"head":            kernelHead,
	"skip":            kernelSkip,
	"take":            kernelTake,
	"reverse":         kernelReverse,
	"concat":          kernelConcat,
	"int_add":         intFold(func(a, b int64) int64 { return a + b }, 0),
	"int_mul":         intFold(func(a, b int64) int64 { return a * b }, 1),
	"int_sub":         kernelIntSub,
	"int_div":         kernelIntDiv,
	"int_is_less_than": kernelIntIsLessThan,
}

// kernelEqual takes a list of operands and is true when all are equal.
func kernelEqual(arg Value) (Value, error) {
	items, ok := ListItems(arg)
	if !ok {
		return nil, evalErrorf("equal: argument must be a list of operands")
	}
	for i := 1; i < len(items); i++ {
		if !ValuesEqual(items[0], items[i]) {
			return FalseValue, nil
		}
	}
	return TrueValue, nil
}

// kernelNegate flips kernel booleans and negates integer blobs.
func kernelNegate(arg Value) (Value, error) {
	if ValuesEqual(arg, TrueValue) {
		return FalseValue, nil
	}
	if ValuesEqual(arg, FalseValue) {
		return TrueValue, nil
	}
	n, err := IntFromValue(arg)
	if err != nil {
		return nil, evalErrorf("negate: argument is neither a boolean nor an integer: %s", DescribeValue(arg))
	}
	return ValueFromInt(-n), nil
}

// kernelLength counts list items or blob bytes.
func kernelLength(arg Value) (Value, error) {
	switch v := arg.(type) {
	case *ListValue:
		return ValueFromInt(int64(len(v.Items))), nil
	case *BlobValue:
		return ValueFromInt(int64(len(v.Bytes))), nil
	}
	return nil, evalErrorf("length: unknown value")
}

// kernelHead returns the first item of a list, or the empty list when the
// argument is empty or a blob.
func kernelHead(arg Value) (Value, error) {
	if items, ok := ListItems(arg); ok && len(items) > 0 {
		return items[0], nil
	}
	return EmptyList, nil
}

func countedOperand(name string, arg Value) (int64, Value, error) {
	items, ok := ListItems(arg)
	if !ok || len(items) != 2 {
		return 0, nil, evalErrorf("%s: argument must be a pair [count, sequence]", name)
	}
	n, err := IntFromValue(items[0])
	if err != nil {
		return 0, nil, evalErrorf("%s: count: %v", name, err)
	}
	if n < 0 {
		n = 0
	}
	return n, items[1], nil
}

// kernelSkip drops the first n items of a list or bytes of a blob.
func kernelSkip(arg Value) (Value, error) {
	n, seq, err := countedOperand("skip", arg)
	if err != nil {
		return nil, err
	}
	switch v := seq.(type) {
	case *ListValue:
		if n >= int64(len(v.Items)) {
			return EmptyList, nil
		}
		return &ListValue{Items: v.Items[n:]}, nil
	case *BlobValue:
		if n >= int64(len(v.Bytes)) {
			return &BlobValue{}, nil
		}
		return &BlobValue{Bytes: v.Bytes[n:]}, nil
	}
	return nil, evalErrorf("skip: unknown value")
}

// kernelTake keeps the first n items of a list or bytes of a blob.
func kernelTake(arg Value) (Value, error) {
	n, seq, err := countedOperand("take", arg)
	if err != nil {
		return nil, err
	}
	switch v := seq.(type) {
	case *ListValue:
		if n >= int64(len(v.Items)) {
			return v, nil
		}
		return &ListValue{Items: v.Items[:n]}, nil
	case *BlobValue:
		if n >= int64(len(v.Bytes)) {
			return v, nil
		}
		return &BlobValue{Bytes: v.Bytes[:n]}, nil
	}
	return nil, evalErrorf("take: unknown value")
}

func kernelReverse(arg Value) (Value, error) {
	switch v := arg.(type) {
	case *ListValue:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[len(v.Items)-1-i] = item
		}
		return &ListValue{Items: items}, nil
	case *BlobValue:
		b := make([]byte, len(v.Bytes))
		for i, c := range v.Bytes {
			b[len(v.Bytes)-1-i] = c
		}
		return &BlobValue{Bytes: b}, nil
	}
	return nil, evalErrorf("reverse: unknown value")
}

// kernelConcat concatenates a list of lists or a list of blobs. The shape
// of the first operand decides; operands of the other shape are skipped.
func kernelConcat(arg Value) (Value, error) {
	operands, ok := ListItems(arg)
	if !ok {
		return nil, evalErrorf("concat: argument must be a list of operands")
	}
	if len(operands) == 0 {
		return EmptyList, nil
	}
	if _, blobFirst := operands[0].(*BlobValue); blobFirst {
		var out []byte
		for _, op := range operands {
			if blob, ok := op.(*BlobValue); ok {
				out = append(out, blob.Bytes...)
			}
		}
		return &BlobValue{Bytes: out}, nil
	}
	var out []Value
	for _, op := range operands {
		if list, ok := op.(*ListValue); ok {
			out = append(out, list.Items...)
		}
	}
	return &ListValue{Items: out}, nil
}

func intOperands(name string, arg Value) ([]int64, error) {
	items, ok := ListItems(arg)
	if !ok {
		return nil, evalErrorf("%s: argument must be a list of integers", name)
	}
	out := make([]int64, len(items))
	for i, item := range items {
		n, err := IntFromValue(item)
		if err != nil {
			return nil, evalErrorf("%s: operand %d: %v", name, i, err)
		}
		out[i] = n
	}
	return out, nil
}

func intFold(op func(a, b int64) int64, identity int64) func(Value) (Value, error) {
	return func(arg Value) (Value, error) {
		ns, err := intOperands("int arithmetic", arg)
		if err != nil {
			return nil, err
		}
		acc := identity
		for _, n := range ns {
			acc = op(acc, n)
		}
		return ValueFromInt(acc), nil
	}
}

func kernelIntSub(arg Value) (Value, error) {
	ns, err := intOperands("int_sub", arg)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return ValueFromInt(0), nil
	}
	acc := ns[0]
	for _, n := range ns[1:] {
		acc -= n
	}
	return ValueFromInt(acc), nil
}

func kernelIntDiv(arg Value) (Value, error) {
	ns, err := intOperands("int_div", arg)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return ValueFromInt(1), nil
	}
	acc := ns[0]
	for _, n := range ns[1:] {
		if n == 0 {
			return nil, evalErrorf("int_div: division by zero")
		}
		acc /= n
	}
	return ValueFromInt(acc), nil
}

func kernelIntIsLessThan(arg Value) (Value, error) {
	ns, err := intOperands("int_is_less_than", arg)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(ns); i++ {
		if ns[i-1] >= ns[i] {
			return FalseValue, nil
		}
	}
	return TrueValue, nil
}
