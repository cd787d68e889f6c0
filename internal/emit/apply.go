package emit

import (
	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/pine"
)

// The partial-application trampoline is the single recursive kernel
// subroutine of the emitted code. It runs with
// Environment = [self, function, remainingArgs] where self is its own
// encoded form, and applies the function to the remaining arguments one
// at a time:
//
//  1. no remaining arguments: return function;
//  2. function is a Function record: append the next argument to the
//     collected list, evaluate the inner expression once the arity is
//     reached, otherwise rebuild the record; recurse on the rest;
//  3. anything else is treated as an encoded expression and applied
//     directly to the next argument.
var (
	trampolineExpr    pine.Expr
	trampolineEncoded pine.Value
)

func init() {
	trampolineExpr = buildTrampoline()
	trampolineEncoded = pine.EncodeExpr(trampolineExpr)
}

func buildTrampoline() pine.Expr {
	self := itemAt(0, &pine.EnvironmentExpr{})
	fn := itemAt(1, &pine.EnvironmentExpr{})
	args := itemAt(2, &pine.EnvironmentExpr{})

	payload := itemAt(1, fn)
	inner := itemAt(0, payload)
	arity := itemAt(1, payload)
	envFns := itemAt(2, payload)
	collected := itemAt(3, payload)

	collectedNext := &pine.KernelAppExpr{
		Name: "concat",
		Arg: listOf(collected, &pine.KernelAppExpr{
			Name: "take",
			Arg:  listOf(lit(pine.ValueFromInt(1)), args),
		}),
	}

	continueWith := func(result pine.Expr) pine.Expr {
		return &pine.ParseAndEvalExpr{
			Encoded: self,
			Env:     listOf(self, result, skipExpr(1, args)),
		}
	}

	equalExpr := func(a, b pine.Expr) pine.Expr {
		return &pine.KernelAppExpr{Name: "equal", Arg: listOf(a, b)}
	}

	applyRecord := &pine.ConditionalExpr{
		Cond: equalExpr(
			&pine.KernelAppExpr{Name: "length", Arg: collectedNext},
			arity,
		),
		IfTrue: continueWith(&pine.ParseAndEvalExpr{
			Encoded: inner,
			Env:     listOf(envFns, collectedNext),
		}),
		IfFalse: continueWith(listOf(
			lit(pine.ValueFromString(FunctionRecordTag)),
			listOf(inner, arity, envFns, collectedNext),
		)),
	}

	applyRaw := continueWith(&pine.ParseAndEvalExpr{
		Encoded: fn,
		Env:     &pine.KernelAppExpr{Name: "head", Arg: args},
	})

	return &pine.ConditionalExpr{
		Cond:   equalExpr(args, listOf()),
		IfTrue: fn,
		IfFalse: &pine.ConditionalExpr{
			Cond: equalExpr(
				&pine.KernelAppExpr{Name: "head", Arg: fn},
				lit(pine.ValueFromString(FunctionRecordTag)),
			),
			IfTrue:  applyRecord,
			IfFalse: applyRaw,
		},
	}
}

// callTrampoline emits a dispatch through the trampoline.
func callTrampoline(fn pine.Expr, args []pine.Expr) pine.Expr {
	return &pine.ParseAndEvalExpr{
		Encoded: lit(trampolineEncoded),
		Env:     listOf(lit(trampolineEncoded), fn, listOf(args...)),
	}
}

// emitApply chooses among the three calling conventions:
//
//  1. immediate full application of an anonymous function, emitted as a
//     direct ParseAndEval with a fresh environment;
//  2. application of a known environment slot or compiled value with
//     matching arity, emitted by following the function-record shape;
//  3. the generic path through the trampoline.
func (s *EmitStack) emitApply(a *core.Apply) (pine.Expr, error) {
	args := make([]pine.Expr, len(a.Args))
	for i, arg := range a.Args {
		emitted, err := EmitExpr(s, arg)
		if err != nil {
			return nil, err
		}
		args[i] = emitted
	}

	switch fn := a.Fn.(type) {
	case *core.Function:
		if len(fn.Params) == len(args) {
			return s.emitImmediateApplication(fn, args)
		}
		if len(fn.Params) > len(args) {
			return s.emitFunction(fn, args)
		}

	case *core.Ref:
		if _, isParam := s.EnvDeconstructions[fn.Name]; !isParam {
			if expr, handled, err := s.emitKnownApply(fn.Name, args); handled || err != nil {
				return expr, err
			}
		}

	case *core.Apply:
		// A curried chain: f a b parsed as ((f a) b) never reaches here
		// from the front compiler, but nested Apply still lowers through
		// the generic path below.
	}

	fnExpr, err := EmitExpr(s, a.Fn)
	if err != nil {
		return nil, err
	}
	return callTrampoline(fnExpr, args), nil
}

// emitImmediateApplication lowers a fully applied anonymous function with
// no trampoline and no closure record.
func (s *EmitStack) emitImmediateApplication(fn *core.Function, args []pine.Expr) (pine.Expr, error) {
	entries, slots, err := s.closureContract(core.FreeReferences(fn))
	if err != nil {
		return nil, err
	}
	child := &EmitStack{
		ImportedFunctions:  s.ImportedFunctions,
		EnvFunctions:       entries,
		EnvDeconstructions: paramDeconstructions(fn.Params),
	}
	body, err := EmitExpr(child, fn.Body)
	if err != nil {
		return nil, err
	}
	return &pine.ParseAndEvalExpr{
		Encoded: lit(pine.EncodeExpr(body)),
		Env:     listOf(Reduce(listOf(slots...)), listOf(args...)),
	}, nil
}

// emitKnownApply handles references whose target is statically known: an
// environment slot or an already-compiled value.
func (s *EmitStack) emitKnownApply(name string, args []pine.Expr) (pine.Expr, bool, error) {
	if idx, entry, ok := s.slotIndex(name); ok {
		slot := itemAt(idx, envFunctionsExpr())
		switch kind := entry.Expected.(type) {
		case *LocalEnvironment:
			proj, err := s.projection(kind.ExpectedDecls)
			if err != nil {
				return nil, true, err
			}
			if entry.ParameterCount == len(args) && len(args) > 0 {
				return &pine.ParseAndEvalExpr{
					Encoded: slot,
					Env:     listOf(proj, listOf(args...)),
				}, true, nil
			}
			if entry.ParameterCount > len(args) {
				return functionRecordExpr(slot, entry.ParameterCount, proj, args), true, nil
			}
			// Over-application and value slots dispatch dynamically.
			return nil, false, nil

		case *ImportedEnvironment:
			if entry.ParameterCount != len(args) {
				return nil, false, nil
			}
			record := core.ApplyDeconstructionPath(kind.PathToRecord, slot)
			payload := itemAt(1, record)
			return &pine.ParseAndEvalExpr{
				Encoded: itemAt(0, payload),
				Env: listOf(
					itemAt(2, payload),
					&pine.KernelAppExpr{
						Name: "concat",
						Arg:  listOf(itemAt(3, payload), listOf(args...)),
					},
				),
			}, true, nil
		}
		return nil, false, nil
	}

	v, ok := s.ImportedFunctions[name]
	if !ok {
		return nil, false, nil
	}
	record, isRecord := parseFunctionRecordValue(v)
	if !isRecord {
		return nil, false, nil
	}
	missing := record.Arity - len(record.Collected)
	collected := make([]pine.Expr, 0, record.Arity)
	for _, c := range record.Collected {
		collected = append(collected, lit(c))
	}
	switch {
	case len(args) == missing:
		return &pine.ParseAndEvalExpr{
			Encoded: lit(record.Inner),
			Env:     listOf(lit(record.EnvFns), listOf(append(collected, args...)...)),
		}, true, nil
	case len(args) < missing:
		return Reduce(functionRecordExpr(
			lit(record.Inner),
			record.Arity,
			lit(record.EnvFns),
			append(collected, args...),
		)), true, nil
	}
	return nil, false, nil
}
