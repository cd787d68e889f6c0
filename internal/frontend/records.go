package frontend

import (
	"github.com/conifer-lang/conifer/internal/pine"
)

// Record values have the shape [Tag("Elm_Record"), [[[fieldName,
// fieldValue], ...]]] with the field pairs sorted by field name. Field
// access and update are implemented by two pre-encoded kernel
// subroutines, consumed through PineFunctionApply. Each subroutine loops
// by re-evaluating its own encoded form, passed as the first entry of
// its environment.
const RecordTag = "Elm_Record"

var (
	recordAccessFunction pine.Expr // env = [record, fieldName]
	recordUpdateFunction pine.Expr // env = [record, updatePairs]

	recordFieldLoop       pine.Expr // env = [self, fields, fieldName]
	recordFieldLoopEnc    pine.Value
	recordSetFieldLoop    pine.Expr // env = [self, acc, fields, name, value]
	recordSetFieldLoopEnc pine.Value
	recordUpdateLoopEnc   pine.Value // env = [self, setSelf, fields, pairs]
)

func init() {
	recordFieldLoop = buildRecordFieldLoop()
	recordFieldLoopEnc = pine.EncodeExpr(recordFieldLoop)
	recordSetFieldLoop = buildRecordSetFieldLoop()
	recordSetFieldLoopEnc = pine.EncodeExpr(recordSetFieldLoop)
	updateLoop := buildRecordUpdateLoop()
	recordUpdateLoopEnc = pine.EncodeExpr(updateLoop)
	recordAccessFunction = buildRecordAccessFunction()
	recordUpdateFunction = buildRecordUpdateFunction()
}

func kitem(index int, e pine.Expr) pine.Expr {
	inner := e
	if index > 0 {
		inner = &pine.KernelAppExpr{Name: "skip", Arg: klist(kint(index), e)}
	}
	return &pine.KernelAppExpr{Name: "head", Arg: inner}
}

func klist(items ...pine.Expr) pine.Expr {
	return &pine.ListExpr{Items: items}
}

func kint(n int) pine.Expr {
	return &pine.LiteralExpr{Value: pine.ValueFromInt(int64(n))}
}

func kstring(s string) pine.Expr {
	return &pine.LiteralExpr{Value: pine.ValueFromString(s)}
}

func kequal(a, b pine.Expr) pine.Expr {
	return &pine.KernelAppExpr{Name: "equal", Arg: klist(a, b)}
}

func kskip(count pine.Expr, e pine.Expr) pine.Expr {
	return &pine.KernelAppExpr{Name: "skip", Arg: klist(count, e)}
}

func kenv() pine.Expr {
	return &pine.EnvironmentExpr{}
}

// recordFields projects the field-pair list out of a record value.
func recordFields(record pine.Expr) pine.Expr {
	return kitem(0, kitem(1, record))
}

// buildRecordFieldLoop scans the field pairs for a name. Environment:
// [self, fields, fieldName]. A missing field yields the empty list.
func buildRecordFieldLoop() pine.Expr {
	self := kitem(0, kenv())
	fields := kitem(1, kenv())
	name := kitem(2, kenv())
	firstPair := kitem(0, fields)

	return &pine.ConditionalExpr{
		Cond:   kequal(fields, klist()),
		IfTrue: klist(),
		IfFalse: &pine.ConditionalExpr{
			Cond:   kequal(name, kitem(0, firstPair)),
			IfTrue: kitem(1, firstPair),
			IfFalse: &pine.ParseAndEvalExpr{
				Encoded: self,
				Env:     klist(self, kskip(kint(1), fields), name),
			},
		},
	}
}

// buildRecordAccessFunction checks the record tag and hands the fields to
// the scan loop. Environment: [record, fieldName].
func buildRecordAccessFunction() pine.Expr {
	record := kitem(0, kenv())
	name := kitem(1, kenv())
	return &pine.ConditionalExpr{
		Cond: kequal(kitem(0, record), kstring(RecordTag)),
		IfTrue: &pine.ParseAndEvalExpr{
			Encoded: &pine.LiteralExpr{Value: recordFieldLoopEnc},
			Env:     klist(&pine.LiteralExpr{Value: recordFieldLoopEnc}, recordFields(record), name),
		},
		IfFalse: klist(),
	}
}

// buildRecordFieldAccessFunction bakes one field name in, so the
// subroutine can serve as a parameter deconstruction. Environment: the
// record value itself.
func buildRecordFieldAccessFunction(field string) pine.Expr {
	record := kenv()
	return &pine.ConditionalExpr{
		Cond: kequal(kitem(0, record), kstring(RecordTag)),
		IfTrue: &pine.ParseAndEvalExpr{
			Encoded: &pine.LiteralExpr{Value: recordFieldLoopEnc},
			Env:     klist(&pine.LiteralExpr{Value: recordFieldLoopEnc}, recordFields(record), kstring(field)),
		},
		IfFalse: klist(),
	}
}

// buildRecordSetFieldLoop rebuilds the field list with one field
// replaced, preserving order. Environment: [self, acc, fields, name,
// value].
func buildRecordSetFieldLoop() pine.Expr {
	self := kitem(0, kenv())
	acc := kitem(1, kenv())
	fields := kitem(2, kenv())
	name := kitem(3, kenv())
	value := kitem(4, kenv())
	firstPair := kitem(0, fields)

	return &pine.ConditionalExpr{
		Cond:   kequal(fields, klist()),
		IfTrue: acc,
		IfFalse: &pine.ConditionalExpr{
			Cond: kequal(name, kitem(0, firstPair)),
			IfTrue: &pine.KernelAppExpr{
				Name: "concat",
				Arg:  klist(acc, klist(klist(name, value)), kskip(kint(1), fields)),
			},
			IfFalse: &pine.ParseAndEvalExpr{
				Encoded: self,
				Env: klist(
					self,
					&pine.KernelAppExpr{Name: "concat", Arg: klist(acc, klist(firstPair))},
					kskip(kint(1), fields),
					name,
					value,
				),
			},
		},
	}
}

// buildRecordUpdateLoop folds the update pairs over the field list.
// Environment: [self, setSelf, fields, pairs].
func buildRecordUpdateLoop() pine.Expr {
	self := kitem(0, kenv())
	setSelf := kitem(1, kenv())
	fields := kitem(2, kenv())
	pairs := kitem(3, kenv())
	firstPair := kitem(0, pairs)

	updatedFields := &pine.ParseAndEvalExpr{
		Encoded: setSelf,
		Env: klist(
			setSelf,
			klist(),
			fields,
			kitem(0, firstPair),
			kitem(1, firstPair),
		),
	}

	return &pine.ConditionalExpr{
		Cond:   kequal(pairs, klist()),
		IfTrue: klist(kstring(RecordTag), klist(fields)),
		IfFalse: &pine.ParseAndEvalExpr{
			Encoded: self,
			Env:     klist(self, setSelf, updatedFields, kskip(kint(1), pairs)),
		},
	}
}

// buildRecordUpdateFunction checks the record tag and folds the pairs.
// Environment: [record, updatePairs].
func buildRecordUpdateFunction() pine.Expr {
	record := kitem(0, kenv())
	pairs := kitem(1, kenv())
	entry := &pine.ConditionalExpr{
		Cond: kequal(kitem(0, record), kstring(RecordTag)),
		IfTrue: &pine.ParseAndEvalExpr{
			Encoded: &pine.LiteralExpr{Value: recordUpdateLoopEnc},
			Env: klist(
				&pine.LiteralExpr{Value: recordUpdateLoopEnc},
				&pine.LiteralExpr{Value: recordSetFieldLoopEnc},
				recordFields(record),
				pairs,
			),
		},
		IfFalse: klist(),
	}
	return entry
}
