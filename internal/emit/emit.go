// Package emit lowers IR expressions to kernel expressions under an
// explicit environment discipline: at runtime every user-defined function
// executes with Environment = [envFunctions, args]. envFunctions is a
// positional list whose shape is decided statically per emission point;
// args is the list of positional arguments to the current call.
package emit

import (
	"fmt"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
)

// FunctionRecordTag tags closure values: a function value is
// [Tag("Function"), [innerExprEncoded, parameterCount, envFunctions,
// argsCollected]].
const FunctionRecordTag = "Function"

// EnvironmentKind describes what a function expects to find in one slot
// of its envFunctions list.
type EnvironmentKind interface {
	envKind()
}

// LocalEnvironment marks a slot holding the encoded body of a declaration
// from the same block; the callee expects the listed declarations, by
// name, somewhere in the caller's environment.
type LocalEnvironment struct {
	ExpectedDecls []string
}

// ImportedEnvironment marks a slot holding an already-compiled function
// record, reached through PathToRecord inside the slot value.
type ImportedEnvironment struct {
	PathToRecord []core.Deconstruction
}

// IndependentEnvironment marks a slot holding a plain value: a closure
// capture or a let value evaluated at environment-construction time.
type IndependentEnvironment struct{}

func (*LocalEnvironment) envKind()       {}
func (*ImportedEnvironment) envKind()    {}
func (*IndependentEnvironment) envKind() {}

// EnvFnEntry describes one slot of the emitted closure's environment.
type EnvFnEntry struct {
	Name           string
	ParameterCount int
	Expected       EnvironmentKind
}

// EmitStack is the transient, per-emission-point context.
type EmitStack struct {
	// ImportedFunctions maps canonical names to already-compiled values:
	// imported module members and declarations of earlier recursion
	// domains.
	ImportedFunctions map[string]pine.Value

	// EnvFunctions is the contract of the environment's first element.
	EnvFunctions []EnvFnEntry

	// EnvDeconstructions maps parameter names of the current function to
	// their projection paths from the argument list.
	EnvDeconstructions map[string][]core.Deconstruction
}

func unresolved(name, scope string) error {
	return diag.UnresolvedReference("emit", name, scope)
}

// envFunctionsExpr selects the envFunctions list of the current call.
func envFunctionsExpr() pine.Expr {
	return itemAt(0, &pine.EnvironmentExpr{})
}

// argumentsExpr selects the argument list of the current call.
func argumentsExpr() pine.Expr {
	return itemAt(1, &pine.EnvironmentExpr{})
}

func itemAt(index int, e pine.Expr) pine.Expr {
	inner := e
	if index > 0 {
		inner = &pine.KernelAppExpr{
			Name: "skip",
			Arg: &pine.ListExpr{Items: []pine.Expr{
				&pine.LiteralExpr{Value: pine.ValueFromInt(int64(index))},
				e,
			}},
		}
	}
	return &pine.KernelAppExpr{Name: "head", Arg: inner}
}

func skipExpr(count int, e pine.Expr) pine.Expr {
	return &pine.KernelAppExpr{
		Name: "skip",
		Arg: &pine.ListExpr{Items: []pine.Expr{
			&pine.LiteralExpr{Value: pine.ValueFromInt(int64(count))},
			e,
		}},
	}
}

func lit(v pine.Value) pine.Expr {
	return &pine.LiteralExpr{Value: v}
}

func listOf(items ...pine.Expr) pine.Expr {
	return &pine.ListExpr{Items: items}
}

// functionRecordExpr builds a closure record at runtime.
func functionRecordExpr(inner pine.Expr, arity int, envFns pine.Expr, collected []pine.Expr) pine.Expr {
	return listOf(
		lit(pine.ValueFromString(FunctionRecordTag)),
		listOf(inner, lit(pine.ValueFromInt(int64(arity))), envFns, listOf(collected...)),
	)
}

// FunctionRecordValue builds a closed closure record value, used when
// assembling module declarations.
func FunctionRecordValue(inner pine.Value, arity int, envFns []pine.Value) pine.Value {
	return pine.List(
		pine.ValueFromString(FunctionRecordTag),
		pine.List(inner, pine.ValueFromInt(int64(arity)), &pine.ListValue{Items: envFns}, pine.List()),
	)
}

// functionRecord is the compile-time view of a closure value.
type functionRecord struct {
	Inner     pine.Value
	Arity     int
	EnvFns    pine.Value
	Collected []pine.Value
}

// parseFunctionRecordValue recognizes closure values at compile time.
func parseFunctionRecordValue(v pine.Value) (*functionRecord, bool) {
	outer, ok := pine.ListItems(v)
	if !ok || len(outer) != 2 {
		return nil, false
	}
	tag, err := pine.StringFromValue(outer[0])
	if err != nil || tag != FunctionRecordTag {
		return nil, false
	}
	payload, ok := pine.ListItems(outer[1])
	if !ok || len(payload) != 4 {
		return nil, false
	}
	arity, err := pine.IntFromValue(payload[1])
	if err != nil {
		return nil, false
	}
	collected, ok := pine.ListItems(payload[3])
	if !ok {
		return nil, false
	}
	return &functionRecord{
		Inner:     payload[0],
		Arity:     int(arity),
		EnvFns:    payload[2],
		Collected: collected,
	}, true
}

// slotIndex finds the newest environment slot with the given name.
func (s *EmitStack) slotIndex(name string) (int, EnvFnEntry, bool) {
	for i := len(s.EnvFunctions) - 1; i >= 0; i-- {
		if s.EnvFunctions[i].Name == name {
			return i, s.EnvFunctions[i], true
		}
	}
	return 0, EnvFnEntry{}, false
}

// projection builds the envFunctions list a callee expects, by copying
// the named slots out of the current environment.
func (s *EmitStack) projection(expected []string) (pine.Expr, error) {
	if len(expected) == len(s.EnvFunctions) {
		same := true
		for i, name := range expected {
			if s.EnvFunctions[i].Name != name {
				same = false
				break
			}
		}
		if same {
			return envFunctionsExpr(), nil
		}
	}
	slots := make([]pine.Expr, len(expected))
	for i, name := range expected {
		idx, _, ok := s.slotIndex(name)
		if !ok {
			return nil, unresolved(name, "environment functions")
		}
		slots[i] = itemAt(idx, envFunctionsExpr())
	}
	return listOf(slots...), nil
}

// EmitExpr lowers one IR expression under the stack's environment
// contract.
func EmitExpr(s *EmitStack, e core.Expr) (pine.Expr, error) {
	switch expr := e.(type) {
	case *core.Literal:
		return lit(expr.Value), nil

	case *core.ListExpr:
		items := make([]pine.Expr, len(expr.Items))
		for i, item := range expr.Items {
			emitted, err := EmitExpr(s, item)
			if err != nil {
				return nil, err
			}
			items[i] = emitted
		}
		return Reduce(listOf(items...)), nil

	case *core.KernelApplication:
		arg, err := EmitExpr(s, expr.Arg)
		if err != nil {
			return nil, err
		}
		return Reduce(&pine.KernelAppExpr{Name: expr.Name, Arg: arg}), nil

	case *core.Conditional:
		cond, err := EmitExpr(s, expr.Cond)
		if err != nil {
			return nil, err
		}
		ifTrue, err := EmitExpr(s, expr.IfTrue)
		if err != nil {
			return nil, err
		}
		ifFalse, err := EmitExpr(s, expr.IfFalse)
		if err != nil {
			return nil, err
		}
		return Reduce(&pine.ConditionalExpr{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}), nil

	case *core.StringTag:
		inner, err := EmitExpr(s, expr.Inner)
		if err != nil {
			return nil, err
		}
		return &pine.StringTagExpr{Tag: expr.Tag, Inner: inner}, nil

	case *core.PineFunctionApply:
		arg, err := EmitExpr(s, expr.Arg)
		if err != nil {
			return nil, err
		}
		return &pine.ParseAndEvalExpr{
			Encoded: lit(pine.EncodeExpr(expr.Function)),
			Env:     arg,
		}, nil

	case *core.Ref:
		return s.emitRef(expr.Name)

	case *core.Function:
		return s.emitFunction(expr, nil)

	case *core.Apply:
		return s.emitApply(expr)

	case *core.DeclBlock:
		return s.emitDeclBlock(expr)
	}
	return nil, diag.New(diag.CodeInvariantViolation, "emit", "unknown IR node %T", e)
}

// emitRef resolves a reference: parameter deconstructions first, then
// environment slots, then imported values.
func (s *EmitStack) emitRef(name string) (pine.Expr, error) {
	if path, ok := s.EnvDeconstructions[name]; ok {
		return core.ApplyDeconstructionPath(path, argumentsExpr()), nil
	}
	if idx, entry, ok := s.slotIndex(name); ok {
		slot := itemAt(idx, envFunctionsExpr())
		switch kind := entry.Expected.(type) {
		case *IndependentEnvironment:
			return slot, nil
		case *ImportedEnvironment:
			return core.ApplyDeconstructionPath(kind.PathToRecord, slot), nil
		case *LocalEnvironment:
			proj, err := s.projection(kind.ExpectedDecls)
			if err != nil {
				return nil, diag.WithPath(err, fmt.Sprintf("reference %q", name))
			}
			if entry.ParameterCount == 0 {
				// A value slot holding an encoded expression: evaluate it
				// at each reference under its expected environment.
				return &pine.ParseAndEvalExpr{
					Encoded: slot,
					Env:     listOf(proj, listOf()),
				}, nil
			}
			return functionRecordExpr(slot, entry.ParameterCount, proj, nil), nil
		}
	}
	if v, ok := s.ImportedFunctions[name]; ok {
		return lit(v), nil
	}
	return nil, unresolved(name, "the current scope")
}

func paramDeconstructions(params [][]core.FunctionParamName) map[string][]core.Deconstruction {
	out := map[string][]core.Deconstruction{}
	for i, param := range params {
		for _, binding := range param {
			path := append([]core.Deconstruction{&core.ListItemDeconstruction{Index: i}}, binding.Path...)
			out[binding.Name] = path
		}
	}
	return out
}

// closureContract decides the environment a nested function needs: copied
// slots for block declarations it references (with their transitive
// expectations) and capture slots for enclosing parameters.
func (s *EmitStack) closureContract(freeNames []string) ([]EnvFnEntry, []pine.Expr, error) {
	var entries []EnvFnEntry
	var slots []pine.Expr
	added := map[string]bool{}

	queue := append([]string{}, freeNames...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if added[name] {
			continue
		}
		if _, isParam := s.EnvDeconstructions[name]; isParam {
			slotExpr, err := s.emitRef(name)
			if err != nil {
				return nil, nil, err
			}
			added[name] = true
			entries = append(entries, EnvFnEntry{Name: name, Expected: &IndependentEnvironment{}})
			slots = append(slots, slotExpr)
			continue
		}
		if idx, entry, ok := s.slotIndex(name); ok {
			added[name] = true
			entries = append(entries, entry)
			slots = append(slots, itemAt(idx, envFunctionsExpr()))
			if local, isLocal := entry.Expected.(*LocalEnvironment); isLocal {
				queue = append(queue, local.ExpectedDecls...)
			}
			continue
		}
		if v, ok := s.ImportedFunctions[name]; ok {
			if record, isRecord := parseFunctionRecordValue(v); isRecord {
				// Imported function records become their own slots, so a
				// closure carries each compiled callee once.
				added[name] = true
				entries = append(entries, EnvFnEntry{
					Name:           name,
					ParameterCount: record.Arity - len(record.Collected),
					Expected:       &ImportedEnvironment{},
				})
				slots = append(slots, lit(v))
				continue
			}
		}
		// Plain imported values resolve as literals inside the closure;
		// unknown names surface when the body is emitted.
		added[name] = true
	}
	return entries, slots, nil
}

// emitFunction builds a closure record at runtime, with the given
// arguments already collected.
func (s *EmitStack) emitFunction(fn *core.Function, collected []pine.Expr) (pine.Expr, error) {
	if len(fn.Params) == 0 {
		return EmitExpr(s, fn.Body)
	}
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
	return Reduce(functionRecordExpr(
		lit(pine.EncodeExpr(body)),
		len(fn.Params),
		Reduce(listOf(slots...)),
		collected,
	)), nil
}
