package emit

import (
	"fmt"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
)

// EmitModuleDeclarations emits every declaration reachable from the
// exposed set, one recursion domain at a time. Declarations of earlier
// domains are finished values by the time a later domain is emitted, so
// they are resolved like imports; only the members of the current domain
// share an environment contract.
func EmitModuleDeclarations(
	decls map[string]core.Expr,
	exposed []string,
	imported map[string]pine.Value,
) (map[string]pine.Value, error) {
	deps := DeclarationDependencies(decls)
	reachable := ReachableDeclarations(exposed, deps)
	domains := RecursionDomains(reachable, deps)

	compiled := map[string]pine.Value{}
	available := map[string]pine.Value{}
	for name, v := range imported {
		available[name] = v
	}

	for _, domain := range domains {
		if err := emitDomain(decls, domain, deps, available, compiled); err != nil {
			return nil, err
		}
	}
	return compiled, nil
}

func emitDomain(
	decls map[string]core.Expr,
	domain []string,
	deps map[string][]string,
	available map[string]pine.Value,
	compiled map[string]pine.Value,
) error {
	// Split the domain into functions and plain values. A value can only
	// form a singleton, non-recursive domain.
	fns := map[string]*core.Function{}
	for _, name := range domain {
		if fn, ok := decls[name].(*core.Function); ok && len(fn.Params) > 0 {
			fns[name] = fn
		}
	}

	if len(fns) < len(domain) {
		if len(domain) > 1 {
			return diag.DependencyCycle("emit", append(domain, domain[0]))
		}
		name := domain[0]
		if TransitiveDependencies(name, deps)[name] {
			return diag.New(diag.CodeDependencyCycle, "emit",
				"value declaration %q depends on itself", name)
		}
		value, err := evaluateValueDeclaration(name, decls[name], available)
		if err != nil {
			return err
		}
		compiled[name] = value
		available[name] = value
		return nil
	}

	// Functions of one domain share an environment contract listing the
	// whole domain; recursion re-enters through those slots.
	entries := make([]EnvFnEntry, len(domain))
	for i, name := range domain {
		entries[i] = EnvFnEntry{
			Name:           name,
			ParameterCount: len(fns[name].Params),
			Expected:       &LocalEnvironment{ExpectedDecls: domain},
		}
	}

	encodedBodies := make([]pine.Value, len(domain))
	for i, name := range domain {
		fn := fns[name]
		stack := &EmitStack{
			ImportedFunctions:  available,
			EnvFunctions:       entries,
			EnvDeconstructions: paramDeconstructions(fn.Params),
		}
		body, err := EmitExpr(stack, fn.Body)
		if err != nil {
			return diag.WithPath(err, fmt.Sprintf("function %q", name))
		}
		encodedBodies[i] = pine.EncodeExpr(Reduce(body))
	}

	for i, name := range domain {
		value := FunctionRecordValue(encodedBodies[i], len(fns[name].Params), encodedBodies)
		compiled[name] = value
		available[name] = value
	}
	return nil
}

// evaluateValueDeclaration emits a parameterless declaration as a closed
// expression and evaluates it once, at compile time.
func evaluateValueDeclaration(name string, decl core.Expr, available map[string]pine.Value) (pine.Value, error) {
	stack := &EmitStack{ImportedFunctions: available}
	expr, err := EmitExpr(stack, decl)
	if err != nil {
		return nil, diag.WithPath(err, fmt.Sprintf("declaration %q", name))
	}
	value, err := pine.Evaluate(pine.EmptyEvalContext(), Reduce(expr))
	if err != nil {
		return nil, diag.WithPath(
			diag.New(diag.CodeInvariantViolation, "emit", "%v", err),
			fmt.Sprintf("declaration %q", name))
	}
	return value, nil
}

// EmitClosedExpression emits an expression that references only
// already-compiled values, and evaluates it to the value it denotes.
// Interactive expression submissions compile through this path.
func EmitClosedExpression(expr core.Expr, available map[string]pine.Value) (pine.Value, error) {
	stack := &EmitStack{ImportedFunctions: available}
	emitted, err := EmitExpr(stack, expr)
	if err != nil {
		return nil, err
	}
	return pine.Evaluate(pine.EmptyEvalContext(), Reduce(emitted))
}
