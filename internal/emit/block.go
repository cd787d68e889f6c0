package emit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
)

// emitDeclBlock lowers a mutually recursive let block. The block body
// runs under an extended environment [oldSlots ++ captures ++ declSlots,
// args]: the argument list passes through unchanged, so the enclosing
// function's parameter deconstructions stay valid, while the new slots
// make the block's declarations reachable by position.
//
// Slot values are all computed under the enclosing environment, so a
// slot expression can never reference another new slot; declarations
// that need their siblings become encoded-body slots instead, reached
// through the extended environment at run time.
func (s *EmitStack) emitDeclBlock(block *core.DeclBlock) (pine.Expr, error) {
	deps := DeclarationDependencies(block.Declarations)

	var bodyRoots []string
	for _, ref := range core.FreeReferences(block.Body) {
		if _, isDecl := block.Declarations[ref]; isDecl {
			bodyRoots = append(bodyRoots, ref)
		}
	}
	reachable := ReachableDeclarations(bodyRoots, deps)
	if len(reachable) == 0 {
		return EmitExpr(s, block.Body)
	}
	domains := RecursionDomains(reachable, deps)
	declNames := declarationOrder(domains)

	// Enclosing parameters referenced by the block's declarations become
	// closure captures: extra slots whose values are computed once, when
	// the extended environment is built.
	captures := s.blockCaptures(block, reachable)

	entries := append([]EnvFnEntry{}, s.EnvFunctions...)
	slotExprs := s.currentSlotExprs()

	for _, name := range captures {
		captured, err := s.emitRef(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, EnvFnEntry{Name: name, Expected: &IndependentEnvironment{}})
		slotExprs = append(slotExprs, captured)
	}

	// Slot values evaluate under the enclosing environment, so an
	// independent value may only use what that environment can resolve.
	buildStack := &EmitStack{
		ImportedFunctions:  s.ImportedFunctions,
		EnvFunctions:       s.EnvFunctions,
		EnvDeconstructions: s.EnvDeconstructions,
	}

	// First pass: decide each declaration's slot kind. Bodies wait until
	// the full contract is known.
	type pendingDecl struct {
		name        string
		fn          *core.Function
		independent pine.Expr // set for values evaluated at build time
	}
	var pending []pendingDecl
	var newLocals []*LocalEnvironment
	for _, name := range declNames {
		decl := block.Declarations[name]
		if fn, isFn := decl.(*core.Function); isFn && len(fn.Params) > 0 {
			expected := &LocalEnvironment{}
			newLocals = append(newLocals, expected)
			entries = append(entries, EnvFnEntry{
				Name:           name,
				ParameterCount: len(fn.Params),
				Expected:       expected,
			})
			pending = append(pending, pendingDecl{name: name, fn: fn})
			continue
		}
		if TransitiveDependencies(name, deps)[name] {
			return nil, diag.New(diag.CodeDependencyCycle, "emit",
				"value declaration %q depends on itself", name)
		}
		// A value declaration whose dependencies the enclosing
		// environment already resolves is lifted into a capture,
		// evaluated once per enclosing call.
		if independent, err := EmitExpr(buildStack, decl); err == nil {
			entries = append(entries, EnvFnEntry{Name: name, Expected: &IndependentEnvironment{}})
			pending = append(pending, pendingDecl{name: name, independent: independent})
			continue
		} else if !isUnresolvedReference(err) {
			return nil, diag.WithPath(err, fmt.Sprintf("let declaration %q", name))
		}
		expected := &LocalEnvironment{}
		newLocals = append(newLocals, expected)
		entries = append(entries, EnvFnEntry{Name: name, Expected: expected})
		pending = append(pending, pendingDecl{name: name})
	}

	// Every declaration emitted into this block expects the whole
	// extended environment.
	fullNames := make([]string, len(entries))
	for i, entry := range entries {
		fullNames[i] = entry.Name
	}
	for _, local := range newLocals {
		local.ExpectedDecls = fullNames
	}

	// Second pass: emit declaration bodies under the full contract.
	for _, p := range pending {
		if p.independent != nil {
			slotExprs = append(slotExprs, p.independent)
			continue
		}
		decl := block.Declarations[p.name]
		declStack := &EmitStack{
			ImportedFunctions:  s.ImportedFunctions,
			EnvFunctions:       entries,
			EnvDeconstructions: map[string][]core.Deconstruction{},
		}
		var bodyIR core.Expr = decl
		if p.fn != nil {
			declStack.EnvDeconstructions = paramDeconstructions(p.fn.Params)
			bodyIR = p.fn.Body
		}
		body, err := EmitExpr(declStack, bodyIR)
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("let declaration %q", p.name))
		}
		slotExprs = append(slotExprs, lit(pine.EncodeExpr(body)))
	}

	bodyStack := &EmitStack{
		ImportedFunctions:  s.ImportedFunctions,
		EnvFunctions:       entries,
		EnvDeconstructions: s.EnvDeconstructions,
	}
	body, err := EmitExpr(bodyStack, block.Body)
	if err != nil {
		return nil, err
	}
	return &pine.ParseAndEvalExpr{
		Encoded: lit(pine.EncodeExpr(body)),
		Env:     listOf(Reduce(listOf(slotExprs...)), argumentsExpr()),
	}, nil
}

// currentSlotExprs projects every existing slot out of the current
// environment, preserving indices in the extended environment.
func (s *EmitStack) currentSlotExprs() []pine.Expr {
	out := make([]pine.Expr, len(s.EnvFunctions))
	for i := range s.EnvFunctions {
		out[i] = itemAt(i, envFunctionsExpr())
	}
	return out
}

// blockCaptures lists the enclosing parameters referenced by the block's
// reachable declarations, in sorted order.
func (s *EmitStack) blockCaptures(block *core.DeclBlock, reachable map[string]bool) []string {
	set := map[string]bool{}
	for name := range reachable {
		for _, ref := range core.FreeReferences(block.Declarations[name]) {
			if _, isParam := s.EnvDeconstructions[ref]; isParam {
				if _, isDecl := block.Declarations[ref]; !isDecl {
					set[ref] = true
				}
			}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func declarationOrder(domains [][]string) []string {
	var out []string
	for _, domain := range domains {
		out = append(out, domain...)
	}
	return out
}

func isUnresolvedReference(err error) bool {
	var re *diag.ReportError
	if errors.As(err, &re) && re.Rep != nil {
		return re.Rep.Code == diag.CodeUnresolvedRef
	}
	return false
}
