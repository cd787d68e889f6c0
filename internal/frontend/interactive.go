package frontend

import (
	"fmt"
	"sort"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/emit"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// InteractiveContext compiles standalone submissions against a
// persistent environment: every compiled module is reachable qualified,
// the auto-imported modules are in scope, and earlier interactive
// declarations resolve by bare name.
type InteractiveContext struct {
	compiler *Compiler
	stack    *CompilationStack
	values   map[string]pine.Value
}

// NewInteractiveContext builds the compilation context for submissions.
func NewInteractiveContext(
	modules map[string]*codec.ModuleInCompilation,
	interactive []codec.NamedDeclaration,
) *InteractiveContext {
	stack := &CompilationStack{
		ModuleAliases:          map[string]string{},
		AvailableModules:       modules,
		ImportedModules:        map[string]bool{},
		InlineableDeclarations: map[string]Inlineable{},
		ImportedFunctions:      map[string]string{},
		LocalDeclarations:      map[string]bool{},
		LocalBindings:          map[string]bool{},
	}
	moduleNames := make([]string, 0, len(modules))
	for name := range modules {
		moduleNames = append(moduleNames, name)
	}
	sort.Strings(moduleNames)
	for _, name := range moduleNames {
		stack.ImportedModules[name] = true
		stack.ModuleAliases[name] = name
	}
	// Submissions see every tag and record constructor unqualified, so a
	// type declared in one submission is usable in the next.
	for _, name := range moduleNames {
		module := modules[name]
		typeNames := make([]string, 0, len(module.Types))
		for typeName := range module.Types {
			typeNames = append(typeNames, typeName)
		}
		sort.Strings(typeNames)
		for _, typeName := range typeNames {
			exposeTypeTags(stack, name, typeName, module.Types[typeName])
		}
	}
	values := importedFunctionValues(stack)
	for _, decl := range interactive {
		stack.LocalDeclarations[decl.Name] = true
		values[decl.Name] = decl.Value
	}
	return &InteractiveContext{
		compiler: NewCompiler(),
		stack:    stack,
		values:   values,
	}
}

// CompileExpression compiles and evaluates an expression submission.
func (ctx *InteractiveContext) CompileExpression(expr syntax.Expr) (pine.Value, error) {
	ir, err := ctx.compiler.compileExpr(ctx.stack, expr)
	if err != nil {
		return nil, err
	}
	return emit.EmitClosedExpression(ir, ctx.values)
}

// CompileDeclaration compiles a declaration submission to its value. The
// declaration may reference itself; it is emitted like a single-member
// module.
func (ctx *InteractiveContext) CompileDeclaration(decl *syntax.FunctionDeclaration) (pine.Value, error) {
	stack := ctx.stack.clone()
	stack.LocalDeclarations[decl.Name] = true
	ir, err := ctx.compiler.compileDeclaration(stack, decl)
	if err != nil {
		return nil, diag.WithPath(err, fmt.Sprintf("Failed to compile function %q", decl.Name))
	}
	emitted, err := emit.EmitModuleDeclarations(
		map[string]core.Expr{decl.Name: ir},
		[]string{decl.Name},
		ctx.values,
	)
	if err != nil {
		return nil, err
	}
	return emitted[decl.Name], nil
}
