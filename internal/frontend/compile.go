// Package frontend translates parsed surface modules into compiled
// modules: it resolves imports and the auto-imported names, expands
// inline constructors, desugars case/let/lambda/record syntax into the
// IR, re-associates operator applications, and hands the per-declaration
// IR to the back emitter.
package frontend

import (
	"fmt"
	"strings"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/emit"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// Compiler carries the per-run state of the front compiler; everything
// else is threaded through CompilationStack values.
type Compiler struct {
	freshCounter int
}

// NewCompiler creates a front compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

func (c *Compiler) freshName(prefix string) string {
	c.freshCounter++
	return fmt.Sprintf("%s_%d", prefix, c.freshCounter)
}

// CompileModule compiles a parsed module against the already-compiled
// modules, producing its function values and type descriptors.
func (c *Compiler) CompileModule(
	file *syntax.File,
	available map[string]*codec.ModuleInCompilation,
) (*codec.ModuleInCompilation, error) {
	stack, err := newModuleStack(file, available)
	if err != nil {
		return nil, diag.WithPath(err, fmt.Sprintf("module %q", file.Module.ModuleName()))
	}

	module := &codec.ModuleInCompilation{
		Name:      file.Module.ModuleName(),
		Functions: map[string]pine.Value{},
		Types:     map[string]codec.TypeDecl{},
	}

	var fnDecls []*syntax.FunctionDeclaration
	for _, decl := range file.Declarations {
		switch d := decl.(type) {
		case *syntax.FunctionDeclaration:
			fnDecls = append(fnDecls, d)
			stack.LocalDeclarations[d.Name] = true
		case *syntax.CustomTypeDeclaration:
			choice := &codec.ChoiceType{}
			for _, tag := range d.Tags {
				choice.Tags = append(choice.Tags, codec.TypeTag{Name: tag.Name, Arity: tag.Arity})
				qualified := module.Name + "." + tag.Name
				if override, ok := inlineOverrides[qualified]; ok {
					stack.InlineableDeclarations[tag.Name] = override
					continue
				}
				stack.InlineableDeclarations[tag.Name] = &TagConstructor{TagName: tag.Name, Arity: tag.Arity}
			}
			module.Types[d.Name] = choice
		case *syntax.AliasDeclaration:
			if d.Fields == nil {
				continue
			}
			module.Types[d.Name] = &codec.RecordType{Fields: append([]string{}, d.Fields...)}
			stack.InlineableDeclarations[d.Name] = &RecordConstructor{Fields: d.Fields}
		case *syntax.PortDeclaration:
			return nil, diag.New(diag.CodeUnsupported, "frontend",
				"port declaration %q is not supported", d.Name)
		case *syntax.InfixDeclaration:
			// Operator precedence is fixed by the compiler's table.
		}
	}

	irDecls := map[string]core.Expr{}
	for _, decl := range fnDecls {
		ir, err := c.compileDeclaration(stack, decl)
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("Failed to compile function %q", decl.Name))
		}
		irDecls[decl.Name] = ir
	}

	exposed := exposedFunctionNames(file, irDecls)
	emitted, err := emit.EmitModuleDeclarations(irDecls, exposed, importedFunctionValues(stack))
	if err != nil {
		return nil, diag.WithPath(err, fmt.Sprintf("module %q", module.Name))
	}
	module.Functions = emitted
	return module, nil
}

func exposedFunctionNames(file *syntax.File, decls map[string]core.Expr) []string {
	if file.Module.Exposing.All {
		return core.DeclarationNames(decls)
	}
	var out []string
	for _, item := range file.Module.Exposing.Items {
		if _, ok := decls[item.Name]; ok {
			out = append(out, item.Name)
		}
	}
	return out
}

// compileDeclaration compiles one function or value declaration to IR.
func (c *Compiler) compileDeclaration(stack *CompilationStack, decl *syntax.FunctionDeclaration) (core.Expr, error) {
	if len(decl.Params) == 0 {
		return c.compileExpr(stack, decl.Body)
	}
	return c.compileFunction(stack, decl.Params, decl.Body)
}

func (c *Compiler) compileFunction(stack *CompilationStack, params []syntax.Pattern, body syntax.Expr) (core.Expr, error) {
	compiled := make([][]core.FunctionParamName, len(params))
	var boundNames []string
	for i, param := range params {
		bindings, err := c.paramBindings(stack, param)
		if err != nil {
			return nil, err
		}
		compiled[i] = bindings
		for _, b := range bindings {
			boundNames = append(boundNames, b.Name)
		}
	}
	bodyIR, err := c.compileExpr(stack.withLocalBindings(boundNames), body)
	if err != nil {
		return nil, err
	}
	return &core.Function{Params: compiled, Body: bodyIR}, nil
}

// compileExpr compiles one surface expression to IR.
func (c *Compiler) compileExpr(stack *CompilationStack, expr syntax.Expr) (core.Expr, error) {
	switch e := expr.(type) {
	case *syntax.IntegerLiteral:
		return &core.Literal{Value: pine.ValueFromInt(e.Value)}, nil

	case *syntax.CharLiteral:
		return &core.Literal{Value: pine.ValueFromChar(e.Value)}, nil

	case *syntax.StringLiteral:
		return &core.Literal{Value: stringValue(e.Value)}, nil

	case *syntax.FloatLiteral:
		return nil, diag.New(diag.CodeUnsupported, "frontend",
			"floating-point literals are not supported")

	case *syntax.Negation:
		operand, err := c.compileExpr(stack, e.Operand)
		if err != nil {
			return nil, err
		}
		return &core.KernelApplication{Name: "negate", Arg: operand}, nil

	case *syntax.FunctionOrValue:
		return c.resolveName(stack, e.ModuleName, e.Name)

	case *syntax.IfBlock:
		return c.compileIf(stack, e)

	case *syntax.ListLiteral:
		return c.compileListItems(stack, e.Items)

	case *syntax.TupleExpr:
		return c.compileListItems(stack, e.Items)

	case *syntax.UnitExpr:
		return &core.ListExpr{}, nil

	case *syntax.ParenthesizedExpr:
		return c.compileExpr(stack, e.Inner)

	case *syntax.LambdaExpr:
		return c.compileFunction(stack, e.Params, e.Body)

	case *syntax.Application:
		return c.compileApplication(stack, e)

	case *syntax.OperatorApplication:
		return c.compileOperator(stack, Reassociate(e))

	case *syntax.PrefixOperator:
		return c.resolveName(stack, nil, "("+e.Operator+")")

	case *syntax.RecordExpr:
		return c.compileRecord(stack, e)

	case *syntax.RecordAccess:
		record, err := c.compileExpr(stack, e.Record)
		if err != nil {
			return nil, err
		}
		return &core.PineFunctionApply{
			Function: recordAccessFunction,
			Arg: &core.ListExpr{Items: []core.Expr{
				record,
				&core.Literal{Value: pine.ValueFromString(e.Field)},
			}},
		}, nil

	case *syntax.RecordAccessFunction:
		return &core.Function{
			Params: [][]core.FunctionParamName{{{Name: "r"}}},
			Body: &core.PineFunctionApply{
				Function: recordAccessFunction,
				Arg: &core.ListExpr{Items: []core.Expr{
					&core.Ref{Name: "r"},
					&core.Literal{Value: pine.ValueFromString(e.Field)},
				}},
			},
		}, nil

	case *syntax.RecordUpdate:
		return c.compileRecordUpdate(stack, e)

	case *syntax.LetBlock:
		return c.compileLet(stack, e)

	case *syntax.CaseBlock:
		return c.compileCase(stack, e)
	}
	return nil, diag.New(diag.CodeInvariantViolation, "frontend", "unknown expression %T", expr)
}

func (c *Compiler) compileIf(stack *CompilationStack, e *syntax.IfBlock) (core.Expr, error) {
	cond, err := c.compileExpr(stack, e.Cond)
	if err != nil {
		return nil, err
	}
	thenExpr, err := c.compileExpr(stack, e.Then)
	if err != nil {
		return nil, err
	}
	elseExpr, err := c.compileExpr(stack, e.Else)
	if err != nil {
		return nil, err
	}
	return &core.Conditional{Cond: cond, IfTrue: thenExpr, IfFalse: elseExpr}, nil
}

func (c *Compiler) compileListItems(stack *CompilationStack, items []syntax.Expr) (core.Expr, error) {
	out := make([]core.Expr, len(items))
	for i, item := range items {
		compiled, err := c.compileExpr(stack, item)
		if err != nil {
			return nil, err
		}
		out[i] = compiled
	}
	return &core.ListExpr{Items: out}, nil
}

// compileApplication handles the special cases of application: kernel
// calls and inlineable declarations, falling back to Apply.
func (c *Compiler) compileApplication(stack *CompilationStack, e *syntax.Application) (core.Expr, error) {
	args := make([]core.Expr, len(e.Items)-1)
	for i, item := range e.Items[1:] {
		compiled, err := c.compileExpr(stack, item)
		if err != nil {
			return nil, err
		}
		args[i] = compiled
	}

	if fn, ok := e.Items[0].(*syntax.FunctionOrValue); ok {
		if len(fn.ModuleName) == 1 && fn.ModuleName[0] == "Pine_kernel" {
			if len(args) != 1 {
				return nil, diag.New(diag.CodeUnsupported, "frontend",
					"Pine_kernel.%s takes exactly one argument, got %d", fn.Name, len(args))
			}
			return &core.KernelApplication{Name: fn.Name, Arg: args[0]}, nil
		}
		return c.resolveApplication(stack, fn.ModuleName, fn.Name, args)
	}

	fnExpr, err := c.compileExpr(stack, e.Items[0])
	if err != nil {
		return nil, err
	}
	return &core.Apply{Fn: fnExpr, Args: args}, nil
}

func (c *Compiler) compileOperator(stack *CompilationStack, expr syntax.Expr) (core.Expr, error) {
	op, ok := expr.(*syntax.OperatorApplication)
	if !ok {
		return c.compileExpr(stack, expr)
	}
	left, err := c.compileOperator(stack, op.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compileOperator(stack, op.Right)
	if err != nil {
		return nil, err
	}
	return c.resolveApplication(stack, nil, "("+op.Operator+")", []core.Expr{left, right})
}

func (c *Compiler) compileRecord(stack *CompilationStack, e *syntax.RecordExpr) (core.Expr, error) {
	fields := map[string]core.Expr{}
	names := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		if _, dup := fields[field.Name]; dup {
			return nil, diag.New(diag.CodeUnsupported, "frontend",
				"duplicate record field %q", field.Name)
		}
		value, err := c.compileExpr(stack, field.Value)
		if err != nil {
			return nil, err
		}
		fields[field.Name] = value
		names = append(names, field.Name)
	}
	constructor := &RecordConstructor{Fields: names}
	args := make([]core.Expr, len(names))
	for i, name := range names {
		args[i] = fields[name]
	}
	return applyRecordConstructor(constructor, args)
}

func (c *Compiler) compileRecordUpdate(stack *CompilationStack, e *syntax.RecordUpdate) (core.Expr, error) {
	record, err := c.resolveName(stack, nil, e.RecordName)
	if err != nil {
		return nil, err
	}
	pairs := make([]core.Expr, len(e.Fields))
	for i, field := range e.Fields {
		value, err := c.compileExpr(stack, field.Value)
		if err != nil {
			return nil, err
		}
		pairs[i] = &core.ListExpr{Items: []core.Expr{
			&core.Literal{Value: pine.ValueFromString(field.Name)},
			value,
		}}
	}
	return &core.PineFunctionApply{
		Function: recordUpdateFunction,
		Arg: &core.ListExpr{Items: []core.Expr{
			record,
			&core.ListExpr{Items: pairs},
		}},
	}, nil
}

// compileLet lifts let functions into a DeclBlock; destructurings
// produce one inlined binding per leaf name.
func (c *Compiler) compileLet(stack *CompilationStack, e *syntax.LetBlock) (core.Expr, error) {
	inner := stack.clone()
	var fnDecls []*syntax.FunctionDeclaration
	for _, decl := range e.Declarations {
		if fn, ok := decl.(*syntax.LetFunction); ok {
			fnDecls = append(fnDecls, &fn.Declaration)
			inner.LocalDeclarations[fn.Declaration.Name] = true
		}
	}

	for _, decl := range e.Declarations {
		destr, ok := decl.(*syntax.LetDestructuring)
		if !ok {
			continue
		}
		value, err := c.compileExpr(inner, destr.Expr)
		if err != nil {
			return nil, err
		}
		result, err := c.compilePattern(inner, destr.Pattern, value)
		if err != nil {
			return nil, err
		}
		if len(result.bindings) == 0 {
			return nil, diag.New(diag.CodeUnsupported, "frontend",
				"let destructuring binds no names")
		}
		for _, binding := range result.bindings {
			inner = inner.withInlineable(binding.Name, &InlinedExpr{
				Expr: core.ApplyDeconstructionPathToIR(binding.Path, value),
			})
		}
	}

	declarations := map[string]core.Expr{}
	for _, decl := range fnDecls {
		ir, err := c.compileDeclaration(inner, decl)
		if err != nil {
			return nil, diag.WithPath(err, fmt.Sprintf("Failed to compile function %q", decl.Name))
		}
		declarations[decl.Name] = ir
	}

	body, err := c.compileExpr(inner, e.Body)
	if err != nil {
		return nil, err
	}
	if len(declarations) == 0 {
		return body, nil
	}
	return &core.DeclBlock{Declarations: declarations, Body: body}, nil
}

// compileCase builds both the inline and the shared-subject form of a
// case block and keeps the one with fewer function-application sites.
func (c *Compiler) compileCase(stack *CompilationStack, e *syntax.CaseBlock) (core.Expr, error) {
	subject, err := c.compileExpr(stack, e.Subject)
	if err != nil {
		return nil, err
	}

	inline, err := c.buildCaseChain(stack, e, subject)
	if err != nil {
		return nil, err
	}

	sharedName := c.freshName("caseSubject")
	sharedStack := stack.withLocalBindings([]string{sharedName})
	sharedChain, err := c.buildCaseChain(sharedStack, e, &core.Ref{Name: sharedName})
	if err != nil {
		return nil, err
	}
	shared := &core.Apply{
		Fn: &core.Function{
			Params: [][]core.FunctionParamName{{{Name: sharedName}}},
			Body:   sharedChain,
		},
		Args: []core.Expr{subject},
	}

	if core.CountApplications(inline) <= core.CountApplications(shared) {
		return inline, nil
	}
	return shared, nil
}

// buildCaseChain folds the branches right-to-left into conditionals over
// the no-match sentinel. Pattern bindings become inlined declarations of
// the branch body.
func (c *Compiler) buildCaseChain(stack *CompilationStack, e *syntax.CaseBlock, subject core.Expr) (core.Expr, error) {
	var result core.Expr = &core.ListExpr{Items: []core.Expr{
		&core.Literal{Value: pine.ValueFromString("Error in case-of block: No matching branch.")},
		subject,
	}}
	for i := len(e.Branches) - 1; i >= 0; i-- {
		branch := e.Branches[i]
		compiled, err := c.compilePattern(stack, branch.Pattern, subject)
		if err != nil {
			return nil, err
		}
		branchStack := stack
		for _, binding := range compiled.bindings {
			branchStack = branchStack.withInlineable(binding.Name, &InlinedExpr{
				Expr: core.ApplyDeconstructionPathToIR(binding.Path, subject),
			})
		}
		body, err := c.compileExpr(branchStack, branch.Body)
		if err != nil {
			return nil, err
		}
		condition := combineConditions(compiled.conditions)
		if condition == nil {
			result = body
			continue
		}
		result = &core.Conditional{Cond: condition, IfTrue: body, IfFalse: result}
	}
	return result, nil
}

// combineConditions folds a condition list into one boolean expression;
// nil means the pattern always matches.
func combineConditions(conds []core.Expr) core.Expr {
	if len(conds) == 0 {
		return nil
	}
	result := conds[len(conds)-1]
	for i := len(conds) - 2; i >= 0; i-- {
		result = &core.Conditional{
			Cond:    conds[i],
			IfTrue:  result,
			IfFalse: &core.Literal{Value: pine.FalseValue},
		}
	}
	return result
}

// resolveName resolves a possibly-qualified reference in value position.
func (c *Compiler) resolveName(stack *CompilationStack, moduleName []string, name string) (core.Expr, error) {
	return c.resolveApplication(stack, moduleName, name, nil)
}

// resolveApplication resolves a reference and applies it to the given
// arguments. Qualified names go through the module aliases; unqualified
// names resolve in the order local bindings, inlineables, the module's own
// declarations, imported names, auto-exposed globals.
func (c *Compiler) resolveApplication(stack *CompilationStack, moduleName []string, name string, args []core.Expr) (core.Expr, error) {
	if len(moduleName) > 0 {
		return c.resolveQualified(stack, strings.Join(moduleName, "."), name, args)
	}

	// The boolean operators keep their short-circuit semantics: applied
	// to both operands they lower to a conditional instead of a call.
	if len(args) == 2 {
		switch name {
		case "(&&)":
			return &core.Conditional{
				Cond:    args[0],
				IfTrue:  args[1],
				IfFalse: &core.Literal{Value: pine.FalseValue},
			}, nil
		case "(||)":
			return &core.Conditional{
				Cond:    args[0],
				IfTrue:  &core.Literal{Value: pine.TrueValue},
				IfFalse: args[1],
			}, nil
		}
	}

	if stack.LocalBindings[name] {
		return applyRef(name, args), nil
	}
	if inl, ok := stack.InlineableDeclarations[name]; ok {
		return applyInlineable(inl, args)
	}
	if stack.LocalDeclarations[name] {
		return applyRef(name, args), nil
	}
	if qualified, ok := stack.ImportedFunctions[name]; ok {
		return applyRef(qualified, args), nil
	}
	if global, ok := autoExposedGlobals[name]; ok {
		return c.resolveGlobal(stack, global, args)
	}
	if strings.HasPrefix(name, "(") {
		return nil, diag.UnresolvedReference("frontend", name, "the operator table")
	}
	// Unknown lower-case names may still be parameters introduced by an
	// enclosing pattern; the emitter resolves or rejects them.
	return applyRef(name, args), nil
}

func (c *Compiler) resolveQualified(stack *CompilationStack, moduleName, name string, args []core.Expr) (core.Expr, error) {
	canonical, ok := stack.ModuleAliases[moduleName]
	if !ok {
		canonical = moduleName
	}
	qualified := canonical + "." + name

	if override, ok := inlineOverrides[qualified]; ok {
		return applyInlineable(override, args)
	}
	if canonical == stack.CurrentModule {
		return c.resolveApplication(stack, nil, name, args)
	}
	if !stack.ImportedModules[canonical] {
		return nil, diag.UnresolvedReference("frontend", qualified,
			fmt.Sprintf("imports of module %q", stack.CurrentModule))
	}
	module := stack.AvailableModules[canonical]
	if module == nil {
		return nil, diag.UnresolvedReference("frontend", qualified, "the compiled modules")
	}
	if tag, ok := lookupModuleTag(module, name); ok {
		return applyInlineable(tag, args)
	}
	if record, ok := module.Types[name].(*codec.RecordType); ok {
		return applyInlineable(&RecordConstructor{Fields: record.Fields}, args)
	}
	if _, ok := module.Functions[name]; ok {
		return applyRef(qualified, args), nil
	}
	return nil, diag.UnresolvedReference("frontend", qualified,
		fmt.Sprintf("module %q", canonical))
}

// resolveGlobal resolves one auto-exposed global to its home module.
func (c *Compiler) resolveGlobal(stack *CompilationStack, global exposedGlobal, args []core.Expr) (core.Expr, error) {
	qualified := global.Module + "." + global.Name
	if override, ok := inlineOverrides[qualified]; ok {
		return applyInlineable(override, args)
	}
	if global.Module == stack.CurrentModule {
		return applyRef(global.Name, args), nil
	}
	module := stack.AvailableModules[global.Module]
	if module == nil {
		return nil, diag.UnresolvedReference("frontend", qualified, "the compiled modules")
	}
	if tag, ok := lookupModuleTag(module, global.Name); ok {
		return applyInlineable(tag, args)
	}
	return applyRef(qualified, args), nil
}

func applyRef(name string, args []core.Expr) core.Expr {
	ref := &core.Ref{Name: name}
	if len(args) == 0 {
		return ref
	}
	return &core.Apply{Fn: ref, Args: args}
}
