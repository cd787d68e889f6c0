package pipeline

import (
	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/frontend"
	"github.com/conifer-lang/conifer/internal/lexer"
	"github.com/conifer-lang/conifer/internal/parser"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// CompileSubmission compiles one interactive submission, a declaration
// or a free-standing expression, into a program that evaluates under the
// current environment to [newEnvironment, responseValue].
func CompileSubmission(env pine.Value, submission string) (pine.Expr, error) {
	modules, interactive, err := codec.ParseModulesFromEnvironment(env)
	if err != nil {
		return nil, err
	}
	ctx := frontend.NewInteractiveContext(modules, interactive)

	isDecl, err := looksLikeDeclaration(submission)
	if err != nil {
		return nil, err
	}
	if isDecl {
		decl, err := parseSubmissionDeclaration(submission)
		if err != nil {
			return nil, err
		}
		switch d := decl.(type) {
		case *syntax.FunctionDeclaration:
			value, err := ctx.CompileDeclaration(d)
			if err != nil {
				return nil, err
			}
			return extendEnvironmentProgram(d.Name, value, &pine.LiteralExpr{Value: value}), nil

		case *syntax.CustomTypeDeclaration:
			return compileTypeSubmission(modules, func(m *codec.ModuleInCompilation) {
				choice := &codec.ChoiceType{}
				for _, tag := range d.Tags {
					choice.Tags = append(choice.Tags, codec.TypeTag{Name: tag.Name, Arity: tag.Arity})
				}
				m.Types[d.Name] = choice
			})

		case *syntax.AliasDeclaration:
			if d.Fields == nil {
				return nil, diag.New(diag.CodeUnsupported, "pipeline",
					"only record aliases can extend the environment")
			}
			return compileTypeSubmission(modules, func(m *codec.ModuleInCompilation) {
				m.Types[d.Name] = &codec.RecordType{Fields: append([]string{}, d.Fields...)}
			})
		}
		return nil, diag.New(diag.CodeUnsupported, "pipeline",
			"only function, value, and type declarations can extend the environment")
	}

	expr, err := parser.ParseExpressionString(submission)
	if err != nil {
		return nil, err
	}
	value, err := ctx.CompileExpression(expr)
	if err != nil {
		return nil, err
	}
	return &pine.ListExpr{Items: []pine.Expr{
		&pine.EnvironmentExpr{},
		&pine.LiteralExpr{Value: value},
	}}, nil
}

// EvaluateSubmission compiles a submission and runs it, returning the
// extended environment and the response value. On failure the
// environment is returned unchanged.
func EvaluateSubmission(env pine.Value, submission string) (pine.Value, pine.Value, error) {
	program, err := CompileSubmission(env, submission)
	if err != nil {
		return env, nil, err
	}
	result, err := pine.Evaluate(env, program)
	if err != nil {
		return env, nil, err
	}
	items, ok := pine.ListItems(result)
	if !ok || len(items) != 2 {
		return env, nil, diag.New(diag.CodeInvariantViolation, "pipeline",
			"submission program returned %s", pine.DescribeValue(result))
	}
	return items[0], items[1], nil
}

// SubmissionEvaluation replays past submissions over the environment,
// evaluates the new submission, and renders its response.
func SubmissionEvaluation(env pine.Value, previousSubmissions []string, submission string) (string, error) {
	current := env
	for _, previous := range previousSubmissions {
		next, _, err := EvaluateSubmission(current, previous)
		if err != nil {
			return "", diag.WithPath(err, "past submission")
		}
		current = next
	}
	_, response, err := EvaluateSubmission(current, submission)
	if err != nil {
		return "", err
	}
	return DisplayText(response), nil
}

// looksLikeDeclaration is the lexical preprocess deciding between a
// declaration and an expression: a declaration has an '=' outside every
// bracket pair and outside let blocks.
func looksLikeDeclaration(submission string) (bool, error) {
	toks, err := lexer.Lex(submission)
	if err != nil {
		return false, diag.New(diag.CodeParseError, "pipeline", "%v", err)
	}
	depth := 0
	letDepth := 0
	for _, tok := range toks {
		switch tok.Type {
		case lexer.LParen, lexer.LBracket, lexer.LBrace:
			depth++
		case lexer.RParen, lexer.RBracket, lexer.RBrace:
			depth--
		case lexer.KwLet:
			letDepth++
		case lexer.KwIn:
			if letDepth > 0 {
				letDepth--
			}
		case lexer.Equals:
			if depth == 0 && letDepth == 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

// interactiveModuleName holds the types declared interactively.
const interactiveModuleName = "Interactive"

// extendEnvironmentProgram wraps a new environment entry and a response
// into the submission program shape.
func extendEnvironmentProgram(name string, value pine.Value, response pine.Expr) pine.Expr {
	newEntry := pine.List(pine.ValueFromString(name), value)
	return &pine.ListExpr{Items: []pine.Expr{
		&pine.KernelAppExpr{
			Name: "concat",
			Arg: &pine.ListExpr{Items: []pine.Expr{
				&pine.EnvironmentExpr{},
				&pine.LiteralExpr{Value: pine.List(newEntry)},
			}},
		},
		response,
	}}
}

// compileTypeSubmission records a type declaration in the synthetic
// interactive module; the submission responds with the unit value.
func compileTypeSubmission(
	modules map[string]*codec.ModuleInCompilation,
	update func(*codec.ModuleInCompilation),
) (pine.Expr, error) {
	module := modules[interactiveModuleName]
	if module == nil {
		module = &codec.ModuleInCompilation{
			Name:      interactiveModuleName,
			Functions: map[string]pine.Value{},
			Types:     map[string]codec.TypeDecl{},
		}
	}
	update(module)
	return extendEnvironmentProgram(
		interactiveModuleName,
		codec.EmitModuleValue(module),
		&pine.ListExpr{},
	), nil
}

// parseSubmissionDeclaration parses a declaration submission, rejecting
// the forms that cannot extend an environment.
func parseSubmissionDeclaration(submission string) (syntax.Declaration, error) {
	toks, err := lexer.Lex(submission)
	if err != nil {
		return nil, diag.New(diag.CodeParseError, "pipeline", "%v", err)
	}
	if len(toks) > 0 {
		switch toks[0].Type {
		case lexer.LParen, lexer.LBrace, lexer.LBracket, lexer.UpperName, lexer.Underscore:
			return nil, diag.New(diag.CodeUnsupported, "pipeline",
				"destructuring is not supported as a top-level submission")
		}
	}
	decl, err := parser.ParseDeclarationString(submission)
	if err != nil {
		return nil, err
	}
	switch decl.(type) {
	case *syntax.PortDeclaration:
		return nil, diag.New(diag.CodeUnsupported, "pipeline",
			"port declarations are not supported as submissions")
	case *syntax.InfixDeclaration:
		return nil, diag.New(diag.CodeUnsupported, "pipeline",
			"infix declarations are not supported as submissions")
	}
	return decl, nil
}
