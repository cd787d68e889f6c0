package frontend

import (
	"fmt"
	"sort"

	"github.com/conifer-lang/conifer/internal/core"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
)

// Inlineable is a declaration compiled inline at each use site instead
// of through a runtime closure: choice-type tag constructors, record
// constructors, override expressions, and pattern-bound values.
type Inlineable interface {
	inlineable()
}

// TagConstructor inlines a choice-type tag.
type TagConstructor struct {
	TagName string
	Arity   int
}

// RecordConstructor inlines a record alias constructor; Fields are in
// declared order and become the positional parameters.
type RecordConstructor struct {
	Fields []string
}

// InlinedExpr substitutes a fixed IR expression: compiler overrides and
// deconstructed pattern bindings.
type InlinedExpr struct {
	Expr core.Expr
}

func (*TagConstructor) inlineable()    {}
func (*RecordConstructor) inlineable() {}
func (*InlinedExpr) inlineable()       {}

// applyInlineable expands an inlineable declaration applied to the given
// (already compiled) arguments.
func applyInlineable(inl Inlineable, args []core.Expr) (core.Expr, error) {
	switch decl := inl.(type) {
	case *TagConstructor:
		return applyTagConstructor(decl, args)
	case *RecordConstructor:
		return applyRecordConstructor(decl, args)
	case *InlinedExpr:
		if len(args) == 0 {
			return decl.Expr, nil
		}
		return &core.Apply{Fn: decl.Expr, Args: args}, nil
	}
	return nil, diag.New(diag.CodeInvariantViolation, "frontend", "unknown inlineable %T", inl)
}

// applyTagConstructor builds the tag value inline when the arity
// matches, and a generic builder closure otherwise.
func applyTagConstructor(decl *TagConstructor, args []core.Expr) (core.Expr, error) {
	if len(args) > decl.Arity {
		return nil, diag.New(diag.CodeUnsupported, "frontend",
			"tag %s takes %d arguments, got %d", decl.TagName, decl.Arity, len(args))
	}
	if decl.Arity == 0 {
		return &core.Literal{Value: pine.List(pine.ValueFromString(decl.TagName), pine.List())}, nil
	}
	tagItems := append([]core.Expr{}, args...)
	var params [][]core.FunctionParamName
	for i := len(args); i < decl.Arity; i++ {
		name := fmt.Sprintf("tagArg%d", i)
		params = append(params, []core.FunctionParamName{{Name: name}})
		tagItems = append(tagItems, &core.Ref{Name: name})
	}
	constructed := &core.ListExpr{Items: []core.Expr{
		&core.Literal{Value: pine.ValueFromString(decl.TagName)},
		&core.ListExpr{Items: tagItems},
	}}
	if len(params) == 0 {
		return constructed, nil
	}
	return &core.Function{Params: params, Body: constructed}, nil
}

// applyRecordConstructor accepts the fields as positional arguments in
// declared order and builds the record with its fields reordered
// lexicographically.
func applyRecordConstructor(decl *RecordConstructor, args []core.Expr) (core.Expr, error) {
	if len(args) > len(decl.Fields) {
		return nil, diag.New(diag.CodeUnsupported, "frontend",
			"record constructor takes %d arguments, got %d", len(decl.Fields), len(args))
	}
	fieldValues := map[string]core.Expr{}
	for i, arg := range args {
		fieldValues[decl.Fields[i]] = arg
	}
	var params [][]core.FunctionParamName
	for i := len(args); i < len(decl.Fields); i++ {
		name := fmt.Sprintf("recordArg%d", i)
		params = append(params, []core.FunctionParamName{{Name: name}})
		fieldValues[decl.Fields[i]] = &core.Ref{Name: name}
	}
	sorted := append([]string{}, decl.Fields...)
	sort.Strings(sorted)
	var pairs []core.Expr
	for _, field := range sorted {
		pairs = append(pairs, &core.ListExpr{Items: []core.Expr{
			&core.Literal{Value: pine.ValueFromString(field)},
			fieldValues[field],
		}})
	}
	record := &core.ListExpr{Items: []core.Expr{
		&core.Literal{Value: pine.ValueFromString(RecordTag)},
		&core.ListExpr{Items: []core.Expr{&core.ListExpr{Items: pairs}}},
	}}
	if len(params) == 0 {
		return record, nil
	}
	return &core.Function{Params: params, Body: record}, nil
}

// inlineOverrides forces specific declarations to fixed expressions
// instead of their source definitions, keyed by canonical qualified
// name: the boolean tags become literal kernel booleans, Debug.log the
// identity on its second argument, and Debug.toString a placeholder
// string.
var inlineOverrides = map[string]Inlineable{
	"Basics.True":  &InlinedExpr{Expr: &core.Literal{Value: pine.TrueValue}},
	"Basics.False": &InlinedExpr{Expr: &core.Literal{Value: pine.FalseValue}},
	"Debug.log": &InlinedExpr{Expr: &core.Function{
		Params: [][]core.FunctionParamName{
			{{Name: "message"}},
			{{Name: "payload"}},
		},
		Body: &core.Ref{Name: "payload"},
	}},
	"Debug.toString": &InlinedExpr{Expr: &core.Function{
		Params: [][]core.FunctionParamName{{{Name: "payload"}}},
		Body:   &core.Literal{Value: stringValue("<Debug.toString>")},
	}},
}

// stringValue builds the runtime representation of a string literal:
// [Tag("String"), [utf8 bytes]].
func stringValue(s string) pine.Value {
	return pine.List(pine.ValueFromString("String"), pine.List(pine.ValueFromString(s)))
}
