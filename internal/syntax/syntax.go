// Package syntax defines the surface-language AST produced by the parser
// and consumed by the front compiler. Nodes carry source ranges; the
// compiler uses them only for operator re-association, which must respect
// source order within a precedence level.
package syntax

import "strings"

// Position is a 1-based line/column source location.
type Position struct {
	Line   int
	Column int
}

// Range spans from Start (inclusive) to End (exclusive).
type Range struct {
	Start Position
	End   Position
}

// Before reports whether r starts strictly before other in source order.
func (r Range) Before(other Range) bool {
	if r.Start.Line != other.Start.Line {
		return r.Start.Line < other.Start.Line
	}
	return r.Start.Column < other.Start.Column
}

// File is a parsed source module.
type File struct {
	Module       ModuleDefinition
	Imports      []Import
	Declarations []Declaration
}

// ModuleDefinition is the module header.
type ModuleDefinition struct {
	Name     []string
	Exposing Exposing
	Range    Range
}

// ModuleName returns the dot-joined module name.
func (m ModuleDefinition) ModuleName() string {
	return strings.Join(m.Name, ".")
}

// Import is one import declaration.
type Import struct {
	ModuleName []string
	Alias      string    // empty when no alias
	Exposing   *Exposing // nil when nothing is exposed
	Range      Range
}

// Exposing is an exposing clause: everything, or an explicit list.
type Exposing struct {
	All   bool
	Items []ExposedItem
}

// ExposedItem is one entry of an explicit exposing list. OpenTags is set
// for `Type(..)`.
type ExposedItem struct {
	Name     string
	OpenTags bool
}

// Exposes reports whether the clause exposes the given name.
func (e Exposing) Exposes(name string) bool {
	if e.All {
		return true
	}
	for _, item := range e.Items {
		if item.Name == name {
			return true
		}
	}
	return false
}

// Declaration is a top-level declaration.
type Declaration interface {
	declNode()
}

// FunctionDeclaration is a function or value declaration. A value
// declaration has no parameters.
type FunctionDeclaration struct {
	Name   string
	Params []Pattern
	Body   Expr
	Range  Range
}

// TypeTag is one constructor of a custom type.
type TypeTag struct {
	Name  string
	Arity int
}

// CustomTypeDeclaration declares a choice type.
type CustomTypeDeclaration struct {
	Name       string
	TypeParams []string
	Tags       []TypeTag
	Range      Range
}

// AliasDeclaration declares a type alias. Only record aliases have a
// runtime artifact (their constructor); Fields is nil otherwise.
type AliasDeclaration struct {
	Name   string
	Fields []string // field names in declared order, nil for non-records
	Range  Range
}

// PortDeclaration is recognized by the parser and rejected downstream.
type PortDeclaration struct {
	Name  string
	Range Range
}

// InfixDeclaration is recognized by the parser and rejected downstream.
type InfixDeclaration struct {
	Operator string
	Range    Range
}

func (*FunctionDeclaration) declNode()   {}
func (*CustomTypeDeclaration) declNode() {}
func (*AliasDeclaration) declNode()      {}
func (*PortDeclaration) declNode()       {}
func (*InfixDeclaration) declNode()      {}

// Expr is a surface expression.
type Expr interface {
	ExprRange() Range
	exprNode()
}

// ExprBase carries the source range shared by every expression node.
type ExprBase struct {
	Range Range
}

// ExprRange returns the node's source range.
func (e ExprBase) ExprRange() Range { return e.Range }

// Base builds an ExprBase, for use in composite literals.
func Base(r Range) ExprBase { return ExprBase{Range: r} }

// IntegerLiteral covers decimal and hex literals.
type IntegerLiteral struct {
	ExprBase
	Value int64
}

// FloatLiteral is parsed but rejected by the front compiler.
type FloatLiteral struct {
	ExprBase
	Text string
}

// CharLiteral is a character literal.
type CharLiteral struct {
	ExprBase
	Value rune
}

// StringLiteral is a string literal.
type StringLiteral struct {
	ExprBase
	Value string
}

// Negation is unary minus.
type Negation struct {
	ExprBase
	Operand Expr
}

// FunctionOrValue is a possibly-qualified name reference.
type FunctionOrValue struct {
	ExprBase
	ModuleName []string
	Name       string
}

// IfBlock is a conditional expression.
type IfBlock struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

// ListLiteral is a list literal.
type ListLiteral struct {
	ExprBase
	Items []Expr
}

// TupleExpr is a tuple of two or three elements.
type TupleExpr struct {
	ExprBase
	Items []Expr
}

// UnitExpr is the unit value ().
type UnitExpr struct {
	ExprBase
}

// ParenthesizedExpr wraps an expression; it is transparent except that it
// stops operator re-association.
type ParenthesizedExpr struct {
	ExprBase
	Inner Expr
}

// LambdaExpr is an anonymous function.
type LambdaExpr struct {
	ExprBase
	Params []Pattern
	Body   Expr
}

// Application applies the first item to the rest.
type Application struct {
	ExprBase
	Items []Expr
}

// OperatorApplication is a binary operator application as parsed, before
// re-association.
type OperatorApplication struct {
	ExprBase
	Operator string
	Left     Expr
	Right    Expr
}

// PrefixOperator is an operator in function position, e.g. (+).
type PrefixOperator struct {
	ExprBase
	Operator string
}

// RecordField is one field of a record literal or update.
type RecordField struct {
	Name  string
	Value Expr
}

// RecordExpr is a record literal.
type RecordExpr struct {
	ExprBase
	Fields []RecordField
}

// RecordAccess is a field access e.f.
type RecordAccess struct {
	ExprBase
	Record Expr
	Field  string
}

// RecordAccessFunction is a field access function .f.
type RecordAccessFunction struct {
	ExprBase
	Field string
}

// RecordUpdate is { r | f = e, ... }.
type RecordUpdate struct {
	ExprBase
	RecordName string
	Fields     []RecordField
}

// LetFunction is a function or value declaration inside a let block.
type LetFunction struct {
	Declaration FunctionDeclaration
}

// LetDestructuring binds a pattern to an expression inside a let block.
type LetDestructuring struct {
	Pattern Pattern
	Expr    Expr
}

// LetDeclaration is one declaration of a let block.
type LetDeclaration interface {
	letDecl()
}

func (*LetFunction) letDecl()      {}
func (*LetDestructuring) letDecl() {}

// LetBlock is let ... in body.
type LetBlock struct {
	ExprBase
	Declarations []LetDeclaration
	Body         Expr
}

// CaseBranch is one branch of a case block.
type CaseBranch struct {
	Pattern Pattern
	Body    Expr
}

// CaseBlock is case subject of branches.
type CaseBlock struct {
	ExprBase
	Subject  Expr
	Branches []CaseBranch
}

func (*IntegerLiteral) exprNode()       {}
func (*FloatLiteral) exprNode()         {}
func (*CharLiteral) exprNode()          {}
func (*StringLiteral) exprNode()        {}
func (*Negation) exprNode()             {}
func (*FunctionOrValue) exprNode()      {}
func (*IfBlock) exprNode()              {}
func (*ListLiteral) exprNode()          {}
func (*TupleExpr) exprNode()            {}
func (*UnitExpr) exprNode()             {}
func (*ParenthesizedExpr) exprNode()    {}
func (*LambdaExpr) exprNode()           {}
func (*Application) exprNode()          {}
func (*OperatorApplication) exprNode()  {}
func (*PrefixOperator) exprNode()       {}
func (*RecordExpr) exprNode()           {}
func (*RecordAccess) exprNode()         {}
func (*RecordAccessFunction) exprNode() {}
func (*RecordUpdate) exprNode()         {}
func (*LetBlock) exprNode()             {}
func (*CaseBlock) exprNode()            {}

