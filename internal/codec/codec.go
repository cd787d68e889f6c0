// Package codec serializes compiled modules as kernel values and parses
// them back. The kernel value is the sole persistent artifact: the
// environment exchanged between sessions is a list of [nameBlob, value]
// pairs, and parse(emit(m)) must reproduce m exactly.
package codec

import (
	"sort"
	"strings"
	"unicode"

	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
)

// Type descriptor wrapper tags.
const (
	ChoiceTypeTag        = "ChoiceType"
	RecordConstructorTag = "RecordConstructor"
)

// TypeTag is one constructor of a choice type.
type TypeTag struct {
	Name  string
	Arity int
}

// TypeDecl describes a type declaration carried in a module value.
type TypeDecl interface {
	typeDecl()
}

// ChoiceType is a custom type with tagged constructors.
type ChoiceType struct {
	Tags []TypeTag
}

// RecordType is a record alias; Fields are in declared order.
type RecordType struct {
	Fields []string
}

func (*ChoiceType) typeDecl() {}
func (*RecordType) typeDecl() {}

// ModuleInCompilation is the compiled form of one module: its emitted
// function values and its type declarations.
type ModuleInCompilation struct {
	Name      string
	Functions map[string]pine.Value
	Types     map[string]TypeDecl
}

// EmitModuleValue serializes a module as a kernel list of named entries.
// Function entries come first, then type entries, each group sorted by
// name so that emission is deterministic.
func EmitModuleValue(m *ModuleInCompilation) pine.Value {
	var entries []pine.Value

	funcNames := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		funcNames = append(funcNames, name)
	}
	sort.Strings(funcNames)
	for _, name := range funcNames {
		entries = append(entries, pine.List(pine.ValueFromString(name), m.Functions[name]))
	}

	typeNames := make([]string, 0, len(m.Types))
	for name := range m.Types {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		entries = append(entries, pine.List(pine.ValueFromString(name), emitTypeDecl(m.Types[name])))
	}

	return &pine.ListValue{Items: entries}
}

func emitTypeDecl(decl TypeDecl) pine.Value {
	switch t := decl.(type) {
	case *ChoiceType:
		tags := make([]pine.Value, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = pine.List(pine.ValueFromString(tag.Name), pine.ValueFromInt(int64(tag.Arity)))
		}
		return pine.List(pine.ValueFromString(ChoiceTypeTag), &pine.ListValue{Items: tags})
	case *RecordType:
		fields := make([]pine.Value, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = pine.ValueFromString(f)
		}
		return pine.List(pine.ValueFromString(RecordConstructorTag), &pine.ListValue{Items: fields})
	}
	panic("emitTypeDecl: unknown type declaration")
}

func badEncoding(path []string, format string, args ...any) error {
	err := diag.New(diag.CodeBadModuleEncoding, "codec", format, args...)
	for i := len(path) - 1; i >= 0; i-- {
		err = diag.WithPath(err, path[i])
	}
	return err
}

// ParseModuleValue is the inverse of EmitModuleValue. It validates tag
// wrappers and reports a breadcrumb of the failing path.
func ParseModuleValue(name string, v pine.Value) (*ModuleInCompilation, error) {
	entries, ok := pine.ListItems(v)
	if !ok {
		return nil, badEncoding([]string{name}, "module value must be a list, got %s", pine.DescribeValue(v))
	}
	m := &ModuleInCompilation{
		Name:      name,
		Functions: map[string]pine.Value{},
		Types:     map[string]TypeDecl{},
	}
	for i, entry := range entries {
		entryName, value, err := parseNamedEntry(entry)
		if err != nil {
			return nil, badEncoding([]string{name}, "entry %d: %v", i, err)
		}
		if decl, isType := parseTypeDecl(value); isType {
			m.Types[entryName] = decl
			continue
		}
		m.Functions[entryName] = value
	}
	return m, nil
}

func parseNamedEntry(entry pine.Value) (string, pine.Value, error) {
	pair, ok := pine.ListItems(entry)
	if !ok || len(pair) != 2 {
		return "", nil, badEncoding(nil, "expected a [name, value] pair, got %s", pine.DescribeValue(entry))
	}
	name, err := pine.StringFromValue(pair[0])
	if err != nil {
		return "", nil, badEncoding(nil, "entry name: %v", err)
	}
	return name, pair[1], nil
}

// parseTypeDecl recognizes the ChoiceType / RecordConstructor wrappers.
// Values without a recognized wrapper are function values.
func parseTypeDecl(v pine.Value) (TypeDecl, bool) {
	pair, ok := pine.ListItems(v)
	if !ok || len(pair) != 2 {
		return nil, false
	}
	tag, err := pine.StringFromValue(pair[0])
	if err != nil {
		return nil, false
	}
	operands, ok := pine.ListItems(pair[1])
	if !ok {
		return nil, false
	}
	switch tag {
	case ChoiceTypeTag:
		decl := &ChoiceType{}
		for _, op := range operands {
			tagPair, ok := pine.ListItems(op)
			if !ok || len(tagPair) != 2 {
				return nil, false
			}
			tagName, err := pine.StringFromValue(tagPair[0])
			if err != nil {
				return nil, false
			}
			arity, err := pine.IntFromValue(tagPair[1])
			if err != nil {
				return nil, false
			}
			decl.Tags = append(decl.Tags, TypeTag{Name: tagName, Arity: int(arity)})
		}
		return decl, true
	case RecordConstructorTag:
		decl := &RecordType{}
		for _, op := range operands {
			field, err := pine.StringFromValue(op)
			if err != nil {
				return nil, false
			}
			decl.Fields = append(decl.Fields, field)
		}
		return decl, true
	}
	return nil, false
}

// NamedDeclaration is one entry of a persistent environment.
type NamedDeclaration struct {
	Name  string
	Value pine.Value
}

// GetDeclarationsFromEnvironment reads the named entries of an
// environment value.
func GetDeclarationsFromEnvironment(env pine.Value) ([]NamedDeclaration, error) {
	entries, ok := pine.ListItems(env)
	if !ok {
		return nil, badEncoding([]string{"environment"}, "environment must be a list, got %s", pine.DescribeValue(env))
	}
	out := make([]NamedDeclaration, 0, len(entries))
	for i, entry := range entries {
		name, value, err := parseNamedEntry(entry)
		if err != nil {
			return nil, badEncoding([]string{"environment"}, "entry %d: %v", i, err)
		}
		out = append(out, NamedDeclaration{Name: name, Value: value})
	}
	return out, nil
}

// AppendDeclarations extends an environment value with new entries,
// returning a new environment. The input is never mutated.
func AppendDeclarations(env pine.Value, decls []NamedDeclaration) pine.Value {
	existing, _ := pine.ListItems(env)
	items := make([]pine.Value, 0, len(existing)+len(decls))
	items = append(items, existing...)
	for _, d := range decls {
		items = append(items, pine.List(pine.ValueFromString(d.Name), d.Value))
	}
	return &pine.ListValue{Items: items}
}

// IsModuleName reports whether an environment entry name denotes a
// compiled module: every dot-separated segment starts upper-case.
func IsModuleName(name string) bool {
	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return false
		}
		first := []rune(segment)[0]
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

// ParseModulesFromEnvironment splits an environment into its compiled
// modules and its other (interactive) declarations.
func ParseModulesFromEnvironment(env pine.Value) (map[string]*ModuleInCompilation, []NamedDeclaration, error) {
	decls, err := GetDeclarationsFromEnvironment(env)
	if err != nil {
		return nil, nil, err
	}
	modules := map[string]*ModuleInCompilation{}
	var others []NamedDeclaration
	for _, d := range decls {
		if IsModuleName(d.Name) {
			m, err := ParseModuleValue(d.Name, d.Value)
			if err != nil {
				return nil, nil, err
			}
			modules[d.Name] = m
			continue
		}
		others = append(others, d)
	}
	return modules, others, nil
}
