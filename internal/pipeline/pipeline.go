// Package pipeline drives compilation: it reads the persistent
// environment, orders parsed modules by their imports, compiles each
// through the front compiler, and appends the emitted module values to
// the environment. It also compiles interactive submissions.
package pipeline

import (
	"sort"
	"strings"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/corelib"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/frontend"
	"github.com/conifer-lang/conifer/internal/parser"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// AddedModule names one module value appended to the environment.
type AddedModule struct {
	Name  string
	Value pine.Value
}

// ExpandResult is the outcome of ExpandEnvironmentWithModules.
type ExpandResult struct {
	Added []AddedModule
	Env   pine.Value
}

// ExpandEnvironmentWithModules compiles the parsed modules in dependency
// order against the environment's already-compiled modules, and returns
// the extended environment together with the manifest of added modules.
// The input environment is never mutated.
func ExpandEnvironmentWithModules(env pine.Value, files []*syntax.File) (*ExpandResult, error) {
	available, _, err := codec.ParseModulesFromEnvironment(env)
	if err != nil {
		return nil, err
	}

	sorted, err := sortModulesByImports(files)
	if err != nil {
		return nil, err
	}

	compiler := frontend.NewCompiler()
	result := &ExpandResult{}
	var entries []codec.NamedDeclaration
	for _, file := range sorted {
		module, err := compiler.CompileModule(file, available)
		if err != nil {
			return nil, err
		}
		available[module.Name] = module
		value := codec.EmitModuleValue(module)
		result.Added = append(result.Added, AddedModule{Name: module.Name, Value: value})
		entries = append(entries, codec.NamedDeclaration{Name: module.Name, Value: value})
	}
	result.Env = codec.AppendDeclarations(env, entries)
	return result, nil
}

// sortModulesByImports orders a batch of modules so that every module
// follows its explicit imports. Imports pointing outside the batch are
// resolved against the environment and contribute no edges; implicit
// imports never contribute edges. A cycle is a hard error carrying the
// cycle path.
func sortModulesByImports(files []*syntax.File) ([]*syntax.File, error) {
	byName := map[string]*syntax.File{}
	var names []string
	for _, file := range files {
		name := file.Module.ModuleName()
		byName[name] = file
		names = append(names, name)
	}
	sort.Strings(names)

	visited := map[string]bool{}
	inPath := map[string]bool{}
	var cyclePath []string
	var sorted []*syntax.File

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if inPath[name] {
			start := 0
			for i, m := range cyclePath {
				if m == name {
					start = i
					break
				}
			}
			return diag.DependencyCycle("pipeline", append(cyclePath[start:], name))
		}
		inPath[name] = true
		cyclePath = append(cyclePath, name)

		file := byName[name]
		var deps []string
		for _, imp := range file.Imports {
			dep := strings.Join(imp.ModuleName, ".")
			if _, inBatch := byName[dep]; inBatch {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[name] = true
		inPath[name] = false
		cyclePath = cyclePath[:len(cyclePath)-1]
		sorted = append(sorted, file)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

// NewEnvironment bootstraps a fresh environment containing the core
// modules, compiled from their embedded sources.
func NewEnvironment() (pine.Value, error) {
	sources, err := corelib.ModuleSources()
	if err != nil {
		return nil, err
	}
	files := make([]*syntax.File, len(sources))
	for i, source := range sources {
		file, err := parser.ParseFile(source)
		if err != nil {
			return nil, diag.WithPath(err, "core libraries")
		}
		files[i] = file
	}
	result, err := ExpandEnvironmentWithModules(pine.EmptyEvalContext(), files)
	if err != nil {
		return nil, diag.WithPath(err, "core libraries")
	}
	return result.Env, nil
}
