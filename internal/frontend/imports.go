package frontend

import (
	"strings"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/diag"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// AutoImportedModules are implicitly imported into every module except
// themselves.
var AutoImportedModules = []string{
	"Basics", "Maybe", "List", "String", "Result", "Char", "Tuple",
}

// exposedGlobal names one declaration exposed into every scope.
type exposedGlobal struct {
	Module string
	Name   string
}

// autoExposedGlobals is the fixed table of identifiers in scope
// everywhere: the standard operators and the core tags.
var autoExposedGlobals = map[string]exposedGlobal{
	"(+)":  {"Basics", "add"},
	"(-)":  {"Basics", "sub"},
	"(*)":  {"Basics", "mul"},
	"(//)": {"Basics", "idiv"},
	"(^)":  {"Basics", "pow"},
	"(==)": {"Basics", "eq"},
	"(/=)": {"Basics", "neq"},
	"(<)":  {"Basics", "lt"},
	"(>)":  {"Basics", "gt"},
	"(<=)": {"Basics", "le"},
	"(>=)": {"Basics", "ge"},
	"(&&)": {"Basics", "and"},
	"(||)": {"Basics", "or"},
	"(++)": {"Basics", "append"},
	"(::)": {"List", "cons"},
	"(|>)": {"Basics", "apR"},
	"(<|)": {"Basics", "apL"},
	"(<<)": {"Basics", "composeL"},
	"(>>)": {"Basics", "composeR"},

	"not":      {"Basics", "not"},
	"identity": {"Basics", "identity"},
	"always":   {"Basics", "always"},
	"modBy":    {"Basics", "modBy"},

	"True":    {"Basics", "True"},
	"False":   {"Basics", "False"},
	"Just":    {"Maybe", "Just"},
	"Nothing": {"Maybe", "Nothing"},
	"Ok":      {"Result", "Ok"},
	"Err":     {"Result", "Err"},
}

// CompilationStack is the immutable per-module compilation context,
// copied when extended.
type CompilationStack struct {
	CurrentModule string

	// ModuleAliases maps local module names (aliases included) to
	// canonical dotted names.
	ModuleAliases map[string]string

	// AvailableModules holds every already-compiled module by canonical
	// name.
	AvailableModules map[string]*codec.ModuleInCompilation

	// ImportedModules restricts qualified access to what this module
	// imported, explicitly or implicitly.
	ImportedModules map[string]bool

	// InlineableDeclarations are expanded at each use site: local and
	// imported tag constructors, record constructors, and pattern-bound
	// values.
	InlineableDeclarations map[string]Inlineable

	// ImportedFunctions maps names exposed unqualified to their
	// canonical qualified names.
	ImportedFunctions map[string]string

	// LocalDeclarations are the names of the current module's (or let
	// block's) declarations.
	LocalDeclarations map[string]bool

	// LocalBindings are parameter-bound names; they shadow everything
	// and resolve in the emitter.
	LocalBindings map[string]bool
}

func (s *CompilationStack) clone() *CompilationStack {
	out := *s
	out.InlineableDeclarations = copyInlineables(s.InlineableDeclarations)
	out.LocalDeclarations = copyStringSet(s.LocalDeclarations)
	out.LocalBindings = copyStringSet(s.LocalBindings)
	return &out
}

func (s *CompilationStack) withInlineable(name string, inl Inlineable) *CompilationStack {
	out := s.clone()
	out.InlineableDeclarations[name] = inl
	return out
}

func (s *CompilationStack) withLocalBindings(names []string) *CompilationStack {
	out := s.clone()
	for _, name := range names {
		out.LocalBindings[name] = true
	}
	return out
}

func copyInlineables(in map[string]Inlineable) map[string]Inlineable {
	out := make(map[string]Inlineable, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStringSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}

// newModuleStack resolves a module's imports against the already
// compiled modules and builds its compilation stack.
func newModuleStack(file *syntax.File, available map[string]*codec.ModuleInCompilation) (*CompilationStack, error) {
	stack := &CompilationStack{
		CurrentModule:          file.Module.ModuleName(),
		ModuleAliases:          map[string]string{},
		AvailableModules:       available,
		ImportedModules:        map[string]bool{},
		InlineableDeclarations: map[string]Inlineable{},
		ImportedFunctions:      map[string]string{},
		LocalDeclarations:      map[string]bool{},
		LocalBindings:          map[string]bool{},
	}

	// Implicit imports resolve softly: an auto-imported module that is
	// not compiled yet simply contributes nothing.
	for _, name := range AutoImportedModules {
		if name == stack.CurrentModule {
			continue
		}
		if _, ok := available[name]; ok {
			stack.ImportedModules[name] = true
			stack.ModuleAliases[name] = name
		}
	}

	for _, imp := range file.Imports {
		canonical := strings.Join(imp.ModuleName, ".")
		module, ok := available[canonical]
		if !ok {
			return nil, diag.New(diag.CodeUnresolvedRef, "frontend",
				"imported module %q is not compiled", canonical)
		}
		stack.ImportedModules[canonical] = true
		stack.ModuleAliases[canonical] = canonical
		if imp.Alias != "" {
			stack.ModuleAliases[imp.Alias] = canonical
		}
		if imp.Exposing != nil {
			exposeImport(stack, module, *imp.Exposing)
		}
	}
	return stack, nil
}

// exposeImport brings an import's exposed names into unqualified scope.
// Exposing everything exposes all functions and all tags; an explicit
// list exposes the named functions and, for Type(..) items, the type's
// tags.
func exposeImport(stack *CompilationStack, module *codec.ModuleInCompilation, exposing syntax.Exposing) {
	if exposing.All {
		for name := range module.Functions {
			stack.ImportedFunctions[name] = module.Name + "." + name
		}
		for typeName, decl := range module.Types {
			exposeTypeTags(stack, module.Name, typeName, decl)
		}
		return
	}
	for _, item := range exposing.Items {
		if decl, ok := module.Types[item.Name]; ok {
			if record, isRecord := decl.(*codec.RecordType); isRecord {
				stack.InlineableDeclarations[item.Name] = &RecordConstructor{Fields: record.Fields}
				continue
			}
			if item.OpenTags {
				exposeTypeTags(stack, module.Name, item.Name, decl)
			}
			continue
		}
		if _, ok := module.Functions[item.Name]; ok {
			stack.ImportedFunctions[item.Name] = module.Name + "." + item.Name
		}
	}
}

func exposeTypeTags(stack *CompilationStack, moduleName, typeName string, decl codec.TypeDecl) {
	switch t := decl.(type) {
	case *codec.ChoiceType:
		for _, tag := range t.Tags {
			qualified := moduleName + "." + tag.Name
			if override, ok := inlineOverrides[qualified]; ok {
				stack.InlineableDeclarations[tag.Name] = override
				continue
			}
			stack.InlineableDeclarations[tag.Name] = &TagConstructor{TagName: tag.Name, Arity: tag.Arity}
		}
	case *codec.RecordType:
		stack.InlineableDeclarations[typeName] = &RecordConstructor{Fields: t.Fields}
	}
}

// lookupModuleTag finds a tag constructor in a compiled module's types.
func lookupModuleTag(module *codec.ModuleInCompilation, name string) (*TagConstructor, bool) {
	for _, decl := range module.Types {
		choice, ok := decl.(*codec.ChoiceType)
		if !ok {
			continue
		}
		for _, tag := range choice.Tags {
			if tag.Name == name {
				return &TagConstructor{TagName: tag.Name, Arity: tag.Arity}, true
			}
		}
	}
	return nil, false
}

// importedFunctionValues collects every declaration the emitter may
// reference as an already-compiled value, keyed by canonical qualified
// name.
func importedFunctionValues(stack *CompilationStack) map[string]pine.Value {
	out := map[string]pine.Value{}
	for canonical := range stack.ImportedModules {
		module := stack.AvailableModules[canonical]
		if module == nil {
			continue
		}
		for name, value := range module.Functions {
			out[canonical+"."+name] = value
		}
	}
	return out
}
