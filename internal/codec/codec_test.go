package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conifer-lang/conifer/internal/pine"
)

func sampleModule() *ModuleInCompilation {
	return &ModuleInCompilation{
		Name: "M",
		Functions: map[string]pine.Value{
			"f": pine.List(pine.ValueFromString("Function"), pine.List()),
			"x": pine.ValueFromInt(5),
		},
		Types: map[string]TypeDecl{
			"Maybe": &ChoiceType{Tags: []TypeTag{
				{Name: "Just", Arity: 1},
				{Name: "Nothing", Arity: 0},
			}},
			"Point": &RecordType{Fields: []string{"x", "y"}},
		},
	}
}

func TestModuleValueRoundTrip(t *testing.T) {
	m := sampleModule()
	parsed, err := ParseModuleValue("M", EmitModuleValue(m))
	require.NoError(t, err)
	if diff := cmp.Diff(m, parsed); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitModuleValueIsDeterministic(t *testing.T) {
	a := EmitModuleValue(sampleModule())
	b := EmitModuleValue(sampleModule())
	assert.True(t, pine.ValuesEqual(a, b))
}

func TestParseModuleValueRejectsBlob(t *testing.T) {
	_, err := ParseModuleValue("M", pine.ValueFromString("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadModuleEncoding")
}

func TestParseModuleValueRejectsBadEntry(t *testing.T) {
	env := pine.List(pine.List(pine.ValueFromString("only-name")))
	_, err := ParseModuleValue("M", env)
	assert.Error(t, err)
}

func TestEnvironmentDeclarations(t *testing.T) {
	env := pine.EmptyEvalContext()
	env = AppendDeclarations(env, []NamedDeclaration{
		{Name: "M.Sub", Value: EmitModuleValue(sampleModule())},
		{Name: "x", Value: pine.ValueFromInt(5)},
	})
	modules, others, err := ParseModulesFromEnvironment(env)
	require.NoError(t, err)
	assert.Len(t, modules, 1)
	require.Len(t, others, 1)
	assert.Equal(t, "x", others[0].Name)
}

func TestAppendDeclarationsDoesNotMutate(t *testing.T) {
	env := AppendDeclarations(pine.EmptyEvalContext(), []NamedDeclaration{
		{Name: "a", Value: pine.ValueFromInt(1)},
	})
	_ = AppendDeclarations(env, []NamedDeclaration{
		{Name: "b", Value: pine.ValueFromInt(2)},
	})
	decls, err := GetDeclarationsFromEnvironment(env)
	require.NoError(t, err)
	assert.Len(t, decls, 1)
}

func TestIsModuleName(t *testing.T) {
	assert.True(t, IsModuleName("Basics"))
	assert.True(t, IsModuleName("Json.Decode"))
	assert.False(t, IsModuleName("x"))
	assert.False(t, IsModuleName("Json.decode"))
	assert.False(t, IsModuleName(""))
}
