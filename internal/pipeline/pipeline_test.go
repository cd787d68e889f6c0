package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/parser"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// The bootstrapped environment is immutable, so tests share one copy.
var baseEnv pine.Value

func bootstrap(t *testing.T) pine.Value {
	t.Helper()
	if baseEnv == nil {
		env, err := NewEnvironment()
		require.NoError(t, err)
		baseEnv = env
	}
	return baseEnv
}

func parseModules(t *testing.T, sources ...string) []*syntax.File {
	t.Helper()
	files := make([]*syntax.File, len(sources))
	for i, source := range sources {
		file, err := parser.ParseFile(source)
		require.NoError(t, err)
		files[i] = file
	}
	return files
}

func evalDisplay(t *testing.T, env pine.Value, submission string) string {
	t.Helper()
	display, err := SubmissionEvaluation(env, nil, submission)
	require.NoError(t, err)
	return display
}

func TestBootstrapCompilesCoreModules(t *testing.T) {
	env := bootstrap(t)
	modules, _, err := codec.ParseModulesFromEnvironment(env)
	require.NoError(t, err)
	for _, name := range []string{"Basics", "Maybe", "List", "String", "Result", "Char", "Tuple"} {
		assert.Contains(t, modules, name)
	}
}

func TestModuleFunctionEvaluates(t *testing.T) {
	env := bootstrap(t)
	files := parseModules(t, "module M exposing (f)\n\n\nf x =\n    x + 1\n")
	result, err := ExpandEnvironmentWithModules(env, files)
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "M", result.Added[0].Name)

	assert.Equal(t, "42", evalDisplay(t, result.Env, "M.f 41"))
}

func TestGreedyGroupsScenario(t *testing.T) {
	env := bootstrap(t)
	source := "module Groups exposing (greedyGroupsOfWithStep)\n" +
		"\n" +
		"import List\n" +
		"\n" +
		"\n" +
		"greedyGroupsOfWithStep : Int -> Int -> List a -> List (List a)\n" +
		"greedyGroupsOfWithStep size step list =\n" +
		"    let\n" +
		"        go acc rest =\n" +
		"            if List.isEmpty rest then\n" +
		"                List.reverse acc\n" +
		"\n" +
		"            else\n" +
		"                go (List.take size rest :: acc) (List.drop step rest)\n" +
		"    in\n" +
		"    go [] list\n"
	result, err := ExpandEnvironmentWithModules(env, parseModules(t, source))
	require.NoError(t, err)

	display := evalDisplay(t, result.Env,
		"Groups.greedyGroupsOfWithStep 3 2 [ 1, 2, 3, 4, 5, 6 ]")
	assert.Equal(t, "[[1,2,3],[3,4,5],[5,6]]", display)
}

func TestCustomTypeAndCaseScenario(t *testing.T) {
	env := bootstrap(t)
	next, _, err := EvaluateSubmission(env, "type Shade a = Dark a | Light")
	require.NoError(t, err)

	display, err := SubmissionEvaluation(next, nil,
		"case Dark 7 of\n    Dark n ->\n        n\n\n    Light ->\n        0")
	require.NoError(t, err)
	assert.Equal(t, "7", display)
}

func TestMaybeCaseEvaluation(t *testing.T) {
	env := bootstrap(t)
	display := evalDisplay(t, env,
		"case Just 7 of\n    Just n ->\n        n\n\n    Nothing ->\n        0")
	assert.Equal(t, "7", display)
}

func TestRecordLiteralFieldOrder(t *testing.T) {
	env := bootstrap(t)
	_, value, err := EvaluateSubmission(env, "{ b = 2, a = 1 }")
	require.NoError(t, err)

	expected := pine.List(
		pine.ValueFromString("Elm_Record"),
		pine.List(pine.List(
			pine.List(pine.ValueFromString("a"), pine.ValueFromInt(1)),
			pine.List(pine.ValueFromString("b"), pine.ValueFromInt(2)),
		)),
	)
	assert.True(t, pine.ValuesEqual(expected, value),
		"fields are stored in lexicographic order: %s", DisplayText(value))
}

func TestRecordAccessAndUpdate(t *testing.T) {
	env := bootstrap(t)
	assert.Equal(t, "2", evalDisplay(t, env, "{ b = 2, a = 1 }.b"))
	assert.Equal(t, "{ a = 1, b = 7 }", evalDisplay(t, env,
		"let\n    r =\n        { b = 2, a = 1 }\nin\n{ r | b = 7 }"))
	assert.Equal(t, "[1,3]", evalDisplay(t, env,
		"List.map .a [ { a = 1 }, { a = 3 } ]"))
}

func TestLambdaApplicationScenario(t *testing.T) {
	env := bootstrap(t)
	assert.Equal(t, "7", evalDisplay(t, env, "(\\x y -> x - y) 10 3"))
}

func TestPartialApplicationScenario(t *testing.T) {
	env := bootstrap(t)
	_, value, err := EvaluateSubmission(env, "(\\x y -> x - y) 10")
	require.NoError(t, err)

	items, ok := pine.ListItems(value)
	require.True(t, ok, "partial application yields a Function record")
	require.Len(t, items, 2)
	tag, err := pine.StringFromValue(items[0])
	require.NoError(t, err)
	assert.Equal(t, "Function", tag)

	payload, ok := pine.ListItems(items[1])
	require.True(t, ok)
	require.Len(t, payload, 4)
	arity, err := pine.IntFromValue(payload[1])
	require.NoError(t, err)
	assert.Equal(t, int64(2), arity)
	collected, ok := pine.ListItems(payload[3])
	require.True(t, ok)
	require.Len(t, collected, 1)
	assert.True(t, pine.ValuesEqual(pine.ValueFromInt(10), collected[0]))

	assert.Equal(t, "<function>", DisplayText(value))
}

func TestSubmissionSequenceScenario(t *testing.T) {
	env := bootstrap(t)
	display, err := SubmissionEvaluation(env, []string{"x = 5"}, "x + 1")
	require.NoError(t, err)
	assert.Equal(t, "6", display)

	next, _, err := EvaluateSubmission(env, "x = 5")
	require.NoError(t, err)
	_, others, err := codec.ParseModulesFromEnvironment(next)
	require.NoError(t, err)
	var names []string
	for _, d := range others {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "x")
}

func TestRecursiveSubmissionDeclaration(t *testing.T) {
	env := bootstrap(t)
	next, _, err := EvaluateSubmission(env,
		"fact n =\n    if n <= 0 then\n        1\n\n    else\n        n * fact (n - 1)")
	require.NoError(t, err)

	display, err := SubmissionEvaluation(next, nil, "fact 5")
	require.NoError(t, err)
	assert.Equal(t, "120", display)
}

func TestCaseChoosesFirstMatchingBranch(t *testing.T) {
	env := bootstrap(t)
	display := evalDisplay(t, env,
		"case [ 1, 2 ] of\n    [ a ] ->\n        a\n\n    [ a, b ] ->\n        a + b\n\n    _ ->\n        0")
	assert.Equal(t, "3", display)

	display = evalDisplay(t, env,
		"case 5 of\n    _ ->\n        1\n\n    5 ->\n        2")
	assert.Equal(t, "1", display, "the first matching branch wins")
}

func TestCoreLibraryFunctions(t *testing.T) {
	env := bootstrap(t)
	cases := map[string]string{
		"List.length [ 1, 2, 3 ]":            "3",
		"List.map (\\x -> x * 2) [ 1, 2 ]":   "[2,4]",
		"List.filter (\\x -> x > 1) [ 1, 2, 3 ]": "[2,3]",
		"List.foldl (\\x acc -> acc + x) 0 [ 1, 2, 3 ]": "6",
		"List.range 1 4":                     "[1,2,3,4]",
		"List.member 2 [ 1, 2 ]":             "True",
		"1 :: [ 2, 3 ]":                      "[1,2,3]",
		"\"abc\" ++ \"def\"":                 "\"abcdef\"",
		"[ 1 ] ++ [ 2 ]":                     "[1,2]",
		"String.fromInt 1204":                "\"1204\"",
		"String.fromInt -42":                 "\"-42\"",
		"String.length \"hello\"":            "5",
		"String.repeat 3 \"ab\"":             "\"ababab\"",
		"Maybe.withDefault 0 (Just 3)":       "3",
		"Maybe.withDefault 0 Nothing":        "0",
		"Maybe.map (\\x -> x + 1) (Just 1)":  "Just 2",
		"Result.withDefault 0 (Ok 9)":        "9",
		"Result.map (\\x -> x + 1) (Err 3)":  "Err 3",
		"Tuple.first ( 1, 2 )":               "1",
		"Tuple.second ( 1, 2 )":              "2",
		"2 ^ 10":                             "1024",
		"modBy 3 7":                          "1",
		"7 // 2":                             "3",
		"not True":                           "False",
		"1 < 2 && 2 < 3":                     "True",
		"1 > 2 || 2 > 3":                     "False",
		"10 |> (\\x -> x + 1)":               "11",
		"(\\x -> x * 2) <| 5":                "10",
		"identity 9":                         "9",
		"always 1 2":                         "1",
	}
	for submission, want := range cases {
		assert.Equal(t, want, evalDisplay(t, env, submission), submission)
	}
}

func TestModuleDependencyOrdering(t *testing.T) {
	env := bootstrap(t)
	// B imports A but appears first in the batch.
	b := "module B exposing (g)\n\nimport A\n\n\ng x =\n    A.f x + 1\n"
	a := "module A exposing (f)\n\n\nf x =\n    x * 2\n"
	result, err := ExpandEnvironmentWithModules(env, parseModules(t, b, a))
	require.NoError(t, err)
	require.Len(t, result.Added, 2)
	assert.Equal(t, "A", result.Added[0].Name)
	assert.Equal(t, "B", result.Added[1].Name)

	assert.Equal(t, "21", evalDisplay(t, result.Env, "B.g 10"))
}

func TestModuleCycleIsRejected(t *testing.T) {
	env := bootstrap(t)
	a := "module A exposing (f)\n\nimport B\n\n\nf x =\n    B.g x\n"
	b := "module B exposing (g)\n\nimport A\n\n\ng x =\n    A.f x\n"
	_, err := ExpandEnvironmentWithModules(env, parseModules(t, a, b))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DependencyCycle")
}

func TestMutuallyRecursiveModuleDeclarations(t *testing.T) {
	env := bootstrap(t)
	source := "module Parity exposing (isEven)\n" +
		"\n" +
		"\n" +
		"isEven n =\n" +
		"    if n == 0 then\n" +
		"        True\n" +
		"\n" +
		"    else\n" +
		"        isOdd (n - 1)\n" +
		"\n" +
		"\n" +
		"isOdd n =\n" +
		"    if n == 0 then\n" +
		"        False\n" +
		"\n" +
		"    else\n" +
		"        isEven (n - 1)\n"
	result, err := ExpandEnvironmentWithModules(env, parseModules(t, source))
	require.NoError(t, err)
	assert.Equal(t, "True", evalDisplay(t, result.Env, "Parity.isEven 10"))
	assert.Equal(t, "False", evalDisplay(t, result.Env, "Parity.isEven 7"))
}

func TestModuleValueRoundTripsThroughEnvironment(t *testing.T) {
	env := bootstrap(t)
	files := parseModules(t, "module M exposing (f)\n\n\nf x =\n    x + 1\n")
	result, err := ExpandEnvironmentWithModules(env, files)
	require.NoError(t, err)

	modules, _, err := codec.ParseModulesFromEnvironment(result.Env)
	require.NoError(t, err)
	m := modules["M"]
	require.NotNil(t, m)
	reparsed, err := codec.ParseModuleValue("M", codec.EmitModuleValue(m))
	require.NoError(t, err)
	assert.True(t, pine.ValuesEqual(codec.EmitModuleValue(m), codec.EmitModuleValue(reparsed)))
}

func TestLetDestructuring(t *testing.T) {
	env := bootstrap(t)
	display := evalDisplay(t, env,
		"let\n    ( a, b ) = ( 3, 4 )\nin\na + b")
	assert.Equal(t, "7", display)
}

func TestCaseOnStrings(t *testing.T) {
	env := bootstrap(t)
	display := evalDisplay(t, env,
		"case \"hi\" of\n    \"no\" ->\n        1\n\n    \"hi\" ->\n        2\n\n    _ ->\n        3")
	assert.Equal(t, "2", display)
}

func TestNoMatchingBranchFailsEvaluation(t *testing.T) {
	env := bootstrap(t)
	_, value, err := EvaluateSubmission(env, "case 1 of\n    2 ->\n        0")
	require.NoError(t, err)
	items, ok := pine.ListItems(value)
	require.True(t, ok)
	require.NotEmpty(t, items)
	msg, err := pine.StringFromValue(items[0])
	require.NoError(t, err)
	assert.Contains(t, msg, "No matching branch")
}

func TestFloatSubmissionIsRejected(t *testing.T) {
	env := bootstrap(t)
	_, _, err := EvaluateSubmission(env, "1.5 + 1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnsupportedConstruct")
}

func TestDestructuringSubmissionIsRejected(t *testing.T) {
	env := bootstrap(t)
	_, _, err := EvaluateSubmission(env, "( a, b ) = ( 1, 2 )")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnsupportedConstruct")
}

func TestSubmissionFailureKeepsEnvironment(t *testing.T) {
	env := bootstrap(t)
	got, _, err := EvaluateSubmission(env, "nonexistent 1")
	require.Error(t, err)
	assert.True(t, pine.ValuesEqual(env, got))
}

func TestDebugOverrides(t *testing.T) {
	env := bootstrap(t)
	assert.Equal(t, "5", evalDisplay(t, env, "Debug.log \"label\" 5"))
	assert.Equal(t, "\"<Debug.toString>\"", evalDisplay(t, env, "Debug.toString 5"))
}

func TestLooksLikeDeclaration(t *testing.T) {
	cases := map[string]bool{
		"x = 5":                        true,
		"f x = x + 1":                  true,
		"x + 1":                        false,
		"{ a = 1 }":                    false,
		"let\n    x = 1\nin\nx":        false,
		"\\x -> x":                     false,
		"x == 5":                       false,
		"type T = A | B":               true,
	}
	for submission, want := range cases {
		got, err := looksLikeDeclaration(submission)
		require.NoError(t, err, submission)
		assert.Equal(t, want, got, submission)
	}
}

func TestDisplayText(t *testing.T) {
	assert.Equal(t, "True", DisplayText(pine.TrueValue))
	assert.Equal(t, "12", DisplayText(pine.ValueFromInt(12)))
	assert.Equal(t, "-3", DisplayText(pine.ValueFromInt(-3)))
	assert.Equal(t, "[]", DisplayText(pine.EmptyList))
	assert.Equal(t, "\"hey\"", DisplayText(pine.List(
		pine.ValueFromString("String"),
		pine.List(pine.ValueFromString("hey")),
	)))
	assert.Equal(t, "Nothing", DisplayText(pine.List(
		pine.ValueFromString("Nothing"), pine.List())))
	assert.Equal(t, "Just (Dark 1)", DisplayText(pine.List(
		pine.ValueFromString("Just"),
		pine.List(pine.List(
			pine.ValueFromString("Dark"),
			pine.List(pine.ValueFromInt(1)),
		)),
	)))
}
