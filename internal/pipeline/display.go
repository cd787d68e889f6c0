package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/conifer-lang/conifer/internal/codec"
	"github.com/conifer-lang/conifer/internal/emit"
	"github.com/conifer-lang/conifer/internal/frontend"
	"github.com/conifer-lang/conifer/internal/pine"
)

// DisplayText renders a response value as source-like text. The runtime
// representation carries no type information, so the rendering is
// heuristic, in this order: booleans, functions, strings, records,
// integers, characters, tag values, lists, raw blobs.
func DisplayText(v pine.Value) string {
	return displayValue(v, false)
}

func displayValue(v pine.Value, nested bool) string {
	if pine.ValuesEqual(v, pine.TrueValue) {
		return "True"
	}
	if pine.ValuesEqual(v, pine.FalseValue) {
		return "False"
	}
	if items, ok := pine.ListItems(v); ok {
		return displayList(items, v, nested)
	}
	return displayBlob(v.(*pine.BlobValue))
}

func displayList(items []pine.Value, whole pine.Value, nested bool) string {
	if len(items) == 2 {
		if tag, err := pine.StringFromValue(items[0]); err == nil {
			if rendered, ok := displayTagged(tag, items[1], nested); ok {
				return rendered
			}
		}
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = displayValue(item, false)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func displayTagged(tag string, payload pine.Value, nested bool) (string, bool) {
	args, ok := pine.ListItems(payload)
	if !ok {
		return "", false
	}
	switch tag {
	case emit.FunctionRecordTag:
		if len(args) == 4 {
			return "<function>", true
		}
	case "String":
		if len(args) == 1 {
			if s, err := pine.StringFromValue(args[0]); err == nil {
				return strconv.Quote(s), true
			}
		}
	case frontend.RecordTag:
		if len(args) == 1 {
			if rendered, ok := displayRecord(args[0]); ok {
				return rendered, true
			}
		}
	}
	if !isTagName(tag) {
		return "", false
	}
	if len(args) == 0 {
		return tag, true
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, tag)
	for _, arg := range args {
		rendered := displayValue(arg, true)
		parts = append(parts, rendered)
	}
	out := strings.Join(parts, " ")
	if nested {
		return "(" + out + ")", true
	}
	return out, true
}

func displayRecord(fields pine.Value) (string, bool) {
	pairs, ok := pine.ListItems(fields)
	if !ok {
		return "", false
	}
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		kv, ok := pine.ListItems(pair)
		if !ok || len(kv) != 2 {
			return "", false
		}
		name, err := pine.StringFromValue(kv[0])
		if err != nil {
			return "", false
		}
		parts[i] = fmt.Sprintf("%s = %s", name, displayValue(kv[1], false))
	}
	return "{ " + strings.Join(parts, ", ") + " }", true
}

func displayBlob(blob *pine.BlobValue) string {
	if n, err := pine.IntFromValue(blob); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if r, err := pine.CharFromValue(blob); err == nil && unicode.IsPrint(r) {
		return "'" + string(r) + "'"
	}
	var b strings.Builder
	b.WriteString("0x")
	for _, c := range blob.Bytes {
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// isTagName reports whether a string is plausible as a choice-type tag.
func isTagName(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}

// DescribeEnvironment lists the module and declaration names of an
// environment, modules first.
func DescribeEnvironment(env pine.Value) ([]string, []string, error) {
	decls, err := codec.GetDeclarationsFromEnvironment(env)
	if err != nil {
		return nil, nil, err
	}
	var modules, others []string
	for _, d := range decls {
		if codec.IsModuleName(d.Name) {
			modules = append(modules, d.Name)
			continue
		}
		others = append(others, d.Name)
	}
	return modules, others, nil
}
