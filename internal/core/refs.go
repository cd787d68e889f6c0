package core

import "sort"

// FreeReferences returns the names an expression references without
// binding, in first-occurrence order. Function parameters and DeclBlock
// declarations bind names for their respective bodies.
func FreeReferences(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	collectFree(e, map[string]bool{}, func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	})
	return out
}

// References reports whether the expression references name freely.
func References(e Expr, name string) bool {
	for _, ref := range FreeReferences(e) {
		if ref == name {
			return true
		}
	}
	return false
}

func collectFree(e Expr, bound map[string]bool, emit func(string)) {
	switch expr := e.(type) {
	case *Ref:
		if !bound[expr.Name] {
			emit(expr.Name)
		}
	case *ListExpr:
		for _, item := range expr.Items {
			collectFree(item, bound, emit)
		}
	case *KernelApplication:
		collectFree(expr.Arg, bound, emit)
	case *Conditional:
		collectFree(expr.Cond, bound, emit)
		collectFree(expr.IfTrue, bound, emit)
		collectFree(expr.IfFalse, bound, emit)
	case *Function:
		inner := copyBound(bound)
		for _, param := range expr.Params {
			for _, name := range param {
				inner[name.Name] = true
			}
		}
		collectFree(expr.Body, inner, emit)
	case *Apply:
		collectFree(expr.Fn, bound, emit)
		for _, arg := range expr.Args {
			collectFree(arg, bound, emit)
		}
	case *DeclBlock:
		inner := copyBound(bound)
		for name := range expr.Declarations {
			inner[name] = true
		}
		for _, name := range DeclarationNames(expr.Declarations) {
			collectFree(expr.Declarations[name], inner, emit)
		}
		collectFree(expr.Body, inner, emit)
	case *PineFunctionApply:
		collectFree(expr.Arg, bound, emit)
	case *StringTag:
		collectFree(expr.Inner, bound, emit)
	}
}

func copyBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for name := range bound {
		out[name] = true
	}
	return out
}

// SortedNames returns the keys of a string set in sorted order.
func SortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
