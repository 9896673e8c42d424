package logic

import "sort"

// Variables returns the sorted set of fact keys the expression references,
// including references nested anywhere inside operator arguments. An empty
// result means the expression is constant and can evaluate against an empty
// fact map.
func Variables(expr Expr) []string {
	seen := make(map[string]struct{})
	collectVariables(expr, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectVariables(expr Expr, seen map[string]struct{}) {
	switch e := expr.(type) {
	case VarRef:
		seen[e.Name] = struct{}{}
	case Apply:
		for _, arg := range e.Args {
			collectVariables(arg, seen)
		}
	}
}

// IsConstant reports whether the expression references no variables.
func IsConstant(expr Expr) bool {
	seen := make(map[string]struct{})
	collectVariables(expr, seen)
	return len(seen) == 0
}
