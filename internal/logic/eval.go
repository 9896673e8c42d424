package logic

import (
	"math"
	"strconv"
	"strings"
)

// MaxDepth bounds expression nesting. Published rule conditions are a few
// levels deep in practice; anything past this cap is malformed or hostile
// input, and failing beats overflowing the stack.
const MaxDepth = 16

// Evaluate walks the expression against a bound fact map and produces a
// Value or a typed error. Variable lookup is direct: an absent key fails
// with MissingVariable, which is distinct from a fact explicitly set to
// null. Evaluate never mutates facts.
func Evaluate(expr Expr, facts map[string]Value) (Value, error) {
	return eval(expr, facts, 0)
}

func eval(expr Expr, facts map[string]Value, depth int) (Value, error) {
	if depth > MaxDepth {
		return Null(), newError(ErrExpressionTooDeep, "expression exceeds maximum depth %d", MaxDepth)
	}

	switch e := expr.(type) {
	case Literal:
		return e.Value, nil

	case VarRef:
		v, ok := facts[e.Name]
		if !ok {
			return Null(), missingVariable(e.Name)
		}
		return v, nil

	case Apply:
		return applyOp(e, facts, depth)

	default:
		return Null(), newError(ErrInvalidStructure, "unsupported expression node %T", expr)
	}
}

func applyOp(e Apply, facts map[string]Value, depth int) (Value, error) {
	switch e.Op {
	case "and":
		return evalAnd(e.Args, facts, depth)
	case "or":
		return evalOr(e.Args, facts, depth)
	case "not", "!":
		return evalNot(e, facts, depth)
	case "==", "!=":
		return evalEquality(e, facts, depth)
	case ">", ">=", "<", "<=":
		return evalComparison(e, facts, depth)
	case "+", "-", "*", "/":
		return evalArithmetic(e, facts, depth)
	case "in":
		return evalIn(e, facts, depth)
	case "min", "max":
		return evalMinMax(e, facts, depth)
	case opList:
		return evalList(e.Args, facts, depth)
	default:
		return Null(), newError(ErrInvalidStructure, "unknown operator %q", e.Op)
	}
}

// evalAnd returns true iff every argument is truthy, left to right. No
// short-circuit on missing variables is needed here: requirement evaluation
// pre-checks the whole expression's variable set before calling Evaluate,
// because skipping an unknown branch is unsafe for eligibility logic.
func evalAnd(args []Expr, facts map[string]Value, depth int) (Value, error) {
	for _, arg := range args {
		v, err := eval(arg, facts, depth+1)
		if err != nil {
			return Null(), err
		}
		ok, err := Truthy(v)
		if err != nil {
			return Null(), err
		}
		if !ok {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func evalOr(args []Expr, facts map[string]Value, depth int) (Value, error) {
	for _, arg := range args {
		v, err := eval(arg, facts, depth+1)
		if err != nil {
			return Null(), err
		}
		ok, err := Truthy(v)
		if err != nil {
			return Null(), err
		}
		if ok {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func evalNot(e Apply, facts map[string]Value, depth int) (Value, error) {
	if len(e.Args) != 1 {
		return Null(), newError(ErrInvalidStructure, "operator %q takes exactly 1 argument, got %d", e.Op, len(e.Args))
	}
	v, err := eval(e.Args[0], facts, depth+1)
	if err != nil {
		return Null(), err
	}
	ok, err := Truthy(v)
	if err != nil {
		return Null(), err
	}
	return Bool(!ok), nil
}

// evalEquality compares numerically when both operands coerce to numbers
// ("42" == 42 holds); otherwise it falls back to strict deep equality. There
// is no implicit cross-type equality beyond the numeric coercion.
func evalEquality(e Apply, facts map[string]Value, depth int) (Value, error) {
	left, right, err := evalPair(e, facts, depth)
	if err != nil {
		return Null(), err
	}

	var equal bool
	ln, lok := coerceNumber(left)
	rn, rok := coerceNumber(right)
	if lok && rok {
		if err := checkFinite(ln); err != nil {
			return Null(), err
		}
		if err := checkFinite(rn); err != nil {
			return Null(), err
		}
		equal = ln == rn
	} else {
		equal = left.Equal(right)
	}

	if e.Op == "!=" {
		equal = !equal
	}
	return Bool(equal), nil
}

func evalComparison(e Apply, facts map[string]Value, depth int) (Value, error) {
	left, right, err := evalPair(e, facts, depth)
	if err != nil {
		return Null(), err
	}

	ln, err := requireNumber(left, e.Op)
	if err != nil {
		return Null(), err
	}
	rn, err := requireNumber(right, e.Op)
	if err != nil {
		return Null(), err
	}

	var result bool
	switch e.Op {
	case ">":
		result = ln > rn
	case ">=":
		result = ln >= rn
	case "<":
		result = ln < rn
	case "<=":
		result = ln <= rn
	}
	return Bool(result), nil
}

func evalArithmetic(e Apply, facts map[string]Value, depth int) (Value, error) {
	nums, err := evalNumbers(e, facts, depth)
	if err != nil {
		return Null(), err
	}

	var result float64
	switch e.Op {
	case "+":
		for _, n := range nums {
			result += n
		}
	case "*":
		result = 1
		for _, n := range nums {
			result *= n
		}
	case "-":
		switch len(nums) {
		case 1:
			result = -nums[0]
		case 2:
			result = nums[0] - nums[1]
		default:
			return Null(), newError(ErrInvalidStructure, "operator %q takes 1 or 2 arguments, got %d", e.Op, len(nums))
		}
	case "/":
		if len(nums) != 2 {
			return Null(), newError(ErrInvalidStructure, "operator %q takes exactly 2 arguments, got %d", e.Op, len(nums))
		}
		if nums[1] == 0 {
			return Null(), newError(ErrDivisionByZero, "division by zero")
		}
		result = nums[0] / nums[1]
	}

	if err := checkFinite(result); err != nil {
		return Null(), err
	}
	return Number(result), nil
}

// evalIn checks membership: needle in list, or substring in string.
func evalIn(e Apply, facts map[string]Value, depth int) (Value, error) {
	needle, haystack, err := evalPair(e, facts, depth)
	if err != nil {
		return Null(), err
	}

	if items, ok := haystack.AsList(); ok {
		for _, item := range items {
			if needle.Equal(item) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}

	if s, ok := haystack.AsString(); ok {
		sub, ok := needle.AsString()
		if !ok {
			return Null(), newError(ErrTypeMismatch, "operator \"in\" needs a string needle for a string haystack, got %s", needle.Kind())
		}
		return Bool(strings.Contains(s, sub)), nil
	}

	return Null(), newError(ErrTypeMismatch, "operator \"in\" needs a list or string haystack, got %s", haystack.Kind())
}

// evalMinMax folds its numeric arguments. A single list argument is unrolled,
// so both {"min":[1,2,3]} and {"min":[{"var":"scores"}]} work.
func evalMinMax(e Apply, facts map[string]Value, depth int) (Value, error) {
	nums, err := evalNumbers(e, facts, depth)
	if err != nil {
		return Null(), err
	}

	result := nums[0]
	for _, n := range nums[1:] {
		if (e.Op == "min" && n < result) || (e.Op == "max" && n > result) {
			result = n
		}
	}
	if err := checkFinite(result); err != nil {
		return Null(), err
	}
	return Number(result), nil
}

func evalList(args []Expr, facts map[string]Value, depth int) (Value, error) {
	items := make([]Value, 0, len(args))
	for _, arg := range args {
		v, err := eval(arg, facts, depth+1)
		if err != nil {
			return Null(), err
		}
		items = append(items, v)
	}
	return List(items...), nil
}

// evalPair evaluates the exactly-two arguments of a binary operator.
func evalPair(e Apply, facts map[string]Value, depth int) (Value, Value, error) {
	if len(e.Args) != 2 {
		return Null(), Null(), newError(ErrInvalidStructure, "operator %q takes exactly 2 arguments, got %d", e.Op, len(e.Args))
	}
	left, err := eval(e.Args[0], facts, depth+1)
	if err != nil {
		return Null(), Null(), err
	}
	right, err := eval(e.Args[1], facts, depth+1)
	if err != nil {
		return Null(), Null(), err
	}
	return left, right, nil
}

// evalNumbers evaluates every argument and coerces each to a number. A single
// list-valued argument is unrolled elementwise.
func evalNumbers(e Apply, facts map[string]Value, depth int) ([]float64, error) {
	values := make([]Value, 0, len(e.Args))
	for _, arg := range e.Args {
		v, err := eval(arg, facts, depth+1)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		if items, ok := values[0].AsList(); ok {
			values = items
		}
	}
	if len(values) == 0 {
		return nil, newError(ErrInvalidStructure, "operator %q has no arguments", e.Op)
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		n, err := requireNumber(v, e.Op)
		if err != nil {
			return nil, err
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// Truthy implements the language's general truthiness used by boolean
// combinators and by requirement pass/fail conversion:
//   - bool: as-is
//   - number: non-zero; NaN and infinities are rejected outright
//   - string: the boolean tokens "true"/"1"/"yes" and "false"/"0"/"no"
//     (case-insensitive) coerce accordingly; any other string is truthy
//     iff non-empty
//   - null: false; lists and maps: truthy iff non-empty
func Truthy(v Value) (bool, error) {
	switch v.Kind() {
	case KindNull:
		return false, nil
	case KindBool:
		b, _ := v.AsBool()
		return b, nil
	case KindNumber:
		n, _ := v.AsNumber()
		if err := checkFinite(n); err != nil {
			return false, err
		}
		return n != 0, nil
	case KindString:
		s, _ := v.AsString()
		if b, ok := boolToken(s); ok {
			return b, nil
		}
		return s != "", nil
	case KindList, KindMap:
		return v.Len() > 0, nil
	default:
		return false, newError(ErrTypeMismatch, "cannot coerce %s to bool", v.Kind())
	}
}

// boolToken recognizes the explicit boolean spellings used in user-entered
// facts. Coercion is deliberately narrow: "y"/"on"/"enabled" do not count.
func boolToken(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// coerceNumber widens a value to float64 when it is a number or a
// numeric-looking string ("42000" counts, "42k" does not).
func coerceNumber(v Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if s, ok := v.AsString(); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

func requireNumber(v Value, op string) (float64, error) {
	n, ok := coerceNumber(v)
	if !ok {
		return 0, newError(ErrTypeMismatch, "operator %q needs a number, got %s %s", op, v.Kind(), v.String())
	}
	if err := checkFinite(n); err != nil {
		return 0, err
	}
	return n, nil
}

func checkFinite(n float64) error {
	if math.IsNaN(n) {
		return newError(ErrInvalidNumericResult, "result is NaN")
	}
	if math.IsInf(n, 0) {
		return newError(ErrInvalidNumericResult, "result is infinite")
	}
	return nil
}
