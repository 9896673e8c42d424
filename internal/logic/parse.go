package logic

// OpVar is the only operator the parser interprets structurally. Everything
// else passes through to the evaluator's operator table.
const OpVar = "var"

// opList is the internal operator a bare list parses into. The evaluator
// rebuilds the list from its evaluated elements.
const opList = "list"

// Parse validates a serialized condition tree and builds the AST.
//
// A valid expression is one of:
//   - a scalar (null, bool, number, string): a literal
//   - a non-empty list: elementwise expressions
//   - a single-key map {"var": "name"}: a variable reference
//   - a single-key map {op: [args...]}: an operator application
//
// Empty maps, empty lists, and multi-key maps fail with InvalidStructure.
// Nesting beyond MaxDepth fails with ExpressionTooDeep; the parser shares the
// evaluator's guard so a hostile condition never overflows either walk.
func Parse(raw Value) (Expr, error) {
	return parse(raw, 0)
}

func parse(raw Value, depth int) (Expr, error) {
	if depth > MaxDepth {
		return nil, newError(ErrExpressionTooDeep, "expression exceeds maximum depth %d", MaxDepth)
	}

	switch raw.Kind() {
	case KindNull, KindBool, KindNumber, KindString:
		return Literal{Value: raw}, nil

	case KindList:
		items, _ := raw.AsList()
		if len(items) == 0 {
			return nil, newError(ErrInvalidStructure, "empty list is not a valid expression")
		}
		args := make([]Expr, 0, len(items))
		for _, item := range items {
			sub, err := parse(item, depth+1)
			if err != nil {
				return nil, err
			}
			args = append(args, sub)
		}
		return Apply{Op: opList, Args: args}, nil

	case KindMap:
		keys := raw.Keys()
		if len(keys) == 0 {
			return nil, newError(ErrInvalidStructure, "empty map is not a valid expression")
		}
		if len(keys) > 1 {
			return nil, newError(ErrInvalidStructure, "expression map must have exactly one key, got %d", len(keys))
		}

		op := keys[0]
		payload, _ := raw.Get(op)

		if op == OpVar {
			name, ok := payload.AsString()
			if !ok || name == "" {
				return nil, newError(ErrInvalidStructure, "var payload must be a non-empty string")
			}
			return VarRef{Name: name}, nil
		}

		return parseApply(op, payload, depth)

	default:
		return nil, newError(ErrInvalidStructure, "unsupported value kind %s", raw.Kind())
	}
}

// parseApply parses an operator payload. The canonical payload is a list of
// sub-expressions; a scalar payload is the original rule corpus's shorthand
// for a single argument and is wrapped accordingly.
func parseApply(op string, payload Value, depth int) (Expr, error) {
	if items, ok := payload.AsList(); ok {
		if len(items) == 0 {
			return nil, newError(ErrInvalidStructure, "operator %q has an empty argument list", op)
		}
		args := make([]Expr, 0, len(items))
		for _, item := range items {
			sub, err := parse(item, depth+1)
			if err != nil {
				return nil, err
			}
			args = append(args, sub)
		}
		return Apply{Op: op, Args: args}, nil
	}

	arg, err := parse(payload, depth+1)
	if err != nil {
		return nil, err
	}
	return Apply{Op: op, Args: []Expr{arg}}, nil
}
