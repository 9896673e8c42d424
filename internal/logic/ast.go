package logic

// Expr is a node of the condition AST. The set of implementations is closed:
// Literal, VarRef, and Apply.
type Expr interface {
	isExpr()
}

// Literal is a constant value.
type Literal struct {
	Value Value
}

// VarRef references a fact by key.
type VarRef struct {
	Name string
}

// Apply applies an operator to an ordered argument list. Operator names are
// not validated at parse time; the evaluator rejects unknown operators with
// InvalidStructure, so newly authored operators fail loud rather than
// requiring a re-parse of stored rules.
type Apply struct {
	Op   string
	Args []Expr
}

func (Literal) isExpr() {}
func (VarRef) isExpr()  {}
func (Apply) isExpr()   {}
