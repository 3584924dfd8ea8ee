package internal

import (
	"context"
	"fmt"
)

// ExprEvaluator evaluates expression AST nodes against a lexical scope
type ExprEvaluator struct {
	funcs *FuncRegistry
	scope Scope
}

// NewExprEvaluator creates a new expression evaluator
func NewExprEvaluator(funcs *FuncRegistry, scope Scope) *ExprEvaluator {
	return &ExprEvaluator{
		funcs: funcs,
		scope: scope,
	}
}

// Evaluate evaluates an expression and returns the result.
// Pending values reached through identifier lookups are awaited before use.
func (e *ExprEvaluator) Evaluate(ctx context.Context, node ExprNode) (any, error) {
	if node == nil {
		return nil, NewExprEvalError(ErrMsgExprNilNode, StringValueEmpty)
	}

	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil

	case *IdentifierNode:
		return e.evaluateIdentifier(ctx, n)

	case *UnaryNode:
		return e.evaluateUnary(ctx, n)

	case *BinaryNode:
		return e.evaluateBinary(ctx, n)

	case *CallNode:
		return e.evaluateCall(ctx, n)

	default:
		return nil, NewExprEvalError(ErrMsgExprUnknownNodeType, fmt.Sprintf("%T", node))
	}
}

// EvaluateBool evaluates an expression and coerces the result to a boolean
func (e *ExprEvaluator) EvaluateBool(ctx context.Context, node ExprNode) (bool, error) {
	result, err := e.Evaluate(ctx, node)
	if err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

// evaluateIdentifier resolves a variable from the scope chain.
// An unbound name is an error, not a silent nil.
func (e *ExprEvaluator) evaluateIdentifier(ctx context.Context, node *IdentifierNode) (any, error) {
	if e.scope == nil {
		return nil, NewExprEvalError(ErrMsgExprNoScope, node.Name)
	}

	val, found := e.scope.Lookup(node.Name)
	if !found {
		return nil, NewUndefinedError(node.Name)
	}
	return ResolvePending(ctx, val)
}

// evaluateUnary evaluates a unary operation
func (e *ExprEvaluator) evaluateUnary(ctx context.Context, node *UnaryNode) (any, error) {
	right, err := e.Evaluate(ctx, node.Right)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case ExprTokenTypeNot:
		return !isTruthy(right), nil
	default:
		return nil, NewExprEvalError(ErrMsgExprUnknownOperator, string(node.Op))
	}
}

// evaluateBinary evaluates a binary operation
func (e *ExprEvaluator) evaluateBinary(ctx context.Context, node *BinaryNode) (any, error) {
	// Short-circuit evaluation for logical operators
	if node.Op == ExprTokenTypeAnd {
		left, err := e.Evaluate(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		if !isTruthy(left) {
			return false, nil
		}
		right, err := e.Evaluate(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	}

	if node.Op == ExprTokenTypeOr {
		left, err := e.Evaluate(ctx, node.Left)
		if err != nil {
			return nil, err
		}
		if isTruthy(left) {
			return true, nil
		}
		right, err := e.Evaluate(ctx, node.Right)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	}

	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}

	right, err := e.Evaluate(ctx, node.Right)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case ExprTokenTypeEq:
		return compareEqual(left, right), nil
	case ExprTokenTypeNeq:
		return !compareEqual(left, right), nil
	case ExprTokenTypeLt:
		return compareLess(left, right)
	case ExprTokenTypeGt:
		return compareGreater(left, right)
	case ExprTokenTypeLte:
		result, err := compareGreater(left, right)
		if err != nil {
			return nil, err
		}
		return !result, nil
	case ExprTokenTypeGte:
		result, err := compareLess(left, right)
		if err != nil {
			return nil, err
		}
		return !result, nil
	default:
		return nil, NewExprEvalError(ErrMsgExprUnknownOperator, string(node.Op))
	}
}

// evaluateCall evaluates a function call.
// defined(name) is a special form: it inspects the scope without
// evaluating its argument, so unbound names do not raise.
func (e *ExprEvaluator) evaluateCall(ctx context.Context, node *CallNode) (any, error) {
	if node.Name == FuncNameDefined {
		return e.evaluateDefined(node)
	}

	if e.funcs == nil {
		return nil, NewExprEvalError(ErrMsgExprNoFuncRegistry, node.Name)
	}

	args := make([]any, len(node.Args))
	for i, argNode := range node.Args {
		val, err := e.Evaluate(ctx, argNode)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	return e.funcs.Call(node.Name, args)
}

// evaluateDefined reports whether a name is bound in the current scope.
// Accepts either a string literal or a bare identifier.
func (e *ExprEvaluator) evaluateDefined(node *CallNode) (any, error) {
	if len(node.Args) != 1 {
		return nil, NewFuncArgError(ErrMsgFuncTooFewArgs, FuncNameDefined, 1, len(node.Args))
	}

	var name string
	switch arg := node.Args[0].(type) {
	case *LiteralNode:
		s, ok := arg.Value.(string)
		if !ok {
			return nil, NewExprEvalError(ErrMsgExprDefinedArg, fmt.Sprintf("%v", arg.Value))
		}
		name = s
	case *IdentifierNode:
		name = arg.Name
	default:
		return nil, NewExprEvalError(ErrMsgExprDefinedArg, fmt.Sprintf("%T", node.Args[0]))
	}

	if e.scope == nil {
		return false, nil
	}
	_, found := e.scope.Lookup(name)
	return found, nil
}

// isTruthy determines the boolean value of any result
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != StringValueEmpty
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// Comparison helper functions

// compareEqual checks if two values are equal
func compareEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	aNum, aIsNum := toNumber(a)
	bNum, bIsNum := toNumber(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return aBool == bBool
	}

	return a == b
}

// compareLess checks if a < b
func compareLess(a, b any) (bool, error) {
	aNum, aIsNum := toNumber(a)
	bNum, bIsNum := toNumber(b)
	if aIsNum && bIsNum {
		return aNum < bNum, nil
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr < bStr, nil
	}

	return false, NewExprEvalError(ErrMsgExprTypeMismatch, fmt.Sprintf("cannot compare %T and %T", a, b))
}

// compareGreater checks if a > b
func compareGreater(a, b any) (bool, error) {
	aNum, aIsNum := toNumber(a)
	bNum, bIsNum := toNumber(b)
	if aIsNum && bIsNum {
		return aNum > bNum, nil
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr > bStr, nil
	}

	return false, NewExprEvalError(ErrMsgExprTypeMismatch, fmt.Sprintf("cannot compare %T and %T", a, b))
}

// toNumber attempts to convert a value to float64
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	default:
		return 0, false
	}
}

// UndefinedError reports an unbound template variable
type UndefinedError struct {
	Name string
}

// NewUndefinedError creates a new undefined variable error
func NewUndefinedError(name string) *UndefinedError {
	return &UndefinedError{Name: name}
}

// Error implements the error interface
func (e *UndefinedError) Error() string {
	return fmt.Sprintf(ErrFmtUndefined, e.Name)
}

// ExprEvalError represents an expression evaluation error
type ExprEvalError struct {
	Message string
	Detail  string
}

// NewExprEvalError creates a new expression evaluation error
func NewExprEvalError(message, detail string) *ExprEvalError {
	return &ExprEvalError{
		Message: message,
		Detail:  detail,
	}
}

// Error implements the error interface
func (e *ExprEvalError) Error() string {
	if e.Detail != StringValueEmpty {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Expression evaluator error messages
const (
	ErrMsgExprNilNode         = "nil expression node"
	ErrMsgExprUnknownNodeType = "unknown expression node type"
	ErrMsgExprNoScope         = "no scope available for variable lookup"
	ErrMsgExprUnknownOperator = "unknown operator"
	ErrMsgExprNoFuncRegistry  = "no function registry available"
	ErrMsgExprTypeMismatch    = "type mismatch in comparison"
	ErrMsgExprDefinedArg      = "defined() expects a name"
	ErrFmtUndefined           = "'%s' is undefined"
)

// EvaluateExpression parses and evaluates an expression string in one step
func EvaluateExpression(ctx context.Context, expr string, funcs *FuncRegistry, scope Scope) (any, error) {
	node, err := ParseExpression(expr)
	if err != nil {
		return nil, err
	}

	evaluator := NewExprEvaluator(funcs, scope)
	return evaluator.Evaluate(ctx, node)
}
