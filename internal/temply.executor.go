package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ExecutorConfig holds executor configuration options
type ExecutorConfig struct {
	MaxDepth int // Maximum nesting depth (0 = unlimited)
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxDepth: DefaultMaxDepth,
	}
}

// IncludeResolver loads a registered template AST by name
type IncludeResolver interface {
	ResolveInclude(name string) (*RootNode, error)
}

// Executor traverses an AST and produces output. It renders in two
// modes: text mode stringifies and concatenates every fragment, value
// mode returns a single fragment unchanged so non-string results
// survive the render. Each mode comes in a blocking and a
// suspend-capable variant; the latter runs call block bodies as
// pending values and settles them at suspension points.
type Executor struct {
	config   ExecutorConfig
	logger   *zap.Logger
	funcs    *FuncRegistry
	includes IncludeResolver // may be nil
}

// NewExecutor creates a new executor
func NewExecutor(funcs *FuncRegistry, includes IncludeResolver, config ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgExecutorCreated)

	if funcs == nil {
		funcs = NewFuncRegistry()
		RegisterBuiltinFuncs(funcs)
	}

	return &Executor{
		config:   config,
		logger:   logger,
		funcs:    funcs,
		includes: includes,
	}
}

// SetIncludeResolver wires the resolver used by include statements
func (e *Executor) SetIncludeResolver(includes IncludeResolver) {
	e.includes = includes
}

// ExecuteText renders in blocking text mode
func (e *Executor) ExecuteText(ctx context.Context, root *RootNode, frame *Frame) (string, error) {
	return e.executeText(ctx, root, frame, false)
}

// ExecuteTextAsync renders in suspend-capable text mode
func (e *Executor) ExecuteTextAsync(ctx context.Context, root *RootNode, frame *Frame) (string, error) {
	return e.executeText(ctx, root, frame, true)
}

// ExecuteValue renders in blocking value mode
func (e *Executor) ExecuteValue(ctx context.Context, root *RootNode, frame *Frame) (any, error) {
	return e.executeValue(ctx, root, frame, false)
}

// ExecuteValueAsync renders in suspend-capable value mode
func (e *Executor) ExecuteValueAsync(ctx context.Context, root *RootNode, frame *Frame) (any, error) {
	return e.executeValue(ctx, root, frame, true)
}

func (e *Executor) executeText(ctx context.Context, root *RootNode, frame *Frame, async bool) (string, error) {
	e.logger.Debug(LogMsgRenderStart, zap.Bool(LogFieldAsync, async))

	fragments, err := e.executeNodes(ctx, root.Children, frame, 0, async)
	if err != nil {
		return StringValueEmpty, err
	}

	result, err := concatFragments(ctx, fragments)
	if err != nil {
		return StringValueEmpty, err
	}

	e.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldNodes, len(root.Children)))
	return result, nil
}

func (e *Executor) executeValue(ctx context.Context, root *RootNode, frame *Frame, async bool) (any, error) {
	e.logger.Debug(LogMsgRenderStart, zap.Bool(LogFieldAsync, async))

	fragments, err := e.executeNodes(ctx, root.Children, frame, 0, async)
	if err != nil {
		return nil, err
	}

	value, err := collapseFragments(ctx, fragments)
	if err != nil {
		return nil, err
	}

	e.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldNodes, len(root.Children)))
	return value, nil
}

// executeNodes processes a node slice and collects its fragments
func (e *Executor) executeNodes(ctx context.Context, nodes []Node, frame *Frame, depth int, async bool) ([]any, error) {
	if e.config.MaxDepth > 0 && depth > e.config.MaxDepth {
		return nil, NewExecutorError(ErrMsgMaxDepthExceeded, StringValueEmpty, Position{})
	}

	var fragments []any

	for _, node := range nodes {
		frags, err := e.executeNode(ctx, node, frame, depth, async)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, frags...)
	}

	return fragments, nil
}

// executeNode processes a single node and returns its fragments
func (e *Executor) executeNode(ctx context.Context, node Node, frame *Frame, depth int, async bool) ([]any, error) {
	switch n := node.(type) {
	case *TextNode:
		return []any{n.Content}, nil

	case *OutputNode:
		val, err := EvaluateExpression(ctx, n.Expr, e.funcs, frame)
		if err != nil {
			return nil, err
		}
		return []any{val}, nil

	case *ScopeNode:
		return e.executeNodes(ctx, n.Children, frame.Child(), depth+1, async)

	case *MacroNode:
		frame.Define(n.Name, &macroValue{
			name:   n.Name,
			params: n.Params,
			body:   n.Body,
			frame:  frame,
			exec:   e,
			depth:  depth,
			async:  async,
		})
		return nil, nil

	case *SetNode:
		val, err := EvaluateExpression(ctx, n.Expr, e.funcs, frame)
		if err != nil {
			return nil, err
		}
		frame.Define(n.Name, val)
		return nil, nil

	case *IfNode:
		return e.executeIf(ctx, n, frame, depth, async)

	case *ForNode:
		return e.executeFor(ctx, n, frame, depth, async)

	case *IncludeNode:
		return e.executeInclude(ctx, n, frame, depth, async)

	case *CallBlockNode:
		return e.executeCallBlock(ctx, n, frame, depth, async)

	default:
		return nil, NewExecutorError(ErrMsgUnknownNodeType, fmt.Sprintf("%T", node), node.Pos())
	}
}

// executeIf selects the first matching branch. No branch matching
// yields no fragments.
func (e *Executor) executeIf(ctx context.Context, n *IfNode, frame *Frame, depth int, async bool) ([]any, error) {
	for i, branch := range n.Branches {
		if branch.IsElse {
			e.logger.Debug(LogMsgBranchSelected, zap.Int(LogFieldBranch, i))
			return e.executeNodes(ctx, branch.Children, frame, depth+1, async)
		}

		node, err := ParseExpression(branch.Condition)
		if err != nil {
			return nil, err
		}
		result, err := NewExprEvaluator(e.funcs, frame).EvaluateBool(ctx, node)
		if err != nil {
			return nil, err
		}

		if result {
			e.logger.Debug(LogMsgBranchSelected, zap.Int(LogFieldBranch, i))
			return e.executeNodes(ctx, branch.Children, frame, depth+1, async)
		}
	}

	return nil, nil
}

// executeFor iterates the source collection, binding the item variable
// in a loop-local frame
func (e *Executor) executeFor(ctx context.Context, n *ForNode, frame *Frame, depth int, async bool) ([]any, error) {
	source, err := EvaluateExpression(ctx, n.Source, e.funcs, frame)
	if err != nil {
		return nil, err
	}

	items, err := iterableItems(source)
	if err != nil {
		return nil, NewExecutorError(ErrMsgNotIterable, fmt.Sprintf("%T", source), n.Pos())
	}

	var fragments []any
	for _, item := range items {
		loopFrame := frame.Child()
		loopFrame.Define(n.ItemVar, item)

		frags, err := e.executeNodes(ctx, n.Children, loopFrame, depth+1, async)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, frags...)
	}

	return fragments, nil
}

// executeInclude renders a registered template in place
func (e *Executor) executeInclude(ctx context.Context, n *IncludeNode, frame *Frame, depth int, async bool) ([]any, error) {
	if e.includes == nil {
		return nil, NewExecutorError(ErrMsgNoIncludeResolver, n.Name, n.Pos())
	}

	nameVal, err := EvaluateExpression(ctx, n.Name, e.funcs, frame)
	if err != nil {
		return nil, err
	}
	name := Stringify(nameVal)

	root, err := e.includes.ResolveInclude(name)
	if err != nil {
		return nil, NewExecutorErrorWithCause(ErrMsgIncludeFailed, name, n.Pos(), err)
	}

	e.logger.Debug(LogMsgTemplateIncluded, zap.String(LogFieldTemplate, name))
	return e.executeNodes(ctx, root.Children, frame.Child(), depth+1, async)
}

// executeCallBlock evaluates the block arguments and hands the body to
// the tag's dispatcher. In suspend-capable mode the body runs as a
// pending value so the dispatcher decides where it settles.
func (e *Executor) executeCallBlock(ctx context.Context, n *CallBlockNode, frame *Frame, depth int, async bool) ([]any, error) {
	args := make([]any, len(n.Args))
	for i, argExpr := range n.Args {
		val, err := EvaluateExpression(ctx, argExpr, e.funcs, frame)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	bodyFrame := frame.Child()
	caller := func(callCtx context.Context) (any, error) {
		fragments, err := e.executeNodes(callCtx, n.Body, bodyFrame, depth+1, async)
		if err != nil {
			return nil, err
		}
		return collapseFragments(callCtx, fragments)
	}

	dispatch := n.Sync
	if async {
		dispatch = n.Async
		inner := caller
		caller = func(callCtx context.Context) (any, error) {
			return NewThunk(func() (any, error) {
				return inner(callCtx)
			}), nil
		}
	}
	if dispatch == nil {
		return nil, NewExecutorError(ErrMsgNoDispatcher, n.Tag, n.Pos())
	}

	result, err := dispatch(ctx, args, caller)
	if err != nil {
		return nil, err
	}
	return []any{result}, nil
}

// macroValue is a macro bound in a frame. It closes over its
// definition frame so calls see lexical scope.
type macroValue struct {
	name   string
	params []string
	body   []Node
	frame  *Frame
	exec   *Executor
	depth  int
	async  bool
}

// Call renders the macro body with arguments bound to parameters
func (m *macroValue) Call(ctx context.Context, args []any) (any, error) {
	if len(args) != len(m.params) {
		return nil, NewExecutorError(ErrMsgMacroArgCount, m.name, Position{})
	}

	callFrame := m.frame.Child()
	for i, param := range m.params {
		callFrame.Define(param, args[i])
	}

	fragments, err := m.exec.executeNodes(ctx, m.body, callFrame, m.depth+1, m.async)
	if err != nil {
		return nil, err
	}
	return collapseFragments(ctx, fragments)
}

// String makes a bound macro printable in text mode
func (m *macroValue) String() string {
	return fmt.Sprintf("macro %s(%s)", m.name, strings.Join(m.params, FmtCommaSep))
}

// collapseFragments reduces fragments to a single value. One fragment
// passes through unchanged so value renders keep their type; several
// fragments degrade to concatenated text.
func collapseFragments(ctx context.Context, fragments []any) (any, error) {
	switch len(fragments) {
	case 0:
		return StringValueEmpty, nil
	case 1:
		return fragments[0], nil
	default:
		return concatFragments(ctx, fragments)
	}
}

// concatFragments stringifies fragments into one text result, settling
// any pending values first
func concatFragments(ctx context.Context, fragments []any) (string, error) {
	var sb strings.Builder
	for _, frag := range fragments {
		resolved, err := ResolvePending(ctx, frag)
		if err != nil {
			return StringValueEmpty, err
		}
		sb.WriteString(Stringify(resolved))
	}
	return sb.String(), nil
}

// iterableItems normalizes a collection into a slice of items. Maps
// iterate their keys in sorted order for deterministic output.
func iterableItems(source any) ([]any, error) {
	switch v := source.(type) {
	case []any:
		return v, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = k
		}
		return items, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.New(ErrMsgNotIterable)
	}
}

// ExecutorError represents an execution error with position context
type ExecutorError struct {
	Message  string
	Detail   string
	Position Position
	Cause    error
}

// NewExecutorError creates a new executor error
func NewExecutorError(message, detail string, pos Position) *ExecutorError {
	return &ExecutorError{
		Message:  message,
		Detail:   detail,
		Position: pos,
	}
}

// NewExecutorErrorWithCause creates a new executor error wrapping a cause
func NewExecutorErrorWithCause(message, detail string, pos Position, cause error) *ExecutorError {
	return &ExecutorError{
		Message:  message,
		Detail:   detail,
		Position: pos,
		Cause:    cause,
	}
}

// Error implements the error interface
func (e *ExecutorError) Error() string {
	msg := e.Message
	if e.Detail != StringValueEmpty {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return fmt.Sprintf(ErrFmtWithPosition, msg, e.Position.String())
}

// Unwrap returns the underlying cause error
func (e *ExecutorError) Unwrap() error {
	return e.Cause
}

// Executor error message constants
const (
	ErrMsgMaxDepthExceeded  = "maximum nesting depth exceeded"
	ErrMsgUnknownNodeType   = "unknown node type"
	ErrMsgNotIterable       = "value is not iterable"
	ErrMsgNoIncludeResolver = "no include resolver configured"
	ErrMsgIncludeFailed     = "include failed"
	ErrMsgNoDispatcher      = "call block has no dispatcher"
	ErrMsgMacroArgCount     = "macro argument count mismatch"
)
