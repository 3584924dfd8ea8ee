package internal

import (
	"context"
	"fmt"
	"strings"
)

// Node is the interface all AST nodes implement
type Node interface {
	// Type returns the node type identifier
	Type() NodeType
	// Position returns the source position of this node
	Pos() Position
	// String returns a human-readable representation
	String() string
}

// BlockCaller renders the body of a call block and returns its value
type BlockCaller func(ctx context.Context) (any, error)

// Callable is a value that can be invoked with arguments, such as a
// macro bound in the current frame
type Callable interface {
	Call(ctx context.Context, args []any) (any, error)
}

// BlockFunc is the runtime dispatcher attached to a CallBlockNode.
// It receives the evaluated tag arguments and a caller for the body.
type BlockFunc func(ctx context.Context, args []any, caller BlockCaller) (any, error)

// RootNode is the top-level container for an AST
type RootNode struct {
	Children []Node
}

// Type returns NodeTypeRoot
func (n *RootNode) Type() NodeType {
	return NodeTypeRoot
}

// Pos returns a zero position (root has no specific position)
func (n *RootNode) Pos() Position {
	return Position{Offset: 0, Line: 1, Column: 1}
}

// String returns a string representation of the root node
func (n *RootNode) String() string {
	var sb strings.Builder
	sb.WriteString("RootNode{\n")
	for i, child := range n.Children {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", i, child.String()))
	}
	sb.WriteString("}")
	return sb.String()
}

// NewRootNode creates a new root node
func NewRootNode(children []Node) *RootNode {
	return &RootNode{Children: children}
}

// TextNode represents literal text content
type TextNode struct {
	pos     Position
	Content string
}

// Type returns NodeTypeText
func (n *TextNode) Type() NodeType {
	return NodeTypeText
}

// Pos returns the source position
func (n *TextNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *TextNode) String() string {
	content := n.Content
	if len(content) > MaxStringDisplayLength {
		content = content[:TruncatedStringLength] + TruncationSuffix
	}
	return fmt.Sprintf("TextNode{%q @ %s}", content, n.pos)
}

// NewTextNode creates a new text node
func NewTextNode(content string, pos Position) *TextNode {
	return &TextNode{
		pos:     pos,
		Content: content,
	}
}

// OutputNode represents an {{ expression }} interpolation.
// The expression is kept as source text and evaluated at render time.
type OutputNode struct {
	pos  Position
	Expr string
}

// Type returns NodeTypeOutput
func (n *OutputNode) Type() NodeType {
	return NodeTypeOutput
}

// Pos returns the source position
func (n *OutputNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *OutputNode) String() string {
	return fmt.Sprintf("OutputNode{%s @ %s}", n.Expr, n.pos)
}

// NewOutputNode creates a new output node
func NewOutputNode(expr string, pos Position) *OutputNode {
	return &OutputNode{
		pos:  pos,
		Expr: expr,
	}
}

// ScopeNode introduces a child variable frame for its children.
// Names defined inside do not leak to the enclosing frame.
type ScopeNode struct {
	pos      Position
	Children []Node
}

// Type returns NodeTypeScope
func (n *ScopeNode) Type() NodeType {
	return NodeTypeScope
}

// Pos returns the source position
func (n *ScopeNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *ScopeNode) String() string {
	return fmt.Sprintf("ScopeNode{children=%d @ %s}", len(n.Children), n.pos)
}

// NewScopeNode creates a new scope node
func NewScopeNode(children []Node, pos Position) *ScopeNode {
	return &ScopeNode{
		pos:      pos,
		Children: children,
	}
}

// MacroNode defines a named, parameterized body. Executing the node
// binds a callable value for Name in the current frame.
type MacroNode struct {
	pos    Position
	Name   string
	Params []string
	Body   []Node
}

// Type returns NodeTypeMacro
func (n *MacroNode) Type() NodeType {
	return NodeTypeMacro
}

// Pos returns the source position
func (n *MacroNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *MacroNode) String() string {
	return fmt.Sprintf("MacroNode{%s(%s), body=%d @ %s}", n.Name, strings.Join(n.Params, FmtCommaSep), len(n.Body), n.pos)
}

// NewMacroNode creates a new macro node
func NewMacroNode(name string, params []string, body []Node, pos Position) *MacroNode {
	return &MacroNode{
		pos:    pos,
		Name:   name,
		Params: params,
		Body:   body,
	}
}

// CallBlockNode hands its body and evaluated arguments to a runtime
// dispatcher. Tags install their dispatchers when building the node;
// the executor selects Sync or Async based on the render mode.
type CallBlockNode struct {
	pos   Position
	Tag   string   // Owning tag name, for diagnostics
	Args  []string // Argument expression sources
	Body  []Node
	Sync  BlockFunc
	Async BlockFunc
}

// Type returns NodeTypeCallBlock
func (n *CallBlockNode) Type() NodeType {
	return NodeTypeCallBlock
}

// Pos returns the source position
func (n *CallBlockNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *CallBlockNode) String() string {
	return fmt.Sprintf("CallBlockNode{%s(%s), body=%d @ %s}", n.Tag, strings.Join(n.Args, FmtCommaSep), len(n.Body), n.pos)
}

// NewCallBlockNode creates a new call block node
func NewCallBlockNode(tag string, args []string, body []Node, sync, async BlockFunc, pos Position) *CallBlockNode {
	return &CallBlockNode{
		pos:   pos,
		Tag:   tag,
		Args:  args,
		Body:  body,
		Sync:  sync,
		Async: async,
	}
}

// IfNode represents an if/elif/else conditional block
type IfNode struct {
	pos      Position
	Branches []IfBranch
}

// IfBranch represents a single branch in a conditional
type IfBranch struct {
	Condition string // Expression source (empty for else)
	Children  []Node
	IsElse    bool
	Pos       Position
}

// Type returns NodeTypeIf
func (n *IfNode) Type() NodeType {
	return NodeTypeIf
}

// Pos returns the source position
func (n *IfNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *IfNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("IfNode{branches=%d @ %s", len(n.Branches), n.pos))
	for i, branch := range n.Branches {
		if branch.IsElse {
			sb.WriteString(fmt.Sprintf(", [%d]else", i))
		} else {
			sb.WriteString(fmt.Sprintf(", [%d]if(%s)", i, branch.Condition))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// NewIfNode creates a new conditional node
func NewIfNode(branches []IfBranch, pos Position) *IfNode {
	return &IfNode{
		pos:      pos,
		Branches: branches,
	}
}

// NewIfBranch creates a new conditional branch
func NewIfBranch(condition string, children []Node, isElse bool, pos Position) IfBranch {
	return IfBranch{
		Condition: condition,
		Children:  children,
		IsElse:    isElse,
		Pos:       pos,
	}
}

// ForNode represents a for loop block
type ForNode struct {
	pos      Position
	ItemVar  string // Variable name for the current item
	Source   string // Expression source yielding the collection
	Children []Node
}

// Type returns NodeTypeFor
func (n *ForNode) Type() NodeType {
	return NodeTypeFor
}

// Pos returns the source position
func (n *ForNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *ForNode) String() string {
	return fmt.Sprintf("ForNode{item=%s, in=%s, children=%d @ %s}", n.ItemVar, n.Source, len(n.Children), n.pos)
}

// NewForNode creates a new for loop node
func NewForNode(itemVar, source string, children []Node, pos Position) *ForNode {
	return &ForNode{
		pos:      pos,
		ItemVar:  itemVar,
		Source:   source,
		Children: children,
	}
}

// SetNode binds the value of an expression to a name in the current frame
type SetNode struct {
	pos  Position
	Name string
	Expr string
}

// Type returns NodeTypeSet
func (n *SetNode) Type() NodeType {
	return NodeTypeSet
}

// Pos returns the source position
func (n *SetNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *SetNode) String() string {
	return fmt.Sprintf("SetNode{%s = %s @ %s}", n.Name, n.Expr, n.pos)
}

// NewSetNode creates a new set node
func NewSetNode(name, expr string, pos Position) *SetNode {
	return &SetNode{
		pos:  pos,
		Name: name,
		Expr: expr,
	}
}

// IncludeNode renders another registered template in place.
// The template name is an expression so it can be computed.
type IncludeNode struct {
	pos  Position
	Name string
}

// Type returns NodeTypeInclude
func (n *IncludeNode) Type() NodeType {
	return NodeTypeInclude
}

// Pos returns the source position
func (n *IncludeNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *IncludeNode) String() string {
	return fmt.Sprintf("IncludeNode{%s @ %s}", n.Name, n.pos)
}

// NewIncludeNode creates a new include node
func NewIncludeNode(name string, pos Position) *IncludeNode {
	return &IncludeNode{
		pos:  pos,
		Name: name,
	}
}
