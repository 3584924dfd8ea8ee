package temply

import (
	"context"

	"github.com/itsatony/go-temply/internal"
)

// BlockCaller renders the body of a dispatched block and returns its
// value. In suspend-capable renders the value may be Pending.
type BlockCaller func(ctx context.Context) (any, error)

// BlockFunc is a tag's runtime dispatcher. It receives the evaluated
// tag arguments and a caller for the block body.
type BlockFunc func(ctx context.Context, args []any, call BlockCaller) (any, error)

// Tag is a custom statement extension. A tag owns one opening keyword
// plus any inner keywords for branches and closing statements, and
// lowers its statements to nodes via the TagParser during parsing.
//
// The builtin try/catch construct is built on exactly this contract.
type Tag interface {
	// Keyword returns the statement keyword that opens this tag
	Keyword() string
	// InnerKeywords returns keywords reserved for branch and close
	// statements
	InnerKeywords() []string
	// Parse lowers the tag's statements into a node. The parser is
	// positioned just after the opening statement; Parse must consume
	// any closing statement the tag defines.
	Parse(p *TagParser) (TagNode, error)
}

// Statement describes the opening statement a tag was invoked with
type Statement struct {
	Keyword string
	Args    string
	Pos     Position
}

// TagNode is an opaque handle on a parsed template node
type TagNode struct {
	node internal.Node
}

// TagParser is the parsing facade handed to custom tags. It exposes
// body parsing over the engine's statement parser plus builders for
// the node vocabulary tags lower into.
type TagParser struct {
	parser *internal.Parser
	stmt   internal.Token
}

// Statement returns the opening statement
func (p *TagParser) Statement() Statement {
	return Statement{
		Keyword: p.stmt.Keyword,
		Args:    p.stmt.Value,
		Pos:     publicPosition(p.stmt.Position),
	}
}

// ParseBody consumes statements until one of the end keywords is
// next. The terminating statement is left for SkipIf or Expect.
func (p *TagParser) ParseBody(end ...string) ([]TagNode, error) {
	nodes, err := p.parser.ParseStatements(end...)
	if err != nil {
		return nil, err
	}
	return wrapNodes(nodes), nil
}

// ParseBodyOrEmpty is ParseBody, but an empty body yields a single
// empty text node so the body always renders to something.
func (p *TagParser) ParseBodyOrEmpty(end ...string) ([]TagNode, error) {
	nodes, err := p.parser.ParseStatementsOrEmpty(end...)
	if err != nil {
		return nil, err
	}
	return wrapNodes(nodes), nil
}

// SkipIf consumes the next statement if it has the given keyword
func (p *TagParser) SkipIf(keyword string) bool {
	_, ok := p.parser.SkipIf(keyword)
	return ok
}

// Expect consumes a statement with the given keyword or fails
func (p *TagParser) Expect(keyword string) error {
	_, err := p.parser.Expect(keyword)
	return err
}

// Node builders. Positions are taken from the opening statement.

// Text builds a literal text node
func (p *TagParser) Text(content string) TagNode {
	return TagNode{node: internal.NewTextNode(content, p.stmt.Position)}
}

// Scope wraps children in a child variable frame so names defined
// inside do not leak out
func (p *TagParser) Scope(children ...TagNode) TagNode {
	return TagNode{node: internal.NewScopeNode(unwrapNodes(children), p.stmt.Position)}
}

// Macro binds a named, parameterized body in the current frame
func (p *TagParser) Macro(name string, params []string, body []TagNode) TagNode {
	return TagNode{node: internal.NewMacroNode(name, params, unwrapNodes(body), p.stmt.Position)}
}

// Dispatch hands a body to runtime dispatchers. Args are expression
// sources evaluated in the surrounding frame when the block runs; the
// executor picks sync or async based on the render mode.
func (p *TagParser) Dispatch(tag string, args []string, body []TagNode, sync, async BlockFunc) TagNode {
	return TagNode{node: internal.NewCallBlockNode(
		tag, args, unwrapNodes(body),
		adaptBlockFunc(sync), adaptBlockFunc(async),
		p.stmt.Position,
	)}
}

// tagAdapter adapts the public Tag interface to internal.TagParselet
type tagAdapter struct {
	tag Tag
}

func (a *tagAdapter) Keyword() string {
	return a.tag.Keyword()
}

func (a *tagAdapter) InnerKeywords() []string {
	return a.tag.InnerKeywords()
}

func (a *tagAdapter) Parse(p *internal.Parser, tok internal.Token) (internal.Node, error) {
	facade := &TagParser{parser: p, stmt: tok}
	node, err := a.tag.Parse(facade)
	if err != nil {
		return nil, err
	}
	return node.node, nil
}

// adaptBlockFunc converts a public dispatcher to the internal shape
func adaptBlockFunc(fn BlockFunc) internal.BlockFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args []any, caller internal.BlockCaller) (any, error) {
		return fn(ctx, args, BlockCaller(caller))
	}
}

// wrapNodes wraps internal nodes in public handles
func wrapNodes(nodes []internal.Node) []TagNode {
	wrapped := make([]TagNode, len(nodes))
	for i, n := range nodes {
		wrapped[i] = TagNode{node: n}
	}
	return wrapped
}

// unwrapNodes extracts internal nodes from public handles
func unwrapNodes(nodes []TagNode) []internal.Node {
	unwrapped := make([]internal.Node, len(nodes))
	for i, n := range nodes {
		unwrapped[i] = n.node
	}
	return unwrapped
}

// publicPosition converts an internal position
func publicPosition(pos internal.Position) Position {
	return Position{
		Offset: pos.Offset,
		Line:   pos.Line,
		Column: pos.Column,
	}
}
