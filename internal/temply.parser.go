package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Parser produces an AST from a token stream. Statements open with a
// keyword; builtin keywords are handled here and everything else is
// dispatched through the tag registry.
type Parser struct {
	tokens []Token
	pos    int
	tags   *TagRegistry
	logger *zap.Logger
}

// NewParser creates a new parser for the given token stream
func NewParser(tokens []Token, tags *TagRegistry, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldTokens, len(tokens)))
	return &Parser{
		tokens: tokens,
		pos:    0,
		tags:   tags,
		logger: logger,
	}
}

// Parse produces the AST root node from the token stream
func (p *Parser) Parse() (*RootNode, error) {
	p.logger.Debug(LogMsgParserStart)

	nodes, err := p.ParseStatements()
	if err != nil {
		return nil, err
	}

	if !p.isAtEnd() {
		return nil, p.newStrayKeywordError(p.current())
	}

	root := NewRootNode(nodes)
	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(nodes)))
	return root, nil
}

// ParseStatements parses nodes until EOF or until the current token is
// a statement whose keyword is in the end set. The terminating
// statement is left unconsumed for the caller. With a non-empty end
// set, reaching EOF is an unclosed-block error.
func (p *Parser) ParseStatements(end ...string) ([]Node, error) {
	var nodes []Node

	for !p.isAtEnd() {
		tok := p.current()

		if tok.Type == TokenTypeStmt && keywordIn(tok.Keyword, end) {
			return nodes, nil
		}

		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}

	if len(end) > 0 {
		return nil, p.newUnclosedBlockError(end)
	}
	return nodes, nil
}

// ParseStatementsOrEmpty is ParseStatements, but an empty body yields
// a single empty text node instead of nothing so block bodies are
// always renderable.
func (p *Parser) ParseStatementsOrEmpty(end ...string) ([]Node, error) {
	pos := p.current().Position

	nodes, err := p.ParseStatements(end...)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		nodes = []Node{NewTextNode(StringValueEmpty, pos)}
	}
	return nodes, nil
}

// SkipIf consumes the current token if it is a statement with the
// given keyword, returning it and true
func (p *Parser) SkipIf(keyword string) (Token, bool) {
	tok := p.current()
	if tok.Type == TokenTypeStmt && tok.Keyword == keyword {
		p.advance()
		return tok, true
	}
	return Token{}, false
}

// Expect consumes a statement with the given keyword or fails
func (p *Parser) Expect(keyword string) (Token, error) {
	tok := p.current()
	if tok.Type != TokenTypeStmt || tok.Keyword != keyword {
		return Token{}, p.newExpectedKeywordError(keyword, tok)
	}
	p.advance()
	return tok, nil
}

// parseNode parses a single node
func (p *Parser) parseNode() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenTypeText:
		p.advance()
		return NewTextNode(tok.Value, tok.Position), nil

	case TokenTypeOutput:
		p.advance()
		return NewOutputNode(tok.Value, tok.Position), nil

	case TokenTypeStmt:
		return p.parseStatement(tok)

	case TokenTypeEOF:
		return nil, nil

	default:
		return nil, p.newStrayKeywordError(tok)
	}
}

// parseStatement dispatches on the statement keyword
func (p *Parser) parseStatement(tok Token) (Node, error) {
	switch tok.Keyword {
	case KeywordIf:
		return p.parseIf(tok)
	case KeywordFor:
		return p.parseFor(tok)
	case KeywordSet:
		return p.parseSet(tok)
	case KeywordInclude:
		return p.parseInclude(tok)
	case KeywordElif, KeywordElse, KeywordEndIf, KeywordEndFor:
		return nil, p.newStrayKeywordError(tok)
	}

	if p.tags != nil {
		if tag, ok := p.tags.Get(tok.Keyword); ok {
			p.advance()
			p.logger.Debug(LogMsgTagParsed, zap.String(LogFieldKeyword, tok.Keyword))
			return tag.Parse(p, tok)
		}
		if p.tags.IsInner(tok.Keyword) {
			return nil, p.newStrayKeywordError(tok)
		}
	}

	return nil, p.newUnknownKeywordError(tok)
}

// parseIf parses an if/elif/else/endif block
func (p *Parser) parseIf(openTok Token) (*IfNode, error) {
	p.advance()

	if openTok.Value == StringValueEmpty {
		return nil, p.newMissingArgsError(KeywordIf, openTok.Position)
	}

	children, err := p.ParseStatements(KeywordElif, KeywordElse, KeywordEndIf)
	if err != nil {
		return nil, err
	}
	branches := []IfBranch{NewIfBranch(openTok.Value, children, false, openTok.Position)}

	for {
		if tok, ok := p.SkipIf(KeywordElif); ok {
			if tok.Value == StringValueEmpty {
				return nil, p.newMissingArgsError(KeywordElif, tok.Position)
			}
			children, err := p.ParseStatements(KeywordElif, KeywordElse, KeywordEndIf)
			if err != nil {
				return nil, err
			}
			branches = append(branches, NewIfBranch(tok.Value, children, false, tok.Position))
			continue
		}
		break
	}

	if tok, ok := p.SkipIf(KeywordElse); ok {
		if tok.Value != StringValueEmpty {
			return nil, p.newUnexpectedArgsError(KeywordElse, tok.Position)
		}
		children, err := p.ParseStatements(KeywordEndIf)
		if err != nil {
			return nil, err
		}
		branches = append(branches, NewIfBranch(StringValueEmpty, children, true, tok.Position))
	}

	if _, err := p.Expect(KeywordEndIf); err != nil {
		return nil, err
	}

	return NewIfNode(branches, openTok.Position), nil
}

// parseFor parses a for/endfor block. The arguments have the form
// "item in expression".
func (p *Parser) parseFor(openTok Token) (*ForNode, error) {
	p.advance()

	idx := strings.Index(openTok.Value, StmtForSeparator)
	if idx < 0 {
		return nil, p.newMissingArgsError(KeywordFor, openTok.Position)
	}

	itemVar := strings.TrimSpace(openTok.Value[:idx])
	source := strings.TrimSpace(openTok.Value[idx+len(StmtForSeparator):])
	if itemVar == StringValueEmpty || source == StringValueEmpty {
		return nil, p.newMissingArgsError(KeywordFor, openTok.Position)
	}

	children, err := p.ParseStatements(KeywordEndFor)
	if err != nil {
		return nil, err
	}

	if _, err := p.Expect(KeywordEndFor); err != nil {
		return nil, err
	}

	return NewForNode(itemVar, source, children, openTok.Position), nil
}

// parseSet parses a set statement. The arguments have the form
// "name = expression".
func (p *Parser) parseSet(openTok Token) (*SetNode, error) {
	p.advance()

	parts := strings.SplitN(openTok.Value, StmtSetSeparator, 2)
	if len(parts) != 2 {
		return nil, p.newMissingArgsError(KeywordSet, openTok.Position)
	}

	name := strings.TrimSpace(parts[0])
	expr := strings.TrimSpace(parts[1])
	if name == StringValueEmpty || expr == StringValueEmpty {
		return nil, p.newMissingArgsError(KeywordSet, openTok.Position)
	}

	return NewSetNode(name, expr, openTok.Position), nil
}

// parseInclude parses an include statement. The argument is an
// expression yielding a template name.
func (p *Parser) parseInclude(openTok Token) (*IncludeNode, error) {
	p.advance()

	if openTok.Value == StringValueEmpty {
		return nil, p.newMissingArgsError(KeywordInclude, openTok.Position)
	}

	return NewIncludeNode(openTok.Value, openTok.Position), nil
}

// Helper methods

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenTypeEOF}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token
func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// isAtEnd returns true if we've reached EOF
func (p *Parser) isAtEnd() bool {
	return p.current().Type == TokenTypeEOF
}

// keywordIn reports whether keyword is in the set
func keywordIn(keyword string, set []string) bool {
	for _, k := range set {
		if keyword == k {
			return true
		}
	}
	return false
}

// Error helpers

func (p *Parser) newStrayKeywordError(tok Token) error {
	return &ParserError{
		Message:  ErrMsgStrayKeyword,
		Keyword:  tok.Keyword,
		Position: tok.Position,
	}
}

func (p *Parser) newUnknownKeywordError(tok Token) error {
	return &ParserError{
		Message:  ErrMsgUnknownStmtKeyword,
		Keyword:  tok.Keyword,
		Position: tok.Position,
	}
}

func (p *Parser) newExpectedKeywordError(expected string, actual Token) error {
	return &ParserError{
		Message:  ErrMsgExpectedKeyword,
		Keyword:  expected,
		Position: actual.Position,
	}
}

func (p *Parser) newUnclosedBlockError(end []string) error {
	return &ParserError{
		Message:  ErrMsgUnclosedBlock,
		Keyword:  strings.Join(end, FmtCommaSep),
		Position: p.current().Position,
	}
}

func (p *Parser) newMissingArgsError(keyword string, pos Position) error {
	return &ParserError{
		Message:  ErrMsgMissingStmtArgs,
		Keyword:  keyword,
		Position: pos,
	}
}

func (p *Parser) newUnexpectedArgsError(keyword string, pos Position) error {
	return &ParserError{
		Message:  ErrMsgUnexpectedStmtArgs,
		Keyword:  keyword,
		Position: pos,
	}
}

// ParserError represents a parser error with context
type ParserError struct {
	Message  string
	Keyword  string
	Position Position
}

// Error implements the error interface
func (e *ParserError) Error() string {
	msg := e.Message
	if e.Keyword != StringValueEmpty {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Keyword)
	}
	return fmt.Sprintf(ErrFmtWithPosition, msg, e.Position.String())
}

// Parser error message constants
const (
	ErrMsgStrayKeyword       = "statement keyword outside its block"
	ErrMsgUnknownStmtKeyword = "unknown statement keyword"
	ErrMsgExpectedKeyword    = "expected statement"
	ErrMsgUnclosedBlock      = "unclosed block, expected one of"
	ErrMsgMissingStmtArgs    = "statement requires arguments"
	ErrMsgUnexpectedStmtArgs = "statement takes no arguments"
)
