package internal

import "fmt"

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is a lexical token produced by the Lexer.
// TEXT tokens carry literal template text in Value.
// OUTPUT tokens carry the raw expression source in Value.
// STMT tokens carry the statement keyword in Keyword and the raw
// argument source (possibly empty) in Value.
type Token struct {
	Type     TokenType
	Keyword  string
	Value    string
	Position Position
}

// String returns a debug representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenTypeStmt:
		if t.Value != StringValueEmpty {
			return fmt.Sprintf("STMT(%s %s)", t.Keyword, t.Value)
		}
		return fmt.Sprintf("STMT(%s)", t.Keyword)
	case TokenTypeOutput:
		return fmt.Sprintf("OUTPUT(%s)", t.Value)
	case TokenTypeText:
		return fmt.Sprintf("TEXT(%q)", t.Value)
	default:
		return string(t.Type)
	}
}

// NewTextToken creates a TEXT token
func NewTextToken(value string, pos Position) Token {
	return Token{Type: TokenTypeText, Value: value, Position: pos}
}

// NewOutputToken creates an OUTPUT token holding raw expression source
func NewOutputToken(expr string, pos Position) Token {
	return Token{Type: TokenTypeOutput, Value: expr, Position: pos}
}

// NewStmtToken creates a STMT token holding a keyword and raw arguments
func NewStmtToken(keyword, args string, pos Position) Token {
	return Token{Type: TokenTypeStmt, Keyword: keyword, Value: args, Position: pos}
}

// NewEOFToken creates an EOF token
func NewEOFToken(pos Position) Token {
	return Token{Type: TokenTypeEOF, Position: pos}
}
