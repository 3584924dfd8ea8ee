package internal

import (
	"strings"

	"go.uber.org/zap"
)

// Lexer tokenizes template source into a token stream.
// It distinguishes literal text, {{ expression }} outputs and
// {% keyword args %} statements.
type Lexer struct {
	source string
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	logger *zap.Logger
}

// NewLexer creates a new lexer for the given source
func NewLexer(source string, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgLexerCreated, zap.Int(LogFieldSource, len(source)))
	return &Lexer{
		source: source,
		pos:    0,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// Tokenize processes the source and returns a token stream
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgTokenizerStart)
	var tokens []Token

	for !l.isAtEnd() {
		if l.matchStr(StrOutputOpen) {
			tok, err := l.scanOutput()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		}

		if l.matchStr(StrStmtOpen) {
			tok, err := l.scanStatement()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		}

		textToken := l.scanText()
		if textToken.Value != StringValueEmpty {
			tokens = append(tokens, textToken)
		}
	}

	tokens = append(tokens, NewEOFToken(l.currentPosition()))
	l.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens, nil
}

// scanText scans literal text until the next delimiter
func (l *Lexer) scanText() Token {
	startPos := l.currentPosition()
	var sb strings.Builder

	for !l.isAtEnd() {
		if l.matchStr(StrOutputOpen) || l.matchStr(StrStmtOpen) {
			break
		}
		sb.WriteByte(l.advance())
	}

	return NewTextToken(sb.String(), startPos)
}

// scanOutput scans a {{ expression }} output token
func (l *Lexer) scanOutput() (Token, error) {
	pos := l.currentPosition()
	l.advanceN(len(StrOutputOpen))

	inner, err := l.scanUntil(StrOutputClose, pos)
	if err != nil {
		return Token{}, err
	}
	return NewOutputToken(strings.TrimSpace(inner), pos), nil
}

// scanStatement scans a {% keyword args %} statement token
func (l *Lexer) scanStatement() (Token, error) {
	pos := l.currentPosition()
	l.advanceN(len(StrStmtOpen))

	inner, err := l.scanUntil(StrStmtClose, pos)
	if err != nil {
		return Token{}, err
	}

	inner = strings.TrimSpace(inner)
	if inner == StringValueEmpty {
		return Token{}, l.newEmptyStatementError(pos)
	}

	keyword := inner
	args := StringValueEmpty
	if idx := strings.IndexAny(inner, " \t\n\r"); idx >= 0 {
		keyword = inner[:idx]
		args = strings.TrimSpace(inner[idx:])
	}
	if !isValidKeyword(keyword) {
		return Token{}, l.newInvalidKeywordError(keyword, pos)
	}

	return NewStmtToken(keyword, args, pos), nil
}

// scanUntil consumes source until the closing delimiter, honoring
// string literals so a delimiter inside quotes does not terminate the
// scan. The closing delimiter itself is consumed but not returned.
func (l *Lexer) scanUntil(closeDelim string, openPos Position) (string, error) {
	var sb strings.Builder

	for !l.isAtEnd() {
		ch := l.peek()

		if ch == CharDoubleQuote || ch == CharSingleQuote {
			lit, err := l.scanStringLiteral()
			if err != nil {
				return StringValueEmpty, err
			}
			sb.WriteString(lit)
			continue
		}

		if l.matchStr(closeDelim) {
			l.advanceN(len(closeDelim))
			return sb.String(), nil
		}

		sb.WriteByte(l.advance())
	}

	return StringValueEmpty, l.newUnterminatedDelimError(openPos)
}

// scanStringLiteral consumes a quoted literal verbatim, including quotes
func (l *Lexer) scanStringLiteral() (string, error) {
	startPos := l.currentPosition()
	var sb strings.Builder

	quote := l.advance()
	sb.WriteByte(quote)

	for !l.isAtEnd() {
		ch := l.advance()
		sb.WriteByte(ch)
		if ch == CharBackslash && !l.isAtEnd() {
			sb.WriteByte(l.advance())
			continue
		}
		if ch == quote {
			return sb.String(), nil
		}
	}

	return StringValueEmpty, l.newUnterminatedStrError(startPos)
}

// isValidKeyword reports whether s is a well-formed statement keyword
func isValidKeyword(s string) bool {
	if s == StringValueEmpty {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isLetter(ch) || ch == '_' {
			continue
		}
		if i > 0 && isDigit(ch) {
			continue
		}
		return false
	}
	return true
}

// Helper methods

// currentPosition returns the current position
func (l *Lexer) currentPosition() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// isAtEnd returns true if we've reached the end of source
func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

// peek returns the current character without advancing
func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

// advance consumes and returns the current character
func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == CharNewline {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

// advanceN advances by n characters
func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

// matchStr returns true if the remaining source starts with s
func (l *Lexer) matchStr(s string) bool {
	return strings.HasPrefix(l.source[l.pos:], s)
}

// Character classification helpers

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Error helpers

func (l *Lexer) newUnterminatedDelimError(pos Position) error {
	return &LexerError{Message: ErrMsgUnterminatedDelim, Position: pos}
}

func (l *Lexer) newUnterminatedStrError(pos Position) error {
	return &LexerError{Message: ErrMsgUnterminatedStr, Position: pos}
}

func (l *Lexer) newEmptyStatementError(pos Position) error {
	return &LexerError{Message: ErrMsgEmptyStatement, Position: pos}
}

func (l *Lexer) newInvalidKeywordError(keyword string, pos Position) error {
	return &LexerError{Message: ErrMsgInvalidKeyword, Detail: keyword, Position: pos}
}

// LexerError represents a lexer error with position
type LexerError struct {
	Message  string
	Detail   string
	Position Position
}

func (e *LexerError) Error() string {
	if e.Detail != StringValueEmpty {
		return e.Message + " '" + e.Detail + "' at " + e.Position.String()
	}
	return e.Message + " at " + e.Position.String()
}

// Error message constants for lexer
const (
	ErrMsgUnterminatedDelim = "unterminated delimiter"
	ErrMsgUnterminatedStr   = "unterminated string literal"
	ErrMsgEmptyStatement    = "empty statement"
	ErrMsgInvalidKeyword    = "invalid statement keyword"
)
