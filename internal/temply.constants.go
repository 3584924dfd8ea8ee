package internal

// TokenType represents the type of a lexical token
type TokenType string

// Token type constants
const (
	TokenTypeText   TokenType = "TEXT"
	TokenTypeOutput TokenType = "OUTPUT"
	TokenTypeStmt   TokenType = "STMT"
	TokenTypeEOF    TokenType = "EOF"
)

// NodeType identifies AST node types
type NodeType int

// Node type constants
const (
	NodeTypeRoot NodeType = iota
	NodeTypeText
	NodeTypeOutput
	NodeTypeScope
	NodeTypeMacro
	NodeTypeCallBlock
	NodeTypeIf
	NodeTypeFor
	NodeTypeSet
	NodeTypeInclude
)

// Node type string names for debugging
const (
	NodeTypeNameRoot      = "ROOT"
	NodeTypeNameText      = "TEXT"
	NodeTypeNameOutput    = "OUTPUT"
	NodeTypeNameScope     = "SCOPE"
	NodeTypeNameMacro     = "MACRO"
	NodeTypeNameCallBlock = "CALL_BLOCK"
	NodeTypeNameIf        = "IF"
	NodeTypeNameFor       = "FOR"
	NodeTypeNameSet       = "SET"
	NodeTypeNameInclude   = "INCLUDE"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeRoot:
		return NodeTypeNameRoot
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeOutput:
		return NodeTypeNameOutput
	case NodeTypeScope:
		return NodeTypeNameScope
	case NodeTypeMacro:
		return NodeTypeNameMacro
	case NodeTypeCallBlock:
		return NodeTypeNameCallBlock
	case NodeTypeIf:
		return NodeTypeNameIf
	case NodeTypeFor:
		return NodeTypeNameFor
	case NodeTypeSet:
		return NodeTypeNameSet
	case NodeTypeInclude:
		return NodeTypeNameInclude
	default:
		return NodeTypeNameRoot
	}
}

// String constants for delimiter matching
const (
	StrOutputOpen  = "{{"
	StrOutputClose = "}}"
	StrStmtOpen    = "{%"
	StrStmtClose   = "%}"
)

// Character constants
const (
	CharDoubleQuote = '"'
	CharSingleQuote = '\''
	CharBackslash   = '\\'
	CharNewline     = '\n'
	CharSpace       = ' '
	CharTab         = '\t'
	CharCarriageRet = '\r'
)

// Builtin statement keywords
const (
	KeywordIf      = "if"
	KeywordElif    = "elif"
	KeywordElse    = "else"
	KeywordEndIf   = "endif"
	KeywordFor     = "for"
	KeywordEndFor  = "endfor"
	KeywordSet     = "set"
	KeywordInclude = "include"
)

// Statement argument syntax fragments
const (
	StmtForSeparator = " in "
	StmtSetSeparator = "="
)

// Reserved function names handled by the evaluator itself
const (
	FuncNameDefined = "defined"
)

// Log message constants
const (
	LogMsgLexerCreated     = "lexer created"
	LogMsgTokenizerStart   = "starting tokenization"
	LogMsgTokenizerEnd     = "tokenization complete"
	LogMsgParserCreated    = "parser created"
	LogMsgParserStart      = "starting parse"
	LogMsgParserEnd        = "parse complete"
	LogMsgExecutorCreated  = "executor created"
	LogMsgRenderStart      = "starting render"
	LogMsgRenderEnd        = "render complete"
	LogMsgTagParsed        = "tag statement parsed"
	LogMsgTagRegistered    = "tag registered"
	LogMsgTagCollision     = "tag keyword collision ignored"
	LogMsgRegistryCreated  = "tag registry created"
	LogMsgBranchSelected   = "conditional branch selected"
	LogMsgBodyCaught       = "guarded body failed, substituting"
	LogMsgHandlerInvoked   = "catch handler invoked"
	LogMsgTemplateIncluded = "template included"
)

// Log field name constants
const (
	LogFieldSource   = "sourceLen"
	LogFieldTokens   = "tokens"
	LogFieldNodes    = "nodes"
	LogFieldKeyword  = "keyword"
	LogFieldBranch   = "branch"
	LogFieldTemplate = "template"
	LogFieldError    = "error"
	LogFieldAsync    = "async"
)

// Default configuration values
const (
	DefaultMaxDepth = 100
)

// Shared string constants
const (
	StringValueEmpty = ""
	FmtCommaSep      = ", "
)

// Display truncation for debug String() output
const (
	MaxStringDisplayLength = 40
	TruncatedStringLength  = 37
	TruncationSuffix       = "..."
)

// Error format strings
const (
	ErrFmtWithPosition = "%s at %s"
)
