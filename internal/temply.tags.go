package internal

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// TagParselet turns a statement token into an AST node. The parselet
// receives the parser positioned just after its opening statement and
// is responsible for consuming any closing statements it defines.
type TagParselet interface {
	// Keyword returns the statement keyword that opens this tag
	Keyword() string
	// InnerKeywords returns keywords reserved by this tag for branch
	// and close statements (they cannot open a statement on their own)
	InnerKeywords() []string
	// Parse builds the node for an opening statement token
	Parse(p *Parser, tok Token) (Node, error)
}

// TagRegistry maps statement keywords to their parselets
type TagRegistry struct {
	tags  map[string]TagParselet
	inner map[string]string // inner keyword -> owning tag keyword
	mu    sync.RWMutex

	logger *zap.Logger
}

// NewTagRegistry creates an empty tag registry
func NewTagRegistry(logger *zap.Logger) *TagRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgRegistryCreated)
	return &TagRegistry{
		tags:   make(map[string]TagParselet),
		inner:  make(map[string]string),
		logger: logger,
	}
}

// Register adds a tag parselet. Keywords must not collide with the
// builtin statements or with previously registered tags.
func (r *TagRegistry) Register(tag TagParselet) error {
	if tag == nil {
		return NewTagRegistryError(ErrMsgTagNil, StringValueEmpty)
	}

	keyword := tag.Keyword()
	if keyword == StringValueEmpty {
		return NewTagRegistryError(ErrMsgTagEmptyKeyword, StringValueEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if isBuiltinKeyword(keyword) {
		return NewTagRegistryError(ErrMsgTagBuiltinKeyword, keyword)
	}
	if _, exists := r.tags[keyword]; exists {
		return NewTagRegistryError(ErrMsgTagAlreadyExists, keyword)
	}
	if owner, exists := r.inner[keyword]; exists {
		return NewTagRegistryError(ErrMsgTagReservedKeyword, keyword+FmtCommaSep+owner)
	}

	for _, ik := range tag.InnerKeywords() {
		if isBuiltinKeyword(ik) {
			return NewTagRegistryError(ErrMsgTagBuiltinKeyword, ik)
		}
		if _, exists := r.tags[ik]; exists {
			return NewTagRegistryError(ErrMsgTagAlreadyExists, ik)
		}
		if owner, exists := r.inner[ik]; exists && owner != keyword {
			return NewTagRegistryError(ErrMsgTagReservedKeyword, ik+FmtCommaSep+owner)
		}
	}

	r.tags[keyword] = tag
	for _, ik := range tag.InnerKeywords() {
		r.inner[ik] = keyword
	}

	r.logger.Debug(LogMsgTagRegistered, zap.String(LogFieldKeyword, keyword))
	return nil
}

// MustRegister adds a tag parselet and panics on error
func (r *TagRegistry) MustRegister(tag TagParselet) {
	if err := r.Register(tag); err != nil {
		panic(err)
	}
}

// Get returns the parselet for a keyword
func (r *TagRegistry) Get(keyword string) (TagParselet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, ok := r.tags[keyword]
	return tag, ok
}

// IsInner reports whether a keyword is reserved as an inner keyword
func (r *TagRegistry) IsInner(keyword string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.inner[keyword]
	return ok
}

// List returns all registered opening keywords in sorted order
func (r *TagRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keywords := make([]string, 0, len(r.tags))
	for k := range r.tags {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	return keywords
}

// isBuiltinKeyword reports whether a keyword belongs to the builtin
// statement set
func isBuiltinKeyword(keyword string) bool {
	switch keyword {
	case KeywordIf, KeywordElif, KeywordElse, KeywordEndIf,
		KeywordFor, KeywordEndFor, KeywordSet, KeywordInclude:
		return true
	default:
		return false
	}
}

// TagRegistryError represents a tag registry error
type TagRegistryError struct {
	Message string
	Keyword string
}

// NewTagRegistryError creates a new tag registry error
func NewTagRegistryError(message, keyword string) *TagRegistryError {
	return &TagRegistryError{
		Message: message,
		Keyword: keyword,
	}
}

// Error implements the error interface
func (e *TagRegistryError) Error() string {
	if e.Keyword != StringValueEmpty {
		return fmt.Sprintf("%s: %s", e.Message, e.Keyword)
	}
	return e.Message
}

// Tag registry error message constants
const (
	ErrMsgTagNil             = "nil tag parselet"
	ErrMsgTagEmptyKeyword    = "tag keyword cannot be empty"
	ErrMsgTagAlreadyExists   = "tag keyword already registered"
	ErrMsgTagBuiltinKeyword  = "tag keyword collides with a builtin statement"
	ErrMsgTagReservedKeyword = "tag keyword reserved by another tag"
)
