package temply

import (
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Parse errors
	ErrMsgParseFailed   = "template parsing failed"
	ErrMsgInvalidSyntax = "invalid template syntax"

	// Render errors
	ErrMsgRenderFailed = "template render failed"

	// Template registry errors
	ErrMsgEmptyTemplateName = "template name cannot be empty"
	ErrMsgTemplateExists    = "template already registered"
	ErrMsgTemplateNotFound  = "template not found"

	// Tag registration errors
	ErrMsgTagRegistration = "tag registration failed"

	// Function registration errors
	ErrMsgFuncRegistration = "function registration failed"
)

// Error code constants for categorization
const (
	ErrCodeParse    = "TEMPLY_PARSE"
	ErrCodeRender   = "TEMPLY_RENDER"
	ErrCodeStorage  = "TEMPLY_STORAGE"
	ErrCodeRegistry = "TEMPLY_REGISTRY"
)

// Metadata key constants
const (
	MetaKeyLine     = "line"
	MetaKeyColumn   = "column"
	MetaKeyOffset   = "offset"
	MetaKeyTemplate = "template"
	MetaKeyTag      = "tag"
	MetaKeyDriver   = "driver"
)

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

// NewParseError creates a parse error with position context
func NewParseError(msg string, pos Position, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeParse, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeParse, msg)
	}
	return err.
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
}

// NewRenderError creates a render error wrapping the internal cause
func NewRenderError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgRenderFailed)
}

// NewEmptyTemplateNameError creates an error for empty template names
func NewEmptyTemplateNameError() error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgEmptyTemplateName)
}

// NewTemplateExistsError creates a template name collision error
func NewTemplateExistsError(name string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgTemplateExists).
		WithMetadata(MetaKeyTemplate, name)
}

// NewTemplateNotFoundError creates an error for an unknown template name
func NewTemplateNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyTemplate, ErrMsgTemplateNotFound).
		WithMetadata(MetaKeyTemplate, name)
}

// NewTagRegistrationError wraps a tag registration failure
func NewTagRegistrationError(keyword string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRegistry, ErrMsgTagRegistration).
		WithMetadata(MetaKeyTag, keyword)
}

// NewStorageOpError wraps a storage backend failure
func NewStorageOpError(msg string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeStorage, msg)
}
