package temply

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// TemplateID is a unique identifier for a stored template version.
type TemplateID string

// StoredTemplate represents a template with metadata stored in a
// storage backend. Every save creates a new version; versions are
// immutable once written.
type StoredTemplate struct {
	// ID is the unique identifier for this template version.
	ID TemplateID `json:"id" yaml:"id"`

	// Name is the template name used for lookups.
	Name string `json:"name" yaml:"name"`

	// Source is the raw template source code.
	Source string `json:"source" yaml:"source"`

	// Version is the version number (1, 2, 3, ...).
	// Higher versions are newer.
	Version int `json:"version" yaml:"version"`

	// Metadata contains arbitrary key-value pairs for user-defined data.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// CreatedAt is when this version was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is when this version was last modified.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// CreatedBy identifies who created this version (optional).
	CreatedBy string `json:"created_by,omitempty" yaml:"created_by,omitempty"`

	// Tags for categorization and querying.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// TemplateQuery defines filters for listing templates.
type TemplateQuery struct {
	// Tags filters to templates having ALL specified tags.
	Tags []string

	// CreatedBy filters by creator.
	CreatedBy string

	// NamePrefix filters to names starting with this prefix.
	NamePrefix string

	// Limit is the maximum number of results (0 = no limit).
	Limit int

	// Offset is the number of results to skip (for pagination).
	Offset int

	// IncludeAllVersions includes all versions, not just latest.
	IncludeAllVersions bool
}

// TemplateStore is the interface for pluggable storage backends.
// Implementations must be safe for concurrent use.
//
// The interface follows patterns from database/sql for familiarity:
// context for cancellation, explicit error returns, Close for
// resource cleanup.
type TemplateStore interface {
	// Get retrieves the latest version of a template by name.
	Get(ctx context.Context, name string) (*StoredTemplate, error)

	// GetByID retrieves a specific template version by ID.
	GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error)

	// GetVersion retrieves a specific version of a template.
	GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error)

	// Put stores a template. If a template with the same name exists,
	// a new version is created. The template's ID, Version, CreatedAt,
	// and UpdatedAt fields are set by the storage implementation.
	Put(ctx context.Context, tmpl *StoredTemplate) error

	// Delete removes all versions of a template by name.
	Delete(ctx context.Context, name string) error

	// DeleteVersion removes a specific version of a template.
	DeleteVersion(ctx context.Context, name string, version int) error

	// List returns templates matching the query, ordered by name then
	// version descending.
	List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error)

	// Exists checks if a template with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// ListVersions returns all version numbers for a template, newest
	// first. Empty slice if the template doesn't exist.
	ListVersions(ctx context.Context, name string) ([]int, error)

	// Close releases any resources held by the store.
	Close() error
}

// StoreDriver is a factory for creating store instances.
// Drivers register themselves during init().
type StoreDriver interface {
	// Open creates a new store with the given connection string.
	// The format of the connection string is driver-specific.
	Open(connectionString string) (TemplateStore, error)
}

// Store driver registry
var (
	storeDriversMu sync.RWMutex
	storeDrivers   = make(map[string]StoreDriver)
)

// RegisterStoreDriver registers a store driver by name.
// This is typically called from a driver's init() function.
// Panics if a driver with the same name is already registered.
func RegisterStoreDriver(name string, driver StoreDriver) {
	storeDriversMu.Lock()
	defer storeDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStoreDriver)
	}
	if _, exists := storeDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storeDrivers[name] = driver
}

// OpenStore opens a store using the named driver.
//
// Example:
//
//	store, err := temply.OpenStore("memory", "")
//	store, err := temply.OpenStore("filesystem", "/path/to/templates")
func OpenStore(driverName, connectionString string) (TemplateStore, error) {
	storeDriversMu.RLock()
	driver, ok := storeDrivers[driverName]
	storeDriversMu.RUnlock()

	if !ok {
		return nil, NewStoreDriverNotFoundError(driverName)
	}

	return driver.Open(connectionString)
}

// ListStoreDrivers returns the names of all registered store drivers.
func ListStoreDrivers() []string {
	storeDriversMu.RLock()
	defer storeDriversMu.RUnlock()

	names := make([]string, 0, len(storeDrivers))
	for name := range storeDrivers {
		names = append(names, name)
	}
	return names
}

// Storage error message constants
const (
	ErrMsgNilStoreDriver          = "store driver is nil"
	ErrMsgDriverAlreadyRegistered = "store driver already registered"
	ErrMsgStoreDriverNotFound     = "store driver not found"
	ErrMsgStoreClosed             = "store is closed"
	ErrMsgInvalidTemplateName     = "invalid template name"
	ErrMsgVersionNotFound         = "template version not found"
	ErrMsgStoredTemplateNotFound  = "stored template not found"
	ErrMsgStorageListFailed       = "listing stored templates failed"
)

// NewStoreDriverNotFoundError creates an error for a missing driver.
func NewStoreDriverNotFoundError(name string) error {
	return &StoreError{
		Message: ErrMsgStoreDriverNotFound,
		Name:    name,
	}
}

// NewStoredTemplateNotFoundError creates an error for a template
// missing from a store.
func NewStoredTemplateNotFoundError(name string) error {
	return &StoreError{
		Message: ErrMsgStoredTemplateNotFound,
		Name:    name,
	}
}

// NewStoreVersionNotFoundError creates an error for a missing version.
func NewStoreVersionNotFoundError(name string, version int) error {
	return &StoreError{
		Message: ErrMsgVersionNotFound,
		Name:    name,
		Version: version,
	}
}

// NewStoreClosedError creates an error for operations on a closed store.
func NewStoreClosedError() error {
	return &StoreError{
		Message: ErrMsgStoreClosed,
	}
}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
	Name    string
	Version int
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Name != "" && e.Version > 0 {
		return e.Message + ": " + e.Name + " v" + strconv.Itoa(e.Version)
	}
	if e.Name != "" {
		return e.Message + ": " + e.Name
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}
