package temply

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Driver name constants
const (
	StoreDriverMemory = "memory"
)

// MemoryStore is an in-memory implementation of TemplateStore.
// It is primarily intended for testing and development.
// All data is lost when the process terminates.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string][]*StoredTemplate // name -> versions (newest first)
	byID      map[TemplateID]*StoredTemplate
	closed    bool
}

// MemoryStoreDriver is the driver for creating MemoryStore instances.
type MemoryStoreDriver struct{}

func init() {
	RegisterStoreDriver(StoreDriverMemory, &MemoryStoreDriver{})
}

// Open creates a new MemoryStore instance.
// The connection string is ignored for memory storage.
func (d *MemoryStoreDriver) Open(connectionString string) (TemplateStore, error) {
	return NewMemoryStore(), nil
}

// NewMemoryStore creates a new in-memory template store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string][]*StoredTemplate),
		byID:      make(map[TemplateID]*StoredTemplate),
	}
}

// Get retrieves the latest version of a template by name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	versions, ok := s.templates[name]
	if !ok || len(versions) == 0 {
		return nil, NewStoredTemplateNotFoundError(name)
	}

	return copyStoredTemplate(versions[0]), nil
}

// GetByID retrieves a specific template version by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	tmpl, ok := s.byID[id]
	if !ok {
		return nil, NewStoredTemplateNotFoundError(string(id))
	}

	return copyStoredTemplate(tmpl), nil
}

// GetVersion retrieves a specific version of a template.
func (s *MemoryStore) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	for _, tmpl := range s.templates[name] {
		if tmpl.Version == version {
			return copyStoredTemplate(tmpl), nil
		}
	}

	return nil, NewStoreVersionNotFoundError(name, version)
}

// Put stores a template, creating a new version if one exists.
func (s *MemoryStore) Put(ctx context.Context, tmpl *StoredTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if tmpl.Name == "" {
		return &StoreError{Message: ErrMsgInvalidTemplateName}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	now := time.Now()
	versions := s.templates[tmpl.Name]

	nextVersion := 1
	if len(versions) > 0 {
		nextVersion = versions[0].Version + 1
	}

	stored := &StoredTemplate{
		ID:        newTemplateID(),
		Name:      tmpl.Name,
		Source:    tmpl.Source,
		Version:   nextVersion,
		Metadata:  copyStringMap(tmpl.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: tmpl.CreatedBy,
		Tags:      copyStringSlice(tmpl.Tags),
	}

	// Reflect generated fields back to the caller
	tmpl.ID = stored.ID
	tmpl.Version = stored.Version
	tmpl.CreatedAt = stored.CreatedAt
	tmpl.UpdatedAt = stored.UpdatedAt

	s.templates[tmpl.Name] = append([]*StoredTemplate{stored}, versions...)
	s.byID[stored.ID] = stored

	return nil
}

// Delete removes all versions of a template by name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	versions, ok := s.templates[name]
	if !ok {
		return NewStoredTemplateNotFoundError(name)
	}

	for _, tmpl := range versions {
		delete(s.byID, tmpl.ID)
	}

	delete(s.templates, name)
	return nil
}

// DeleteVersion removes a specific version of a template.
func (s *MemoryStore) DeleteVersion(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	versions := s.templates[name]
	for i, tmpl := range versions {
		if tmpl.Version == version {
			delete(s.byID, tmpl.ID)
			s.templates[name] = append(versions[:i], versions[i+1:]...)
			if len(s.templates[name]) == 0 {
				delete(s.templates, name)
			}
			return nil
		}
	}

	return NewStoreVersionNotFoundError(name, version)
}

// List returns templates matching the query.
func (s *MemoryStore) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	if query == nil {
		query = &TemplateQuery{}
	}

	var results []*StoredTemplate

	for name, versions := range s.templates {
		if query.NamePrefix != "" && !strings.HasPrefix(name, query.NamePrefix) {
			continue
		}

		candidates := versions
		if !query.IncludeAllVersions && len(versions) > 0 {
			candidates = versions[:1]
		}

		for _, tmpl := range candidates {
			if matchesTemplateQuery(tmpl, query) {
				results = append(results, copyStoredTemplate(tmpl))
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].Version > results[j].Version
	})

	return paginate(results, query.Offset, query.Limit), nil
}

// Exists checks if a template with the given name exists.
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStoreClosedError()
	}

	versions, ok := s.templates[name]
	return ok && len(versions) > 0, nil
}

// ListVersions returns all version numbers for a template.
func (s *MemoryStore) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	versions := s.templates[name]
	result := make([]int, len(versions))
	for i, tmpl := range versions {
		result[i] = tmpl.Version
	}

	return result, nil
}

// Close marks the store as closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.templates = nil
	s.byID = nil
	return nil
}

// matchesTemplateQuery checks per-record query filters.
func matchesTemplateQuery(tmpl *StoredTemplate, query *TemplateQuery) bool {
	if query.CreatedBy != "" && tmpl.CreatedBy != query.CreatedBy {
		return false
	}
	for _, tag := range query.Tags {
		if !containsString(tmpl.Tags, tag) {
			return false
		}
	}
	return true
}

// paginate applies offset and limit to a result slice.
func paginate(results []*StoredTemplate, offset, limit int) []*StoredTemplate {
	if offset > 0 {
		if offset >= len(results) {
			return []*StoredTemplate{}
		}
		results = results[offset:]
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// containsString checks if a slice contains a string.
func containsString(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// newTemplateID generates a unique template version ID.
func newTemplateID() TemplateID {
	return TemplateID("tmpl_" + uuid.NewString())
}

// copyStoredTemplate creates a deep copy of a StoredTemplate.
func copyStoredTemplate(tmpl *StoredTemplate) *StoredTemplate {
	if tmpl == nil {
		return nil
	}
	return &StoredTemplate{
		ID:        tmpl.ID,
		Name:      tmpl.Name,
		Source:    tmpl.Source,
		Version:   tmpl.Version,
		Metadata:  copyStringMap(tmpl.Metadata),
		CreatedAt: tmpl.CreatedAt,
		UpdatedAt: tmpl.UpdatedAt,
		CreatedBy: tmpl.CreatedBy,
		Tags:      copyStringSlice(tmpl.Tags),
	}
}

// copyStringMap creates a copy of a string map.
func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// copyStringSlice creates a copy of a string slice.
func copyStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	result := make([]string, len(s))
	copy(result, s)
	return result
}
