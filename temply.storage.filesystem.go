package temply

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Filesystem store constants
const (
	StoreDriverFilesystem = "filesystem"

	FilesystemDirPermissions  = 0o755
	FilesystemFilePermissions = 0o644

	filesystemVersionPrefix = "v"
	filesystemVersionExt    = ".yaml"
)

// Filesystem error message constants
const (
	ErrMsgInvalidStoreRoot    = "store root directory cannot be empty"
	ErrMsgCreateStoreDir      = "failed to create store directory"
	ErrMsgUnsafeTemplateName  = "template name contains path elements"
	ErrMsgReadTemplateFile    = "failed to read template file"
	ErrMsgWriteTemplateFile   = "failed to write template file"
	ErrMsgDecodeTemplateFile  = "failed to decode template file"
	ErrMsgEncodeTemplateFile  = "failed to encode template record"
	ErrMsgRemoveTemplateFiles = "failed to remove template files"
)

// FilesystemStore stores templates as YAML files on disk.
// Each version is a separate file, so versions stay immutable.
//
// Directory structure:
//
//	<root>/
//	  <template-name>/
//	    v1.yaml
//	    v2.yaml
//	    ...
type FilesystemStore struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemStoreDriver is the driver for creating FilesystemStore
// instances.
type FilesystemStoreDriver struct{}

func init() {
	RegisterStoreDriver(StoreDriverFilesystem, &FilesystemStoreDriver{})
}

// Open creates a new FilesystemStore instance.
// The connection string is the root directory path.
func (d *FilesystemStoreDriver) Open(connectionString string) (TemplateStore, error) {
	return NewFilesystemStore(connectionString)
}

// NewFilesystemStore creates a new filesystem-based template store.
// The root directory is created if it doesn't exist.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, &StoreError{Message: ErrMsgInvalidStoreRoot}
	}

	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StoreError{
			Message: ErrMsgCreateStoreDir,
			Name:    root,
			Cause:   err,
		}
	}

	return &FilesystemStore{root: root}, nil
}

// Get retrieves the latest version of a template by name.
func (s *FilesystemStore) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	versions := s.versionsOf(name)
	if len(versions) == 0 {
		return nil, NewStoredTemplateNotFoundError(name)
	}

	return s.loadVersion(name, versions[0])
}

// GetByID retrieves a specific template version by ID.
// The filesystem layout is keyed by name, so this scans all records.
func (s *FilesystemStore) GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	names, err := s.templateNames()
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		for _, version := range s.versionsOf(name) {
			tmpl, err := s.loadVersion(name, version)
			if err != nil {
				continue
			}
			if tmpl.ID == id {
				return tmpl, nil
			}
		}
	}

	return nil, NewStoredTemplateNotFoundError(string(id))
}

// GetVersion retrieves a specific version of a template.
func (s *FilesystemStore) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	tmpl, err := s.loadVersion(name, version)
	if err != nil {
		return nil, NewStoreVersionNotFoundError(name, version)
	}
	return tmpl, nil
}

// Put stores a template, creating a new version file.
func (s *FilesystemStore) Put(ctx context.Context, tmpl *StoredTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tmpl.Name == "" {
		return &StoreError{Message: ErrMsgInvalidTemplateName}
	}
	if err := validateTemplateName(tmpl.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	versions := s.versionsOf(tmpl.Name)
	nextVersion := 1
	if len(versions) > 0 {
		nextVersion = versions[0] + 1
	}

	now := time.Now()
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

	dir := filepath.Join(s.root, tmpl.Name)
	if err := os.MkdirAll(dir, FilesystemDirPermissions); err != nil {
		return &StoreError{Message: ErrMsgCreateStoreDir, Name: dir, Cause: err}
	}

	data, err := yaml.Marshal(stored)
	if err != nil {
		return &StoreError{Message: ErrMsgEncodeTemplateFile, Name: tmpl.Name, Cause: err}
	}

	path := s.versionPath(tmpl.Name, nextVersion)
	if err := os.WriteFile(path, data, FilesystemFilePermissions); err != nil {
		return &StoreError{Message: ErrMsgWriteTemplateFile, Name: tmpl.Name, Cause: err}
	}

	tmpl.ID = stored.ID
	tmpl.Version = stored.Version
	tmpl.CreatedAt = stored.CreatedAt
	tmpl.UpdatedAt = stored.UpdatedAt

	return nil
}

// Delete removes all versions of a template by name.
func (s *FilesystemStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTemplateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewStoredTemplateNotFoundError(name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return &StoreError{Message: ErrMsgRemoveTemplateFiles, Name: name, Cause: err}
	}
	return nil
}

// DeleteVersion removes a specific version of a template.
func (s *FilesystemStore) DeleteVersion(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTemplateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreClosedError()
	}

	path := s.versionPath(name, version)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewStoreVersionNotFoundError(name, version)
	}

	if err := os.Remove(path); err != nil {
		return &StoreError{Message: ErrMsgRemoveTemplateFiles, Name: name, Version: version, Cause: err}
	}

	// Drop the directory once the last version is gone
	if len(s.versionsOf(name)) == 0 {
		_ = os.Remove(filepath.Join(s.root, name))
	}
	return nil
}

// List returns templates matching the query.
func (s *FilesystemStore) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
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

	names, err := s.templateNames()
	if err != nil {
		return nil, err
	}

	var results []*StoredTemplate
	for _, name := range names {
		if query.NamePrefix != "" && !strings.HasPrefix(name, query.NamePrefix) {
			continue
		}

		versions := s.versionsOf(name)
		if !query.IncludeAllVersions && len(versions) > 0 {
			versions = versions[:1]
		}

		for _, version := range versions {
			tmpl, err := s.loadVersion(name, version)
			if err != nil {
				continue
			}
			if matchesTemplateQuery(tmpl, query) {
				results = append(results, tmpl)
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
func (s *FilesystemStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateTemplateName(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStoreClosedError()
	}

	return len(s.versionsOf(name)) > 0, nil
}

// ListVersions returns all version numbers for a template.
func (s *FilesystemStore) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStoreClosedError()
	}

	return s.versionsOf(name), nil
}

// Close marks the store as closed.
func (s *FilesystemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// versionPath builds the file path for a template version.
func (s *FilesystemStore) versionPath(name string, version int) string {
	filename := filesystemVersionPrefix + strconv.Itoa(version) + filesystemVersionExt
	return filepath.Join(s.root, name, filename)
}

// versionsOf lists the version numbers of a template, newest first.
func (s *FilesystemStore) versionsOf(name string) []int {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		return nil
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !strings.HasPrefix(filename, filesystemVersionPrefix) || !strings.HasSuffix(filename, filesystemVersionExt) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(filename, filesystemVersionPrefix), filesystemVersionExt)
		version, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		versions = append(versions, version)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions
}

// templateNames lists all template directories under the root.
func (s *FilesystemStore) templateNames() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StoreError{Message: ErrMsgReadTemplateFile, Name: s.root, Cause: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// loadVersion reads and decodes one version file.
func (s *FilesystemStore) loadVersion(name string, version int) (*StoredTemplate, error) {
	data, err := os.ReadFile(s.versionPath(name, version))
	if err != nil {
		return nil, &StoreError{Message: ErrMsgReadTemplateFile, Name: name, Version: version, Cause: err}
	}

	var tmpl StoredTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, &StoreError{Message: ErrMsgDecodeTemplateFile, Name: name, Version: version, Cause: err}
	}
	return &tmpl, nil
}

// validateTemplateName rejects names that could escape the store root.
func validateTemplateName(name string) error {
	if name == "" {
		return &StoreError{Message: ErrMsgInvalidTemplateName}
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." || strings.Contains(name, "..") {
		return &StoreError{Message: ErrMsgUnsafeTemplateName, Name: name}
	}
	return nil
}
