//go:build integration

package temply

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer creates an ephemeral PostgreSQL container for testing.
func setupPostgresContainer(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("temply_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	config := DefaultPostgresConfig()
	config.ConnectionString = connStr
	config.AutoMigrate = true

	store, err := NewPostgresStore(config)
	require.NoError(t, err, "failed to create postgres store")

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	}

	return store, cleanup
}

func TestPostgres_E2E_BasicCRUD(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("Put", func(t *testing.T) {
		tmpl := &StoredTemplate{
			Name:      "test-template",
			Source:    "Hello {{ user }}!",
			Metadata:  map[string]string{"author": "test"},
			Tags:      []string{"greeting", "test"},
			CreatedBy: "user-1",
		}

		err := store.Put(ctx, tmpl)
		require.NoError(t, err)
		assert.NotEmpty(t, tmpl.ID)
		assert.Equal(t, 1, tmpl.Version)
		assert.False(t, tmpl.CreatedAt.IsZero())
		assert.False(t, tmpl.UpdatedAt.IsZero())
	})

	t.Run("Get", func(t *testing.T) {
		tmpl, err := store.Get(ctx, "test-template")
		require.NoError(t, err)
		assert.Equal(t, "test-template", tmpl.Name)
		assert.Contains(t, tmpl.Source, "{{ user }}")
		assert.Equal(t, 1, tmpl.Version)
		assert.Equal(t, "user-1", tmpl.CreatedBy)
		assert.Contains(t, tmpl.Tags, "greeting")
		assert.Equal(t, "test", tmpl.Metadata["author"])
	})

	t.Run("GetByID", func(t *testing.T) {
		tmpl, err := store.Get(ctx, "test-template")
		require.NoError(t, err)

		retrieved, err := store.GetByID(ctx, tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, tmpl.ID, retrieved.ID)
		assert.Equal(t, tmpl.Name, retrieved.Name)
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := store.Exists(ctx, "test-template")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.Exists(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "nonexistent-template")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("Delete", func(t *testing.T) {
		tmpl := &StoredTemplate{
			Name:   "to-delete",
			Source: "delete me",
		}
		err := store.Put(ctx, tmpl)
		require.NoError(t, err)

		err = store.Delete(ctx, "to-delete")
		require.NoError(t, err)

		exists, err := store.Exists(ctx, "to-delete")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		err := store.Delete(ctx, "nonexistent-template")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestPostgres_E2E_Versioning(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		tmpl := &StoredTemplate{
			Name:   "versioned-template",
			Source: fmt.Sprintf("Version %d content", i),
		}
		err := store.Put(ctx, tmpl)
		require.NoError(t, err)
		assert.Equal(t, i, tmpl.Version)
	}

	t.Run("GetReturnsLatestVersion", func(t *testing.T) {
		tmpl, err := store.Get(ctx, "versioned-template")
		require.NoError(t, err)
		assert.Equal(t, 5, tmpl.Version)
		assert.Contains(t, tmpl.Source, "Version 5")
	})

	t.Run("GetVersion", func(t *testing.T) {
		tmpl, err := store.GetVersion(ctx, "versioned-template", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, tmpl.Version)
		assert.Contains(t, tmpl.Source, "Version 3")
	})

	t.Run("GetVersionNotFound", func(t *testing.T) {
		_, err := store.GetVersion(ctx, "versioned-template", 99)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("ListVersions", func(t *testing.T) {
		versions, err := store.ListVersions(ctx, "versioned-template")
		require.NoError(t, err)
		assert.Equal(t, []int{5, 4, 3, 2, 1}, versions)
	})

	t.Run("DeleteVersion", func(t *testing.T) {
		err := store.DeleteVersion(ctx, "versioned-template", 2)
		require.NoError(t, err)

		versions, err := store.ListVersions(ctx, "versioned-template")
		require.NoError(t, err)
		assert.Len(t, versions, 4)
		assert.NotContains(t, versions, 2)
	})

	t.Run("DeleteVersionNotFound", func(t *testing.T) {
		err := store.DeleteVersion(ctx, "versioned-template", 99)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestPostgres_E2E_ConcurrentPuts(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	const numGoroutines = 50
	var wg sync.WaitGroup
	errChan := make(chan error, numGoroutines)
	versionChan := make(chan int, numGoroutines)

	// All goroutines write the same template name; serializable
	// transactions must hand out unique versions.
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			tmpl := &StoredTemplate{
				Name:   "concurrent-template",
				Source: fmt.Sprintf("Content from goroutine %d", id),
			}

			err := store.Put(ctx, tmpl)
			if err != nil {
				errChan <- err
				return
			}
			versionChan <- tmpl.Version
		}(i)
	}

	wg.Wait()
	close(errChan)
	close(versionChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	assert.Empty(t, errs, "expected no errors from concurrent puts")

	versionSet := make(map[int]bool)
	for v := range versionChan {
		assert.False(t, versionSet[v], "duplicate version detected: %d", v)
		versionSet[v] = true
	}
	assert.Len(t, versionSet, numGoroutines)

	dbVersions, err := store.ListVersions(ctx, "concurrent-template")
	require.NoError(t, err)
	assert.Len(t, dbVersions, numGoroutines)
}

func TestPostgres_E2E_ConcurrentReads(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	tmpl := &StoredTemplate{
		Name:   "read-test",
		Source: "Read me concurrently",
	}
	err := store.Put(ctx, tmpl)
	require.NoError(t, err)

	const numGoroutines = 100
	var wg sync.WaitGroup
	errChan := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			retrieved, err := store.Get(ctx, "read-test")
			if err != nil {
				errChan <- err
				return
			}
			if retrieved.Name != "read-test" {
				errChan <- fmt.Errorf("unexpected template name: %s", retrieved.Name)
			}
		}()
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	assert.Empty(t, errs, "expected no errors from concurrent reads")
}

func TestPostgres_E2E_ListFiltering(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	testTemplates := []struct {
		name      string
		createdBy string
		tags      []string
	}{
		{"api/users/get", "alice", []string{"api", "users"}},
		{"api/users/list", "alice", []string{"api", "users"}},
		{"api/orders/get", "bob", []string{"api", "orders"}},
		{"web/home", "charlie", []string{"web", "public"}},
		{"web/about", "charlie", []string{"web", "public"}},
		{"internal/admin", "admin", []string{"internal", "admin"}},
	}

	for _, tt := range testTemplates {
		tmpl := &StoredTemplate{
			Name:      tt.name,
			Source:    "Source for " + tt.name,
			CreatedBy: tt.createdBy,
			Tags:      tt.tags,
		}
		err := store.Put(ctx, tmpl)
		require.NoError(t, err)
	}

	t.Run("FilterByCreatedBy", func(t *testing.T) {
		results, err := store.List(ctx, &TemplateQuery{
			CreatedBy: "alice",
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		for _, r := range results {
			assert.Equal(t, "alice", r.CreatedBy)
		}
	})

	t.Run("FilterByNamePrefix", func(t *testing.T) {
		results, err := store.List(ctx, &TemplateQuery{
			NamePrefix: "api/",
		})
		require.NoError(t, err)
		assert.Len(t, results, 3)

		for _, r := range results {
			assert.True(t, len(r.Name) >= 4 && r.Name[:4] == "api/")
		}
	})

	t.Run("FilterByTags_SingleTag", func(t *testing.T) {
		results, err := store.List(ctx, &TemplateQuery{
			Tags: []string{"api"},
		})
		require.NoError(t, err)
		assert.Len(t, results, 3)

		for _, r := range results {
			assert.Contains(t, r.Tags, "api")
		}
	})

	t.Run("FilterByTags_MultipleTags", func(t *testing.T) {
		results, err := store.List(ctx, &TemplateQuery{
			Tags: []string{"web", "public"},
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		for _, r := range results {
			assert.Contains(t, r.Tags, "web")
			assert.Contains(t, r.Tags, "public")
		}
	})

	t.Run("FilterCombined", func(t *testing.T) {
		results, err := store.List(ctx, &TemplateQuery{
			CreatedBy:  "alice",
			NamePrefix: "api/users",
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Pagination", func(t *testing.T) {
		page1, err := store.List(ctx, &TemplateQuery{
			Limit:  2,
			Offset: 0,
		})
		require.NoError(t, err)
		assert.Len(t, page1, 2)

		page2, err := store.List(ctx, &TemplateQuery{
			Limit:  2,
			Offset: 2,
		})
		require.NoError(t, err)
		assert.Len(t, page2, 2)

		page1Names := make(map[string]bool)
		for _, r := range page1 {
			page1Names[r.Name] = true
		}
		for _, r := range page2 {
			assert.False(t, page1Names[r.Name], "pagination overlap detected")
		}
	})

	t.Run("IncludeAllVersions", func(t *testing.T) {
		tmpl := &StoredTemplate{
			Name:   "api/users/get",
			Source: "Updated source",
		}
		err := store.Put(ctx, tmpl)
		require.NoError(t, err)

		results, err := store.List(ctx, &TemplateQuery{
			NamePrefix: "api/users/get",
		})
		require.NoError(t, err)
		assert.Len(t, results, 1)

		results, err = store.List(ctx, &TemplateQuery{
			NamePrefix:         "api/users/get",
			IncludeAllVersions: true,
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestPostgres_E2E_Migrations(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("temply_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	t.Run("InitialMigration", func(t *testing.T) {
		config := DefaultPostgresConfig()
		config.ConnectionString = connStr
		config.AutoMigrate = true

		store, err := NewPostgresStore(config)
		require.NoError(t, err)
		defer store.Close()

		version, err := store.CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)

		err = store.Put(ctx, &StoredTemplate{Name: "migration-test", Source: "test"})
		require.NoError(t, err)
	})

	t.Run("IdempotentRerun", func(t *testing.T) {
		config := DefaultPostgresConfig()
		config.ConnectionString = connStr
		config.AutoMigrate = true

		store, err := NewPostgresStore(config)
		require.NoError(t, err)
		defer store.Close()

		version, err := store.CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)

		exists, err := store.Exists(ctx, "migration-test")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("ManualMigration", func(t *testing.T) {
		config := DefaultPostgresConfig()
		config.ConnectionString = connStr
		config.AutoMigrate = false

		store, err := NewPostgresStore(config)
		require.NoError(t, err)
		defer store.Close()

		err = store.RunMigrations(ctx)
		require.NoError(t, err)

		// Idempotent
		err = store.RunMigrations(ctx)
		require.NoError(t, err)
	})
}

func TestPostgres_E2E_ConnectionPooling(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("temply_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	t.Run("CustomPoolConfig", func(t *testing.T) {
		store, err := NewPostgresStore(PostgresConfig{
			ConnectionString: connStr,
			MaxOpenConns:     5,
			MaxIdleConns:     2,
			ConnMaxLifetime:  1 * time.Minute,
			ConnMaxIdleTime:  30 * time.Second,
			AutoMigrate:      true,
		})
		require.NoError(t, err)
		defer store.Close()

		err = store.Put(ctx, &StoredTemplate{Name: "pool-test", Source: "test"})
		require.NoError(t, err)
	})

	t.Run("HighConcurrencyWithLimitedPool", func(t *testing.T) {
		store, err := NewPostgresStore(PostgresConfig{
			ConnectionString: connStr,
			MaxOpenConns:     3,
			MaxIdleConns:     1,
		})
		require.NoError(t, err)
		defer store.Close()

		const numGoroutines = 20
		var wg sync.WaitGroup
		errChan := make(chan error, numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()

				if id%2 == 0 {
					tmpl := &StoredTemplate{
						Name:   fmt.Sprintf("pool-high-%d", id),
						Source: "test",
					}
					if err := store.Put(ctx, tmpl); err != nil {
						errChan <- err
					}
				} else {
					if _, err := store.List(ctx, nil); err != nil {
						errChan <- err
					}
				}
			}(i)
		}

		wg.Wait()
		close(errChan)

		var errs []error
		for err := range errChan {
			errs = append(errs, err)
		}
		assert.Empty(t, errs, "pool should handle high concurrency")
	})
}

func TestPostgres_E2E_EdgeCases(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("EmptyName", func(t *testing.T) {
		err := store.Put(ctx, &StoredTemplate{Name: "", Source: "test"})
		require.Error(t, err)
	})

	t.Run("SpecialCharactersInName", func(t *testing.T) {
		names := []string{
			"template-with-dashes",
			"template_with_underscores",
			"template.with.dots",
			"template/with/slashes",
			"template:with:colons",
		}

		for _, name := range names {
			err := store.Put(ctx, &StoredTemplate{Name: name, Source: "test"})
			require.NoError(t, err, "failed to put template with name: %s", name)

			retrieved, err := store.Get(ctx, name)
			require.NoError(t, err, "failed to get template with name: %s", name)
			assert.Equal(t, name, retrieved.Name)
		}
	})

	t.Run("UnicodeContent", func(t *testing.T) {
		tmpl := &StoredTemplate{
			Name:   "unicode-test",
			Source: "Hello 世界! Привет мир! {{ greeting }} 🎉",
			Metadata: map[string]string{
				"greeting": "こんにちは",
			},
			Tags: []string{"日本語", "русский"},
		}
		err := store.Put(ctx, tmpl)
		require.NoError(t, err)

		retrieved, err := store.Get(ctx, "unicode-test")
		require.NoError(t, err)
		assert.Contains(t, retrieved.Source, "世界")
		assert.Equal(t, "こんにちは", retrieved.Metadata["greeting"])
		assert.Contains(t, retrieved.Tags, "日本語")
	})

	t.Run("LargeSource", func(t *testing.T) {
		large := ""
		for i := 0; i < 10000; i++ {
			large += fmt.Sprintf("line {{ var%d }}\n", i)
		}

		err := store.Put(ctx, &StoredTemplate{Name: "large-source", Source: large})
		require.NoError(t, err)

		retrieved, err := store.Get(ctx, "large-source")
		require.NoError(t, err)
		assert.Equal(t, len(large), len(retrieved.Source))
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Get(cancelCtx, "any-template")
		require.Error(t, err)
	})
}

func TestPostgres_E2E_OperationsAfterClose(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	err = store.Put(ctx, &StoredTemplate{Name: "test", Source: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestPostgres_E2E_EngineIntegration(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	source := "{% try %}Hi {{ user }}{% catch %}Hi there{% endtry %}"
	require.NoError(t, store.Put(ctx, &StoredTemplate{Name: "greeting", Source: source}))

	engine := MustNew()
	require.NoError(t, engine.LoadFrom(ctx, store))

	result, err := engine.Render(ctx, `{% include "greeting" %}`, map[string]any{"user": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Alice", result)

	result, err = engine.Render(ctx, `{% include "greeting" %}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", result)
}
