package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-temply"
)

// createTempTemplate writes template source to a temp file.
func createTempTemplate(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.txt")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// seedFilesystemStore puts one template into a filesystem store root.
func seedFilesystemStore(t *testing.T, root, name, source string) {
	t.Helper()
	store, err := temply.NewFilesystemStore(root)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Put(context.Background(), &temply.StoredTemplate{
		Name:   name,
		Source: source,
	}))
}

// createTempDataFile writes YAML data to a temp file.
func createTempDataFile(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.yaml")
	raw, err := yaml.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestRun_Dispatch(t *testing.T) {
	t.Run("no args shows help", func(t *testing.T) {
		var stdout bytes.Buffer
		code := run(nil, nil, &stdout, &bytes.Buffer{})
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout.String(), "Usage:")
	})

	t.Run("unknown command shows help with usage error", func(t *testing.T) {
		var stdout bytes.Buffer
		code := run([]string{"bogus"}, nil, &stdout, &bytes.Buffer{})
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout.String(), ErrMsgUnknownCommand)
	})
}

func TestRender_Basic(t *testing.T) {
	t.Run("template file with inline data", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "Hello {{ name }}!")

		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-t", tmpFile,
			"-d", "name: Alice",
		}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code, "stderr: %s", stderr.String())
		assert.Equal(t, "Hello Alice!", stdout.String())
	})

	t.Run("template from stdin", func(t *testing.T) {
		stdin := strings.NewReader("From {{ source }}")

		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-t", "-",
			"-d", "source: stdin",
		}, stdin, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "From stdin", stdout.String())
	})

	t.Run("data file", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{{ user.name }} is {{ user.role }}")
		dataFile := createTempDataFile(t, map[string]any{
			"user": map[string]any{"name": "Bob", "role": "admin"},
		})

		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-t", tmpFile,
			"-f", dataFile,
		}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "Bob is admin", stdout.String())
	})

	t.Run("output to file", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "written {{ where }}")
		outFile := filepath.Join(t.TempDir(), "out.txt")

		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-t", tmpFile,
			"-d", "where: to disk",
			"-o", outFile,
		}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Empty(t, stdout.String())

		content, err := os.ReadFile(outFile)
		require.NoError(t, err)
		assert.Equal(t, "written to disk", string(content))
	})

	t.Run("try catch in template", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% try %}{{ missing }}{% catch %}fallback: {{ exception }}{% endtry %}")

		var stdout, stderr bytes.Buffer
		code := runRender([]string{"-t", tmpFile}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "fallback: 'missing' is undefined", stdout.String())
	})
}

func TestRender_Modes(t *testing.T) {
	t.Run("value mode outputs YAML", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{{ items }}")
		dataFile := createTempDataFile(t, map[string]any{"items": []any{1, 2, 3}})

		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-t", tmpFile,
			"-f", dataFile,
			"-value",
		}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code)

		var decoded []int
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, []int{1, 2, 3}, decoded)
	})

	t.Run("async mode matches blocking output", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% try %}{{ n }}{% catch %}none{% endtry %}")

		var blocking, async bytes.Buffer
		code := runRender([]string{"-t", tmpFile, "-d", "n: 7"}, nil, &blocking, &bytes.Buffer{})
		require.Equal(t, ExitCodeSuccess, code)

		code = runRender([]string{"-t", tmpFile, "-d", "n: 7", "-async"}, nil, &async, &bytes.Buffer{})
		require.Equal(t, ExitCodeSuccess, code)

		assert.Equal(t, blocking.String(), async.String())
	})
}

func TestRender_StoreSource(t *testing.T) {
	root := t.TempDir()
	seedFilesystemStore(t, root, "welcome", "Welcome, {{ name }}!")

	t.Run("renders named template from store", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := runRender([]string{
			"-store", "filesystem:" + root,
			"-n", "welcome",
			"-d", "name: Eve",
		}, nil, &stdout, &stderr)

		assert.Equal(t, ExitCodeSuccess, code, "stderr: %s", stderr.String())
		assert.Equal(t, "Welcome, Eve!", stdout.String())
	})

	t.Run("store without name is a usage error", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runRender([]string{
			"-store", "filesystem:" + root,
		}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr.String(), ErrMsgMissingStoreName)
	})

	t.Run("unknown template name", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runRender([]string{
			"-store", "filesystem:" + root,
			"-n", "nope",
		}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr.String(), ErrMsgStoreLoadFailed)
	})

	t.Run("unknown driver", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runRender([]string{
			"-store", "carrierpigeon:somewhere",
			"-n", "welcome",
		}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr.String(), ErrMsgStoreOpenFailed)
	})
}

func TestRender_Errors(t *testing.T) {
	t.Run("missing template flag", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runRender(nil, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr.String(), ErrMsgMissingTemplate)
	})

	t.Run("nonexistent template file", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runRender([]string{"-t", "/does/not/exist.txt"}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr.String(), ErrMsgReadFileFailed)
	})

	t.Run("invalid inline data", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "x")

		var stderr bytes.Buffer
		code := runRender([]string{
			"-t", tmpFile,
			"-d", "not: [valid: yaml",
		}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr.String(), ErrMsgInvalidData)
	})

	t.Run("syntax error in template", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% try %}never closed")

		var stderr bytes.Buffer
		code := runRender([]string{"-t", tmpFile}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stderr.String(), ErrMsgParseTemplateFailed)
	})

	t.Run("undefined variable fails render", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{{ who }}")

		var stderr bytes.Buffer
		code := runRender([]string{"-t", tmpFile}, nil, &bytes.Buffer{}, &stderr)

		assert.Equal(t, ExitCodeError, code)
		assert.Contains(t, stderr.String(), ErrMsgRenderFailed)
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid template text output", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% try %}{{ a }}{% catch %}b{% endtry %}")

		var stdout bytes.Buffer
		code := runValidate([]string{"-t", tmpFile}, nil, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout.String(), ValidationTextSuccess)
	})

	t.Run("invalid template text output", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% catch %}stray")

		var stdout bytes.Buffer
		code := runValidate([]string{"-t", tmpFile}, nil, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stdout.String(), ValidationTextFailure)
	})

	t.Run("valid template json output", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "plain")

		var stdout bytes.Buffer
		code := runValidate([]string{"-t", tmpFile, "-F", "json"}, nil, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeSuccess, code)

		var output validationOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &output))
		assert.True(t, output.Valid)
		assert.Empty(t, output.Error)
	})

	t.Run("invalid template json output", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "{% endtry %}")

		var stdout bytes.Buffer
		code := runValidate([]string{"-t", tmpFile, "-F", "json"}, nil, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeValidationError, code)

		var output validationOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &output))
		assert.False(t, output.Valid)
		assert.NotEmpty(t, output.Error)
	})

	t.Run("template from stdin", func(t *testing.T) {
		stdin := strings.NewReader("{{ ok }}")

		var stdout bytes.Buffer
		code := runValidate([]string{"-t", "-"}, stdin, &stdout, &bytes.Buffer{})
		assert.Equal(t, ExitCodeSuccess, code)
	})

	t.Run("missing template flag", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runValidate(nil, nil, &bytes.Buffer{}, &stderr)
		assert.Equal(t, ExitCodeUsageError, code)
	})

	t.Run("invalid format", func(t *testing.T) {
		tmpFile := createTempTemplate(t, "x")

		var stderr bytes.Buffer
		code := runValidate([]string{"-t", tmpFile, "-F", "xml"}, nil, &bytes.Buffer{}, &stderr)
		assert.Equal(t, ExitCodeUsageError, code)
	})
}

func TestVersion(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		var stdout bytes.Buffer
		code := runVersion(nil, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout.String(), "temply version")
	})

	t.Run("json output", func(t *testing.T) {
		var stdout bytes.Buffer
		code := runVersion([]string{"-F", "json"}, &stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeSuccess, code)

		var output versionOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &output))
		assert.NotEmpty(t, output.Version)
		assert.Contains(t, output.GoVersion, "go")
	})

	t.Run("invalid format", func(t *testing.T) {
		var stderr bytes.Buffer
		code := runVersion([]string{"-F", "toml"}, &bytes.Buffer{}, &stderr)
		assert.Equal(t, ExitCodeUsageError, code)
	})
}

func TestHelp(t *testing.T) {
	commands := []string{CmdNameRender, CmdNameValidate, CmdNameVersion, CmdNameHelp}

	for _, cmd := range commands {
		t.Run(cmd, func(t *testing.T) {
			var stdout bytes.Buffer
			code := runHelp([]string{cmd}, &stdout)
			assert.Equal(t, ExitCodeSuccess, code)
			assert.Contains(t, stdout.String(), "Usage:")
		})
	}

	t.Run("unknown command", func(t *testing.T) {
		var stdout bytes.Buffer
		code := runHelp([]string{"whatever"}, &stdout)
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout.String(), ErrMsgUnknownCommand)
	})
}
