package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderBoth runs a template through the blocking and suspend-capable
// text renderers and requires identical results. Try/catch semantics
// must not depend on the dispatch mode.
func renderBoth(t *testing.T, source string, data map[string]any) (string, error) {
	t.Helper()

	blocking, blockingErr := renderText(t, source, data)
	async, asyncErr := renderTextAsync(t, source, data)

	if blockingErr != nil {
		require.Error(t, asyncErr)
		return blocking, blockingErr
	}
	require.NoError(t, asyncErr)
	require.Equal(t, blocking, async)
	return blocking, nil
}

func TestTryCatch_SuccessPassesThrough(t *testing.T) {
	result, err := renderBoth(t, "{% try %}hello {{ name }}{% endtry %}", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "hello Alice", result)
}

func TestTryCatch_SuccessSkipsCatch(t *testing.T) {
	result, err := renderBoth(t, "{% try %}ok{% catch %}never{% endtry %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestTryCatch_FailureWithoutCatchRendersEmpty(t *testing.T) {
	result, err := renderBoth(t, "a{% try %}{{ missing }}{% endtry %}b", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", result)
}

func TestTryCatch_EmptyBodies(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "empty try body",
			source:   "{% try %}{% endtry %}",
			expected: "",
		},
		{
			name:     "empty try body with catch",
			source:   "{% try %}{% catch %}never{% endtry %}",
			expected: "",
		},
		{
			name:     "empty catch body on failure",
			source:   "x{% try %}{{ missing }}{% catch %}{% endtry %}y",
			expected: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := renderBoth(t, tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTryCatch_FailureRendersCatchBody(t *testing.T) {
	result, err := renderBoth(t, "{% try %}{{ missing }}{% catch %}fallback{% endtry %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
}

func TestTryCatch_ExceptionBindsFailureMessage(t *testing.T) {
	source := "{% try %}{{ undefined_name }}{% catch %}{{ exception }}{% endtry %}"

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "'undefined_name' is undefined", result)
}

func TestTryCatch_PartialBodyOutputDiscarded(t *testing.T) {
	// Text produced before the failure never reaches the output.
	source := "{% try %}before {{ missing }} after{% catch %}caught{% endtry %}"

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "caught", result)
}

func TestTryCatch_HandlerNameScopedToBlock(t *testing.T) {
	// The internal handler binding lives inside the block's scope and
	// is not observable after endtry.
	source := `{% try %}x{% catch %}y{% endtry %}{{ defined("_on_catch") }}`

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "xfalse", result)
}

func TestTryCatch_PanicInBodyCaught(t *testing.T) {
	funcs := NewFuncRegistry()
	RegisterBuiltinFuncs(funcs)
	funcs.MustRegister(&Func{
		Name:    "explode",
		MaxArgs: -1,
		Fn: func(args []any) (any, error) {
			panic("kaboom")
		},
	})

	exec := NewExecutor(funcs, nil, DefaultExecutorConfig(), nil)
	root := parseSource(t, "{% try %}{{ explode() }}{% catch %}caught: {{ exception }}{% endtry %}")

	for _, mode := range []string{"blocking", "suspend"} {
		t.Run(mode, func(t *testing.T) {
			var result string
			var err error
			if mode == "blocking" {
				result, err = exec.ExecuteText(context.Background(), root, NewFrame(nil))
			} else {
				result, err = exec.ExecuteTextAsync(context.Background(), root, NewFrame(nil))
			}
			require.NoError(t, err)
			assert.Contains(t, result, "caught: ")
			assert.Contains(t, result, "kaboom")
		})
	}
}

func TestTryCatch_PanicWithoutCatchRendersEmpty(t *testing.T) {
	funcs := NewFuncRegistry()
	RegisterBuiltinFuncs(funcs)
	funcs.MustRegister(&Func{
		Name:    "explode",
		MaxArgs: -1,
		Fn: func(args []any) (any, error) {
			panic("kaboom")
		},
	})

	exec := NewExecutor(funcs, nil, DefaultExecutorConfig(), nil)
	root := parseSource(t, "[{% try %}{{ explode() }}{% endtry %}]")

	result, err := exec.ExecuteText(context.Background(), root, NewFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", result)
}

func TestTryCatch_FailureInCatchPropagates(t *testing.T) {
	// A failing catch body is not caught again by the same block.
	source := "{% try %}{{ missing }}{% catch %}{{ also_missing }}{% endtry %}"

	_, err := renderBoth(t, source, nil)
	require.Error(t, err)

	var undefErr *UndefinedError
	require.ErrorAs(t, err, &undefErr)
	assert.Equal(t, "also_missing", undefErr.Name)
}

func TestTryCatch_NestedInnerCatches(t *testing.T) {
	source := "{% try %}{% try %}{{ missing }}{% catch %}inner{% endtry %}{% catch %}outer{% endtry %}"

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "inner", result)
}

func TestTryCatch_NestedInnerCatchFailureCaughtByOuter(t *testing.T) {
	// The inner catch fails; the outer block catches that failure.
	source := "{% try %}{% try %}{{ missing }}{% catch %}{{ also_missing }}{% endtry %}{% catch %}outer: {{ exception }}{% endtry %}"

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "outer: 'also_missing' is undefined", result)
}

func TestTryCatch_SurroundingOutputUnaffected(t *testing.T) {
	source := "pre {% try %}{{ missing }}{% catch %}mid{% endtry %} post"

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "pre mid post", result)
}

func TestTryCatch_ConditionInsideBody(t *testing.T) {
	source := "{% try %}{% if flag %}{{ missing }}{% else %}safe{% endif %}{% catch %}caught{% endtry %}"

	result, err := renderBoth(t, source, map[string]any{"flag": false})
	require.NoError(t, err)
	assert.Equal(t, "safe", result)

	result, err = renderBoth(t, source, map[string]any{"flag": true})
	require.NoError(t, err)
	assert.Equal(t, "caught", result)
}

func TestTryCatch_LoopFailureCaught(t *testing.T) {
	source := "{% try %}{% for x in items %}{{ x.name }}{% endfor %}{% catch %}bad item{% endtry %}"
	data := map[string]any{
		"items": []any{
			map[string]any{"name": "ok"},
			map[string]any{"other": "no name key"},
		},
	}

	result, err := renderBoth(t, source, data)
	require.NoError(t, err)
	assert.Equal(t, "bad item", result)
}

func TestTryCatch_ValueModePreservesType(t *testing.T) {
	exec := NewExecutor(nil, nil, DefaultExecutorConfig(), nil)

	t.Run("success keeps native value", func(t *testing.T) {
		root := parseSource(t, "{% try %}{{ count }}{% endtry %}")
		val, err := exec.ExecuteValue(context.Background(), root, NewFrame(map[string]any{"count": 42}))
		require.NoError(t, err)
		assert.Equal(t, 42, val)
	})

	t.Run("failure without catch yields empty string", func(t *testing.T) {
		root := parseSource(t, "{% try %}{{ missing }}{% endtry %}")
		val, err := exec.ExecuteValue(context.Background(), root, NewFrame(nil))
		require.NoError(t, err)
		assert.Equal(t, "", val)
	})

	t.Run("catch result keeps native value", func(t *testing.T) {
		root := parseSource(t, "{% try %}{{ missing }}{% catch %}{{ fallback }}{% endtry %}")
		val, err := exec.ExecuteValue(context.Background(), root, NewFrame(map[string]any{"fallback": []any{1, 2}}))
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2}, val)
	})
}

func TestTryCatch_PendingBodyFailureCaught(t *testing.T) {
	// A failure that only surfaces when a pending value settles is
	// still caught, in both dispatch modes.
	boom := errors.New("deferred failure")
	data := map[string]any{
		"deferred": NewThunk(func() (any, error) { return nil, boom }),
	}

	source := "{% try %}{{ deferred }}{% catch %}caught: {{ exception }}{% endtry %}"
	result, err := renderBoth(t, source, data)
	require.NoError(t, err)
	assert.Equal(t, "caught: deferred failure", result)
}

func TestTryCatch_PendingSuccessResolved(t *testing.T) {
	data := map[string]any{
		"deferred": NewThunk(func() (any, error) { return "late value", nil }),
	}

	result, err := renderBoth(t, "{% try %}{{ deferred }}{% endtry %}", data)
	require.NoError(t, err)
	assert.Equal(t, "late value", result)
}

func TestTryCatch_ExceptionScopedToCatchBody(t *testing.T) {
	source := `{% try %}{{ missing }}{% catch %}c{% endtry %}{{ defined("exception") }}`

	result, err := renderBoth(t, source, nil)
	require.NoError(t, err)
	assert.Equal(t, "cfalse", result)
}

func TestRunGuarded(t *testing.T) {
	t.Run("value and error pass through", func(t *testing.T) {
		val, err := runGuarded(context.Background(), func(ctx context.Context) (any, error) {
			return "v", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "v", val)
	})

	t.Run("error returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := runGuarded(context.Background(), func(ctx context.Context) (any, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("panic folded into error", func(t *testing.T) {
		_, err := runGuarded(context.Background(), func(ctx context.Context) (any, error) {
			panic("oh no")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oh no")
	})
}
