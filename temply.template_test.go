package temply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRender(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	tmpl, err := engine.Parse("{{ greeting }}, {{ user.name }}!")
	require.NoError(t, err)

	t.Run("renders with data", func(t *testing.T) {
		result, err := tmpl.Render(ctx, map[string]any{
			"greeting": "Hello",
			"user":     map[string]any{"name": "Ada"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello, Ada!", result)
	})

	t.Run("reusable with different data", func(t *testing.T) {
		result, err := tmpl.Render(ctx, map[string]any{
			"greeting": "Hi",
			"user":     map[string]any{"name": "Grace"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi, Grace!", result)
	})

	t.Run("missing data fails", func(t *testing.T) {
		_, err := tmpl.Render(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgRenderFailed)
	})
}

func TestTemplateRenderWithContext(t *testing.T) {
	engine := MustNew()
	tmpl, err := engine.Parse("{{ outer }} {{ inner }}")
	require.NoError(t, err)

	parent := NewContext(map[string]any{"outer": "p"})
	child := parent.Child()
	child.Set("inner", "c")

	result, err := tmpl.RenderWithContext(context.Background(), child)
	require.NoError(t, err)
	assert.Equal(t, "p c", result)
}

func TestTemplateRenderValue(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	t.Run("single expression keeps type", func(t *testing.T) {
		tmpl, err := engine.Parse("{{ items }}")
		require.NoError(t, err)

		val, err := tmpl.RenderValue(ctx, map[string]any{"items": []any{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2, 3}, val)
	})

	t.Run("mixed content degrades to text", func(t *testing.T) {
		tmpl, err := engine.Parse("n={{ n }}")
		require.NoError(t, err)

		val, err := tmpl.RenderValue(ctx, map[string]any{"n": 7})
		require.NoError(t, err)
		assert.Equal(t, "n=7", val)
	})

	t.Run("try catch preserves fallback value", func(t *testing.T) {
		tmpl, err := engine.Parse("{% try %}{{ missing }}{% catch %}{{ fallback }}{% endtry %}")
		require.NoError(t, err)

		val, err := tmpl.RenderValue(ctx, map[string]any{"fallback": 404})
		require.NoError(t, err)
		assert.Equal(t, 404, val)
	})
}

func TestTemplateRenderAsync(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	t.Run("matches blocking render", func(t *testing.T) {
		tmpl, err := engine.Parse("{% try %}{{ missing }}{% catch %}caught{% endtry %} done")
		require.NoError(t, err)

		blocking, err := tmpl.Render(ctx, nil)
		require.NoError(t, err)

		result, err := tmpl.RenderAsync(ctx, nil).Wait()
		require.NoError(t, err)
		assert.Equal(t, blocking, result)
	})

	t.Run("wait is idempotent", func(t *testing.T) {
		tmpl, err := engine.Parse("{{ v }}")
		require.NoError(t, err)

		future := tmpl.RenderAsync(ctx, map[string]any{"v": "once"})
		first, err := future.Wait()
		require.NoError(t, err)
		second, err := future.Wait()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("pending data resolved", func(t *testing.T) {
		tmpl, err := engine.Parse("value: {{ slow }}")
		require.NoError(t, err)

		data := map[string]any{
			"slow": NewThunk(func() (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "arrived", nil
			}),
		}

		result, err := tmpl.RenderAsync(ctx, data).Wait()
		require.NoError(t, err)
		assert.Equal(t, "value: arrived", result)
	})

	t.Run("render error surfaces from wait", func(t *testing.T) {
		tmpl, err := engine.Parse("{{ missing }}")
		require.NoError(t, err)

		_, err = tmpl.RenderAsync(ctx, nil).Wait()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'missing' is undefined")
	})
}

func TestTemplateRenderValueAsync(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	tmpl, err := engine.Parse("{{ n }}")
	require.NoError(t, err)

	val, err := tmpl.RenderValueAsync(ctx, map[string]any{"n": 99}).Wait()
	require.NoError(t, err)
	assert.Equal(t, 99, val)
}
