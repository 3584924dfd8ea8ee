package temply

import (
	"context"

	"github.com/itsatony/go-temply/internal"
)

// Template represents a parsed template that can be rendered multiple
// times. Renders come in two modes: text mode always yields a string,
// value mode preserves the type of a single-expression result. Each
// mode has a blocking call and a suspend-capable future variant.
type Template struct {
	source string
	ast    *internal.RootNode
	engine *Engine
}

// newTemplate creates a new template (internal use)
func newTemplate(source string, ast *internal.RootNode, engine *Engine) *Template {
	return &Template{
		source: source,
		ast:    ast,
		engine: engine,
	}
}

// Source returns the original template source string.
func (t *Template) Source() string {
	return t.source
}

// Render renders the template to text with the given data.
func (t *Template) Render(ctx context.Context, data map[string]any) (string, error) {
	return t.RenderWithContext(ctx, NewContext(data))
}

// RenderWithContext renders to text with an explicit context, for
// callers that need scoped variable stores.
func (t *Template) RenderWithContext(ctx context.Context, execCtx *Context) (string, error) {
	out, err := t.engine.executor.ExecuteText(ctx, t.ast, execCtx.frame())
	if err != nil {
		return "", NewRenderError(err)
	}
	return out, nil
}

// RenderValue renders in value-preserving mode: a template whose body
// produces exactly one value returns that value unchanged, so
// non-string results survive the render.
func (t *Template) RenderValue(ctx context.Context, data map[string]any) (any, error) {
	return t.RenderValueWithContext(ctx, NewContext(data))
}

// RenderValueWithContext is RenderValue with an explicit context.
func (t *Template) RenderValueWithContext(ctx context.Context, execCtx *Context) (any, error) {
	out, err := t.engine.executor.ExecuteValue(ctx, t.ast, execCtx.frame())
	if err != nil {
		return nil, NewRenderError(err)
	}
	return out, nil
}

// RenderAsync starts a suspend-capable text render and returns a
// future for the result. Block bodies run as pending values settled
// at their suspension points.
func (t *Template) RenderAsync(ctx context.Context, data map[string]any) *RenderFuture {
	frame := NewContext(data).frame()
	thunk := internal.NewThunk(func() (any, error) {
		out, err := t.engine.executor.ExecuteTextAsync(ctx, t.ast, frame)
		return out, err
	})
	return &RenderFuture{thunk: thunk, ctx: ctx}
}

// RenderValueAsync starts a suspend-capable value-preserving render.
func (t *Template) RenderValueAsync(ctx context.Context, data map[string]any) *ValueFuture {
	frame := NewContext(data).frame()
	thunk := internal.NewThunk(func() (any, error) {
		return t.engine.executor.ExecuteValueAsync(ctx, t.ast, frame)
	})
	return &ValueFuture{thunk: thunk, ctx: ctx}
}

// RenderFuture is a pending text render.
type RenderFuture struct {
	thunk *internal.Thunk
	ctx   context.Context
}

// Wait blocks until the render settles and returns its result.
// Wait may be called multiple times; the render runs once.
func (f *RenderFuture) Wait() (string, error) {
	val, err := f.thunk.Await(f.ctx)
	if err != nil {
		return "", NewRenderError(err)
	}
	out, ok := val.(string)
	if !ok {
		return Stringify(val), nil
	}
	return out, nil
}

// ValueFuture is a pending value-preserving render.
type ValueFuture struct {
	thunk *internal.Thunk
	ctx   context.Context
}

// Wait blocks until the render settles and returns its result.
func (f *ValueFuture) Wait() (any, error) {
	val, err := f.thunk.Await(f.ctx)
	if err != nil {
		return nil, NewRenderError(err)
	}
	return val, nil
}
