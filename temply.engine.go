package temply

import (
	"context"
	"sort"
	"sync"

	"github.com/itsatony/go-temply/internal"
	"go.uber.org/zap"
)

// Engine is the main entry point for the temply templating system.
// It manages parsing, rendering, tag and function registration, and
// the named-template registry that feeds {% include %}.
type Engine struct {
	tags      *internal.TagRegistry
	funcs     *internal.FuncRegistry
	executor  *internal.Executor
	templates map[string]*Template
	tmplMu    sync.RWMutex
	cache     *ParseCache
	config    *engineConfig
	logger    *zap.Logger
}

// New creates a new temply Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tags := internal.NewTagRegistry(logger)
	tags.MustRegister(internal.NewTryCatchTag(logger))

	funcs := internal.NewFuncRegistry()
	internal.RegisterBuiltinFuncs(funcs)

	executorConfig := internal.ExecutorConfig{
		MaxDepth: config.maxDepth,
	}
	executor := internal.NewExecutor(funcs, nil, executorConfig, logger)

	engine := &Engine{
		tags:      tags,
		funcs:     funcs,
		executor:  executor,
		templates: make(map[string]*Template),
		config:    config,
		logger:    logger,
	}
	executor.SetIncludeResolver(&includeAdapter{engine: engine})

	if config.parseCacheSize > 0 {
		engine.cache = NewParseCache(config.parseCacheSize)
	}

	for _, tag := range config.tags {
		if err := engine.RegisterTag(tag); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Parse parses a template source string and returns a Template.
// The returned Template can be rendered multiple times with different
// data. Parsed templates are cached by source.
func (e *Engine) Parse(source string) (*Template, error) {
	if e.cache != nil {
		if tmpl, ok := e.cache.Get(source); ok {
			return tmpl, nil
		}
	}

	lexer := internal.NewLexer(source, e.logger)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, NewParseError(ErrMsgParseFailed, Position{}, err)
	}

	parser := internal.NewParser(tokens, e.tags, e.logger)
	ast, err := parser.Parse()
	if err != nil {
		return nil, NewParseError(ErrMsgParseFailed, Position{}, err)
	}

	tmpl := newTemplate(source, ast, e)

	if e.cache != nil {
		e.cache.Put(source, tmpl)
	}
	return tmpl, nil
}

// Render is a convenience method that parses and renders in one step.
// For templates rendered repeatedly, use Parse once instead.
func (e *Engine) Render(ctx context.Context, source string, data map[string]any) (string, error) {
	tmpl, err := e.Parse(source)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, data)
}

// RegisterTag adds a custom statement tag to the engine.
// Returns an error when its keywords collide with builtin statements
// or previously registered tags.
func (e *Engine) RegisterTag(tag Tag) error {
	if err := e.tags.Register(&tagAdapter{tag: tag}); err != nil {
		return NewTagRegistrationError(tag.Keyword(), err)
	}
	return nil
}

// MustRegisterTag adds a custom tag and panics if registration fails.
func (e *Engine) MustRegisterTag(tag Tag) {
	if err := e.RegisterTag(tag); err != nil {
		panic(err)
	}
}

// RegisterFunc adds an expression function callable from templates.
func (e *Engine) RegisterFunc(name string, minArgs, maxArgs int, fn func(args []any) (any, error)) error {
	err := e.funcs.Register(&internal.Func{
		Name:    name,
		MinArgs: minArgs,
		MaxArgs: maxArgs,
		Fn:      fn,
	})
	if err != nil {
		return NewTagRegistrationError(name, err)
	}
	return nil
}

// RegisterTemplate registers a named template for {% include %}.
// Names cannot be empty; duplicates are an error.
func (e *Engine) RegisterTemplate(name string, source string) error {
	if name == "" {
		return NewEmptyTemplateNameError()
	}

	tmpl, err := e.Parse(source)
	if err != nil {
		return err
	}

	e.tmplMu.Lock()
	defer e.tmplMu.Unlock()

	if _, exists := e.templates[name]; exists {
		return NewTemplateExistsError(name)
	}

	e.templates[name] = tmpl
	return nil
}

// MustRegisterTemplate registers a template and panics on error.
func (e *Engine) MustRegisterTemplate(name string, source string) {
	if err := e.RegisterTemplate(name, source); err != nil {
		panic(err)
	}
}

// UnregisterTemplate removes a registered template by name.
// Returns true if the template existed and was removed.
func (e *Engine) UnregisterTemplate(name string) bool {
	e.tmplMu.Lock()
	defer e.tmplMu.Unlock()

	if _, exists := e.templates[name]; exists {
		delete(e.templates, name)
		return true
	}
	return false
}

// GetTemplate retrieves a registered template by name.
func (e *Engine) GetTemplate(name string) (*Template, bool) {
	e.tmplMu.RLock()
	defer e.tmplMu.RUnlock()

	tmpl, ok := e.templates[name]
	return tmpl, ok
}

// HasTemplate checks if a template is registered with the given name.
func (e *Engine) HasTemplate(name string) bool {
	_, ok := e.GetTemplate(name)
	return ok
}

// ListTemplates returns all registered template names in sorted order.
func (e *Engine) ListTemplates() []string {
	e.tmplMu.RLock()
	defer e.tmplMu.RUnlock()

	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateCount returns the number of registered templates.
func (e *Engine) TemplateCount() int {
	e.tmplMu.RLock()
	defer e.tmplMu.RUnlock()

	return len(e.templates)
}

// LoadFrom registers the latest version of every template in the
// store. Existing registrations with the same name are an error.
func (e *Engine) LoadFrom(ctx context.Context, store TemplateStore) error {
	stored, err := store.List(ctx, nil)
	if err != nil {
		return NewStorageOpError(ErrMsgStorageListFailed, err)
	}

	for _, record := range stored {
		if err := e.RegisterTemplate(record.Name, record.Source); err != nil {
			return err
		}
	}
	return nil
}

// includeAdapter exposes the named-template registry to the executor
type includeAdapter struct {
	engine *Engine
}

func (a *includeAdapter) ResolveInclude(name string) (*internal.RootNode, error) {
	tmpl, ok := a.engine.GetTemplate(name)
	if !ok {
		return nil, NewTemplateNotFoundError(name)
	}
	return tmpl.ast, nil
}
