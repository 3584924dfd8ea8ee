// Package temply provides a template engine with statement blocks, expression
// outputs, and an extensible tag system including structured error handling
// via try/catch blocks.
//
// Temply uses Jinja-style delimiters: {{ and }} for expression outputs, and
// {% and %} for statements:
//
//	Hello, {{ user }}!
//	{% if premium %}Welcome back.{% endif %}
//
// # Basic Usage
//
// Create an engine and render templates:
//
//	engine := temply.MustNew()
//	result, err := engine.Render(ctx, "Hello, {{ user }}!", map[string]any{
//	    "user": "Alice",
//	})
//	// result: "Hello, Alice!"
//
// # Template Syntax
//
// Expression outputs evaluate an expression and write its stringified value:
//
//	{{ user.name }}
//	{{ length(items) }}
//
// Statements drive control flow:
//
//	{% if count > 0 %}...{% elif count == 0 %}...{% else %}...{% endif %}
//	{% for item in items %}{{ item }}{% endfor %}
//	{% set greeting = "hello" %}
//	{% include "footer" %}
//
// # Error Handling in Templates
//
// The built-in try/catch block catches any failure inside its body and
// renders the catch branch instead, binding the failure as "exception":
//
//	{% try %}
//	  {{ risky_value }}
//	{% catch %}
//	  fallback: {{ exception }}
//	{% endtry %}
//
// Without a catch branch, a failing try body renders as empty output.
//
// # Custom Tags
//
// Extend the statement syntax by implementing the Tag interface and
// registering it on the engine:
//
//	engine.MustRegisterTag(&MyTag{})
//
// See the Tag type for the parse-time contract and the BlockFunc type for
// render-time dispatch.
//
// # Undefined Variables
//
// Lookups of undefined names raise an error rather than rendering empty
// output. Use the defined() builtin to probe without raising:
//
//	{% if defined("user") %}{{ user }}{% endif %}
//
// # Configuration
//
// Customize the engine with functional options:
//
//	engine, err := temply.New(
//	    temply.WithMaxDepth(50),
//	    temply.WithParseCacheSize(512),
//	    temply.WithLogger(logger),
//	)
package temply

// Version is the current release of the temply module.
const Version = "0.3.1"
