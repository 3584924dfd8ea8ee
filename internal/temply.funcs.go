package internal

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Builtin function name constants
const (
	FuncNameLength   = "length"
	FuncNameUpper    = "upper"
	FuncNameLower    = "lower"
	FuncNameTrim     = "trim"
	FuncNameJoin     = "join"
	FuncNameContains = "contains"
	FuncNameDefault  = "default"
	FuncNameString   = "string"
)

// Func represents a callable function in expressions
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      func(args []any) (any, error)
}

// FuncRegistry manages registered functions
type FuncRegistry struct {
	funcs map[string]*Func
	mu    sync.RWMutex
}

// NewFuncRegistry creates a new function registry
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{
		funcs: make(map[string]*Func),
	}
}

// Register adds a function to the registry
func (r *FuncRegistry) Register(f *Func) error {
	if f == nil {
		return NewFuncRegistryError(ErrMsgFuncNilFunc, StringValueEmpty)
	}
	if f.Name == StringValueEmpty {
		return NewFuncRegistryError(ErrMsgFuncEmptyName, StringValueEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[f.Name]; exists {
		return NewFuncRegistryError(ErrMsgFuncAlreadyExists, f.Name)
	}

	r.funcs[f.Name] = f
	return nil
}

// MustRegister adds a function and panics on error
func (r *FuncRegistry) MustRegister(f *Func) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Has checks if a function is registered
func (r *FuncRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.funcs[name]
	return ok
}

// Call invokes a function by name with the given arguments
func (r *FuncRegistry) Call(name string, args []any) (any, error) {
	r.mu.RLock()
	f, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, NewFuncError(ErrMsgFuncNotFound, name)
	}

	argCount := len(args)
	if argCount < f.MinArgs {
		return nil, NewFuncArgError(ErrMsgFuncTooFewArgs, name, f.MinArgs, argCount)
	}
	if f.MaxArgs >= 0 && argCount > f.MaxArgs {
		return nil, NewFuncArgError(ErrMsgFuncTooManyArgs, name, f.MaxArgs, argCount)
	}

	result, err := f.Fn(args)
	if err != nil {
		return nil, NewFuncExecError(name, err)
	}

	return result, nil
}

// List returns all registered function names in sorted order
func (r *FuncRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltinFuncs registers the builtin function set
func RegisterBuiltinFuncs(r *FuncRegistry) {
	// length(v) int - string, slice or map length
	r.MustRegister(&Func{
		Name:    FuncNameLength,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case string:
				return len(v), nil
			case []any:
				return len(v), nil
			case []string:
				return len(v), nil
			case map[string]any:
				return len(v), nil
			case nil:
				return 0, nil
			default:
				return nil, NewFuncError(ErrMsgFuncBadArgType, FuncNameLength)
			}
		},
	})

	// upper(s) string
	r.MustRegister(&Func{
		Name:    FuncNameUpper,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return strings.ToUpper(Stringify(args[0])), nil
		},
	})

	// lower(s) string
	r.MustRegister(&Func{
		Name:    FuncNameLower,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return strings.ToLower(Stringify(args[0])), nil
		},
	})

	// trim(s) string
	r.MustRegister(&Func{
		Name:    FuncNameTrim,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return strings.TrimSpace(Stringify(args[0])), nil
		},
	})

	// join(items, sep) string
	r.MustRegister(&Func{
		Name:    FuncNameJoin,
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			sep := StringValueEmpty
			if len(args) == 2 {
				sep = Stringify(args[1])
			}
			switch v := args[0].(type) {
			case []string:
				return strings.Join(v, sep), nil
			case []any:
				parts := make([]string, len(v))
				for i, item := range v {
					parts[i] = Stringify(item)
				}
				return strings.Join(parts, sep), nil
			default:
				return nil, NewFuncError(ErrMsgFuncBadArgType, FuncNameJoin)
			}
		},
	})

	// contains(haystack, needle) bool
	r.MustRegister(&Func{
		Name:    FuncNameContains,
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			return strings.Contains(Stringify(args[0]), Stringify(args[1])), nil
		},
	})

	// default(x, fallback) any - fallback when x is nil or empty string
	r.MustRegister(&Func{
		Name:    FuncNameDefault,
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			if args[0] == nil || args[0] == StringValueEmpty {
				return args[1], nil
			}
			return args[0], nil
		},
	})

	// string(v) string - explicit text conversion
	r.MustRegister(&Func{
		Name:    FuncNameString,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return Stringify(args[0]), nil
		},
	})
}

// FuncRegistryError represents a function registry error
type FuncRegistryError struct {
	Message  string
	FuncName string
}

// NewFuncRegistryError creates a new function registry error
func NewFuncRegistryError(message, funcName string) *FuncRegistryError {
	return &FuncRegistryError{
		Message:  message,
		FuncName: funcName,
	}
}

// Error implements the error interface
func (e *FuncRegistryError) Error() string {
	if e.FuncName != StringValueEmpty {
		return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
	}
	return e.Message
}

// FuncError represents a function-related error
type FuncError struct {
	Message  string
	FuncName string
}

// NewFuncError creates a new function error
func NewFuncError(message, funcName string) *FuncError {
	return &FuncError{
		Message:  message,
		FuncName: funcName,
	}
}

// Error implements the error interface
func (e *FuncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
}

// FuncArgError represents a function argument error
type FuncArgError struct {
	Message  string
	FuncName string
	Expected int
	Actual   int
}

// NewFuncArgError creates a new function argument error
func NewFuncArgError(message, funcName string, expected, actual int) *FuncArgError {
	return &FuncArgError{
		Message:  message,
		FuncName: funcName,
		Expected: expected,
		Actual:   actual,
	}
}

// Error implements the error interface
func (e *FuncArgError) Error() string {
	return fmt.Sprintf("%s: %s (expected %d, got %d)", e.Message, e.FuncName, e.Expected, e.Actual)
}

// FuncExecError represents a function execution error
type FuncExecError struct {
	FuncName string
	Cause    error
}

// NewFuncExecError creates a new function execution error
func NewFuncExecError(funcName string, cause error) *FuncExecError {
	return &FuncExecError{
		FuncName: funcName,
		Cause:    cause,
	}
}

// Error implements the error interface
func (e *FuncExecError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMsgFuncExecFailed, e.FuncName, e.Cause)
}

// Unwrap returns the underlying cause error
func (e *FuncExecError) Unwrap() error {
	return e.Cause
}

// Function error message constants
const (
	ErrMsgFuncNilFunc       = "nil function"
	ErrMsgFuncEmptyName     = "function name cannot be empty"
	ErrMsgFuncAlreadyExists = "function already registered"
	ErrMsgFuncNotFound      = "unknown function"
	ErrMsgFuncTooFewArgs    = "too few arguments"
	ErrMsgFuncTooManyArgs   = "too many arguments"
	ErrMsgFuncBadArgType    = "unsupported argument type"
	ErrMsgFuncExecFailed    = "function execution failed"
)
