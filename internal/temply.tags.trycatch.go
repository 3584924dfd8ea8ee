package internal

import (
	"context"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Try tag keyword constants
const (
	TagNameTry    = "try"
	KeywordCatch  = "catch"
	KeywordEndTry = "endtry"

	// CatchHandlerName is the frame binding for the catch handler.
	// It lives inside the scope the tag introduces and is gone after
	// endtry.
	CatchHandlerName = "_on_catch"

	// CatchParamException is the name the failure value is bound to
	// inside the catch body
	CatchParamException = "exception"
)

// TryCatchTag implements the try/catch/endtry statement. The guarded
// body renders normally on success; on failure the catch body renders
// with the failure bound to "exception", or the whole block collapses
// to an empty string when no catch is present. Failures inside the
// catch body itself propagate.
type TryCatchTag struct {
	logger *zap.Logger
}

// NewTryCatchTag creates the try/catch tag parselet
func NewTryCatchTag(logger *zap.Logger) *TryCatchTag {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TryCatchTag{logger: logger}
}

// Keyword returns the opening statement keyword
func (t *TryCatchTag) Keyword() string {
	return TagNameTry
}

// InnerKeywords returns the keywords reserved for branch and close
func (t *TryCatchTag) InnerKeywords() []string {
	return []string{KeywordCatch, KeywordEndTry}
}

// Parse builds the node for a try block. The catch body, when present,
// is lowered to a macro bound under CatchHandlerName and referenced as
// the call block's only argument. Everything sits inside a scope node
// so the binding cannot leak past endtry.
func (t *TryCatchTag) Parse(p *Parser, tok Token) (Node, error) {
	if tok.Value != StringValueEmpty {
		return nil, p.newUnexpectedArgsError(TagNameTry, tok.Position)
	}

	tryBody, err := p.ParseStatementsOrEmpty(KeywordEndTry, KeywordCatch)
	if err != nil {
		return nil, err
	}

	var children []Node
	var args []string

	if catchTok, ok := p.SkipIf(KeywordCatch); ok {
		if catchTok.Value != StringValueEmpty {
			return nil, p.newUnexpectedArgsError(KeywordCatch, catchTok.Position)
		}

		catchBody, err := p.ParseStatementsOrEmpty(KeywordEndTry)
		if err != nil {
			return nil, err
		}

		children = append(children, NewMacroNode(CatchHandlerName, []string{CatchParamException}, catchBody, catchTok.Position))
		args = []string{CatchHandlerName}
	}

	if _, err := p.Expect(KeywordEndTry); err != nil {
		return nil, err
	}

	call := NewCallBlockNode(TagNameTry, args, tryBody, t.dispatchSync, t.dispatchAsync, tok.Position)
	children = append(children, call)

	return NewScopeNode(children, tok.Position), nil
}

// dispatchSync guards a blocking body. A successful result passes
// through unchanged so value-preserving renders keep their type.
func (t *TryCatchTag) dispatchSync(ctx context.Context, args []any, caller BlockCaller) (any, error) {
	result, bodyErr := runGuarded(ctx, caller)
	if bodyErr == nil {
		return result, nil
	}

	t.logger.Debug(LogMsgBodyCaught, zap.String(LogFieldError, bodyErr.Error()))

	handler, ok := catchHandler(args)
	if !ok {
		return StringValueEmpty, nil
	}

	t.logger.Debug(LogMsgHandlerInvoked)
	return handler.Call(ctx, []any{bodyErr})
}

// dispatchAsync guards a suspend-capable body. The body value is
// settled before the block is considered successful, so a failure
// surfacing through a pending value is caught the same way a direct
// one is. The handler result is settled too, but its failures
// propagate.
func (t *TryCatchTag) dispatchAsync(ctx context.Context, args []any, caller BlockCaller) (any, error) {
	result, bodyErr := runGuarded(ctx, caller)
	if bodyErr == nil {
		resolved, err := ResolvePending(ctx, result)
		if err == nil {
			return resolved, nil
		}
		bodyErr = err
	}

	t.logger.Debug(LogMsgBodyCaught, zap.String(LogFieldError, bodyErr.Error()))

	handler, ok := catchHandler(args)
	if !ok {
		return StringValueEmpty, nil
	}

	t.logger.Debug(LogMsgHandlerInvoked)
	out, err := handler.Call(ctx, []any{bodyErr})
	if err != nil {
		return nil, err
	}
	return ResolvePending(ctx, out)
}

// catchHandler extracts the bound catch handler from the evaluated
// call block arguments
func catchHandler(args []any) (Callable, bool) {
	if len(args) == 0 {
		return nil, false
	}
	handler, ok := args[0].(Callable)
	return handler, ok
}

// runGuarded invokes the caller under a panic catcher so that both
// returned errors and panics surface as a single body error
func runGuarded(ctx context.Context, caller BlockCaller) (val any, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		val, err = caller(ctx)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return nil, recovered.AsError()
	}
	return val, err
}
