package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// AssertionError is the panic value of a failed assertion while abort on
// failure is set. The runner recovers it and fails the run.
type AssertionError struct {
	Test    string
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("capture: %s: assertion failed: %s", e.Test, e.Message)
}

// AsAssertion reports whether a recovered panic value is an assertion
// failure.
func AsAssertion(v any) (*AssertionError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Assert fails the test when cond is false. The message is logged as
// "TEST ASSERT FAILED: <msg>"; with abort on failure set, Assert then
// panics with an *AssertionError and does not return.
func (c *Context) Assert(cond bool, msg string) {
	if cond {
		return
	}
	c.failed = true
	c.logger.Error("TEST ASSERT FAILED: " + msg)
	if c.abortOnFailure {
		panic(&AssertionError{Test: c.name, Message: msg})
	}
}

// Assertf is Assert with a formatted message. The message is only
// formatted when the assertion fails.
func (c *Context) Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	c.Assert(false, fmt.Sprintf(format, args...))
}

// NoError asserts that err is nil.
func (c *Context) NoError(err error, msg string) {
	if err == nil {
		return
	}
	c.Assert(false, msg+": "+err.Error())
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
