package platform

import (
	"context"
	"fmt"
)

// ProgressFunc receives human-readable status lines while a request runs.
type ProgressFunc func(msg string)

type progressKey struct{}

// WithProgress attaches fn to ctx; the CLI passes its spinner here.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress formats a status line and hands it to the callback in ctx.
// A context without a callback (MCP and API mode) makes it a no-op.
func ReportProgress(ctx context.Context, format string, args ...any) {
	fn, _ := ctx.Value(progressKey{}).(ProgressFunc)
	if fn == nil {
		return
	}
	fn(fmt.Sprintf(format, args...))
}
