package pass

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

var discard = log.New(io.Discard)

// WithLogger returns a context carrying logger for passes and the driver.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	return log.WithContext(ctx, logger)
}

// Logger returns the logger carried by ctx, or a logger that drops
// everything when there is none.
func Logger(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(log.ContextKey).(*log.Logger); ok && l != nil {
		return l
	}
	return discard
}
