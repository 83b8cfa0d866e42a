package ports

import "context"

// Logger is the leveled, structured logging surface the core depends on.
// Errorf takes the error separately so adapters can attach structured
// error attributes (code, wrapped cause) instead of flattening into the
// message.
type Logger interface {
	Debugf(ctx context.Context, format string, args ...any)
	Infof(ctx context.Context, format string, args ...any)
	Warnf(ctx context.Context, format string, args ...any)
	Errorf(ctx context.Context, err error, format string, args ...any)

	// WithFields returns a derived logger with the fields attached to
	// every record it emits.
	WithFields(fields map[string]any) Logger
}
