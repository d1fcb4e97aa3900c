package orkestrel

import "context"

// Disposable lets a constructed value opt into container-level cleanup
// independent of any orchestrator-declared onDestroy hook. A value that
// implements Disposable is closed when its owning container is
// destroyed, even if no orchestrator entry exists for its token at all
// (e.g. it was resolved directly through Get or Resolve).
//
// Example:
//
//	type dbConn struct{ conn *sql.DB }
//	func (c *dbConn) Close() error { return c.conn.Close() }
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware counterpart of Disposable,
// preferred by the container when available so that disposal respects
// the destroy phase's own deadline.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

func closeDisposable(ctx context.Context, v any) error {
	switch d := v.(type) {
	case DisposableWithContext:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	default:
		return nil
	}
}
