package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// FilteredTracer forwards to an inner tracer except for statements that
// contain one of the skip patterns (case-insensitive).
type FilteredTracer struct {
	inner pgx.QueryTracer
	skip  []string
}

// skipCtxKey is a unique type to store skip flag in context
type skipCtxKey struct{}

// NewFilteredTracer wraps inner and drops traces of statements matching skip
func NewFilteredTracer(inner pgx.QueryTracer, skip ...string) *FilteredTracer {
	patterns := make([]string, 0, len(skip))
	for _, s := range skip {
		if s = strings.TrimSpace(s); s != "" {
			patterns = append(patterns, strings.ToLower(s))
		}
	}
	return &FilteredTracer{inner: inner, skip: patterns}
}

func (t *FilteredTracer) matches(sql string) bool {
	lower := strings.ToLower(sql)
	for _, p := range t.skip {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (t *FilteredTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.matches(data.SQL) {
		// TraceQueryEnd only sees the command tag, remember the decision
		return context.WithValue(ctx, skipCtxKey{}, true)
	}

	return t.inner.TraceQueryStart(ctx, conn, data)
}

func (t *FilteredTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if ctx.Value(skipCtxKey{}) != nil {
		return
	}

	t.inner.TraceQueryEnd(ctx, conn, data)
}
