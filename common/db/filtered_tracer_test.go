package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

type recordingTracer struct {
	started []string
	ended   int
}

func (r *recordingTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	r.started = append(r.started, data.SQL)
	return ctx
}

func (r *recordingTracer) TraceQueryEnd(_ context.Context, _ *pgx.Conn, _ pgx.TraceQueryEndData) {
	r.ended++
}

func TestFilteredTracer(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantTrace bool
	}{
		{"watermark query", "SELECT MAX(published_at)::timestamptz AS latest FROM data_source", true},
		{"insert", "INSERT INTO data_source (id, type) VALUES ($1, $2)", false},
		{"insert lower case", "insert into data_source (id) values ($1)", false},
		{"other insert", "INSERT INTO other_table (id) VALUES ($1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &recordingTracer{}
			tracer := NewFilteredTracer(inner, "INSERT INTO data_source", "  ")

			ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: tt.sql})
			tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

			if tt.wantTrace {
				assert.Equal(t, []string{tt.sql}, inner.started)
				assert.Equal(t, 1, inner.ended)
			} else {
				assert.Empty(t, inner.started)
				assert.Zero(t, inner.ended)
			}
		})
	}
}
