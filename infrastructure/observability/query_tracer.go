package observability

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	statement string
}

// QueryTracer returns a pgx tracer that feeds the database query duration histogram
func (mp *MetricsProvider) QueryTracer() pgx.QueryTracer {
	return &queryTracer{metrics: mp}
}

type queryTracer struct {
	metrics *MetricsProvider
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		at:        time.Now(),
		statement: statementKind(data.SQL),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	t.metrics.RecordDatabaseQuery(start.statement, data.Err != nil, time.Since(start.at))
}

// statementKind labels a query by its leading keyword, keeping cardinality low
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
