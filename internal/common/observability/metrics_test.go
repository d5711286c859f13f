package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs, err := New("rewards-test", WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	ctx, job := obs.StartSpan(context.Background(), "job rank-best-card", attribute.Int64("job.key", 7))
	_, child := otel.Tracer("engine").Start(ctx, "rewards.Rank")
	child.End()
	job.End()

	obs.RecordJobProcessed(ctx, "rank-best-card", "success")
	obs.RecordJobDuration(ctx, "rank-best-card", 12*time.Millisecond, "success")

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "rewards.Rank", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	ctx, span := obs.StartSpan(context.Background(), "noop")
	span.End()
	obs.RecordJobProcessed(ctx, "x", "success")
	obs.RecordJobDuration(ctx, "x", time.Second, "success")
	assert.NoError(t, obs.Shutdown(ctx))
}
