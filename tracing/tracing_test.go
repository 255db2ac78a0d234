package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wyfcoding/segtree/config"
)

func TestInitTracerInProcess(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracer(context.Background(), config.TracingConfig{
		Enabled:      true,
		ServiceName:  "segbench-test",
		SamplerRatio: 1,
	}, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.Len(t, GetTraceID(ctx), 32)
	SetError(span, errors.New("boom"), "op failed")
	SetError(span, nil, "ignored")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "op failed", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)

	name, ok := ended[0].Resource().Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "segbench-test", name.AsString())
}

func TestSamplerRatioZeroDropsRootSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracer(context.Background(), config.TracingConfig{ServiceName: "segbench-test"},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.False(t, span.SpanContext().IsSampled())
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.Empty(t, recorder.Ended())
	assert.Empty(t, GetTraceID(context.Background()))
}
