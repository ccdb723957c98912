package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// TestInit_Disabled verifies disabled telemetry yields working noop providers.
func TestInit_Disabled(t *testing.T) {
	t.Parallel()

	providers, err := Init(context.Background(), Config{Service: "isetdb-test"})
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	require.NoError(t, providers.Shutdown(context.Background()))

	// Spans from the noop tracer must be safe to use.
	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
}

// TestTracingHandler_ServiceAttrs verifies service metadata lands on every
// record.
func TestTracingHandler_ServiceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := NewTracingHandler(slog.NewTextHandler(&buf, nil), "isetdb-test", "ci")
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "hello")

	assert.Contains(t, buf.String(), "service=isetdb-test")
	assert.Contains(t, buf.String(), "env=ci")
}

// TestCommandMetrics_Record verifies instrument creation and recording on a
// noop meter.
func TestCommandMetrics_Record(t *testing.T) {
	t.Parallel()

	meter := noopmetric.NewMeterProvider().Meter("test")

	metrics, err := NewCommandMetrics(meter)
	require.NoError(t, err)

	done := metrics.TrackInflight(context.Background(), "iadd")
	metrics.RecordCommand(context.Background(), "iadd", StatusOK, time.Millisecond)
	metrics.RecordCommand(context.Background(), "iadd", StatusError, time.Millisecond)
	done()
}

// TestPrometheusHandler verifies the scrape endpoint builds.
func TestPrometheusHandler(t *testing.T) {
	t.Parallel()

	handler, provider, err := PrometheusHandler()
	require.NoError(t, err)
	assert.NotNil(t, handler)
	assert.NotNil(t, provider)
}
