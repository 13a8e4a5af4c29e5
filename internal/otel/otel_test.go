package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/imtaco/stream-dashboard/internal/log"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{ServiceName: "test"}, log.NewTest(t))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(2).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestDialOption(t *testing.T) {
	assert.Len(t, dialOption(&Config{Insecure: true}), 1)
	assert.Empty(t, dialOption(&Config{}))
}
