package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_NoCollector(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "jobclean-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := GetTracer("jobclean-test").Start(context.Background(), "noop")
	span.End()
}

func TestAttributes(t *testing.T) {
	assert.Equal(t, "a", string(String("a", "x").Key))
	assert.Equal(t, int64(3), Int("n", 3).Value.AsInt64())
	assert.Equal(t, int64(7), Int64("n", 7).Value.AsInt64())
	assert.True(t, Bool("b", true).Value.AsBool())
}
