package vm

import (
	"testing"

	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasMeter(t *testing.T) {
	m := NewGasMeter(1000)
	assert.Equal(t, int64(1000), m.Remaining())

	require.NoError(t, m.Consume(300))
	assert.Equal(t, int64(300), m.Used())
	assert.Equal(t, int64(700), m.Remaining())

	// non-positive amounts are ignored
	require.NoError(t, m.Consume(0))
	require.NoError(t, m.Consume(-5))
	assert.Equal(t, int64(300), m.Used())

	m.Refund(100)
	assert.Equal(t, int64(200), m.Used())

	m.Refund(10_000)
	assert.Equal(t, int64(0), m.Used())
}

func TestGasMeterOutOfGas(t *testing.T) {
	m := NewGasMeter(100)
	require.NoError(t, m.Consume(60))

	err := m.Consume(50)
	assert.ErrorIs(t, err, core.ErrOutOfGas)
	assert.Equal(t, int64(100), m.Used(), "an exhausted meter reports the whole limit as used")
	assert.Equal(t, int64(0), m.Remaining())
}
