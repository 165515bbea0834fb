package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTimestamps(t *testing.T) {
	ts := FrameTimestamps(10, 5)
	require.Len(t, ts, 5)
	assert.InDeltaSlice(t, []float64{1, 3, 5, 7, 9}, ts, 1e-9)

	ts = FrameTimestamps(1, 1)
	require.Len(t, ts, 1)
	assert.InDelta(t, 0.5, ts[0], 1e-9)

	// Every offset lies strictly inside the clip.
	ts = FrameTimestamps(3.7, 8)
	require.Len(t, ts, 8)
	for i, v := range ts {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 3.7)
		if i > 0 {
			assert.Greater(t, v, ts[i-1])
		}
	}
}

func TestFrameTimestampsDegenerateInputs(t *testing.T) {
	assert.Nil(t, FrameTimestamps(0, 5))
	assert.Nil(t, FrameTimestamps(-1, 5))
	assert.Nil(t, FrameTimestamps(10, 0))
	assert.Nil(t, FrameTimestamps(10, -2))
}
