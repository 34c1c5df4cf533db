package hexapod

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVTrace(t *testing.T) {
	var buf bytes.Buffer
	trace := NewCSVTrace(&buf, 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, trace.Frame(Frame{Time: float64(i), BasePos: Vec3{0.5, 0, 0.15}}))
	}
	require.NoError(t, trace.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	require.Len(t, header, 5+NumJoints+NumLegs*3)
	assert.Equal(t, []string{"t", "x", "y", "z", "yaw"}, header[:5])
	assert.Equal(t, "leg0_coxa", header[5])
	assert.Equal(t, "foot5_z", header[len(header)-1])

	assert.Equal(t, "0.000000", rows[1][0])
	assert.Equal(t, "2.000000", rows[2][0])
	assert.Equal(t, "4.000000", rows[3][0])
	assert.Equal(t, "0.500000", rows[1][1])
}

func TestCSVTraceWritesSimulatorFrames(t *testing.T) {
	var buf bytes.Buffer
	trace := NewCSVTrace(&buf, 0)
	s := newSimulator(t, TripodGait, walkOptions(), SimulatorOptions{Visualiser: trace})
	stepN(t, s, 10)
	require.NoError(t, trace.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 11)
}
