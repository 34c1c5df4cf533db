package hexapod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverseKinematicsRoundTrip(t *testing.T) {
	for leg := 0; leg < NumLegs; leg++ {
		hx, hy := hipPosition(leg)
		a := mountAngle(leg) + 0.2
		target := Vec3{hx + 0.13*math.Cos(a), hy + 0.13*math.Sin(a), -0.14}

		angles, err := InverseKinematics(leg, target)
		require.NoError(t, err)
		got := ForwardKinematics(leg, angles[0], angles[1], angles[2])
		for i := range got {
			assert.InDelta(t, target[i], got[i], 1e-9, "leg %d axis %d", leg, i)
		}
		assert.InDelta(t, 0.2, angles[0], 1e-9)
		// knee up
		assert.Greater(t, angles[1], math.Atan2(target[2], 0.09))
		assert.Less(t, angles[2], 0.0)
	}
}

func TestForwardKinematicsZeroPose(t *testing.T) {
	p := ForwardKinematics(0, 0, 0, 0)
	reach := BodyRadius + CoxaLength + FemurLength + TibiaLength
	assert.InDelta(t, reach*math.Cos(math.Pi/6), p[0], 1e-12)
	assert.InDelta(t, reach*math.Sin(math.Pi/6), p[1], 1e-12)
	assert.InDelta(t, 0, p[2], 1e-12)
}

func TestInverseKinematicsUnreachable(t *testing.T) {
	_, err := InverseKinematics(0, Vec3{1, 0, 0})
	require.ErrorIs(t, err, ErrUnreachable)

	// inside the coxa
	hx, hy := hipPosition(2)
	_, err = InverseKinematics(2, Vec3{hx, hy, -0.1})
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, 0, wrapAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, wrapAngle(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.5, wrapAngle(0.5), 1e-12)
}
