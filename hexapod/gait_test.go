package hexapod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaitByName(t *testing.T) {
	tripod, err := GaitByName("tripod")
	require.NoError(t, err)
	assert.Equal(t, TripodGait, tripod)

	// presets are copied
	tripod[0] = 1
	assert.Equal(t, 0.12, TripodGait[0])

	stationary, err := GaitByName("stationary")
	require.NoError(t, err)
	assert.Len(t, stationary, NumLegs*5)

	_, err = GaitByName("gallop")
	require.Error(t, err)
}

func TestReshapeLegParams(t *testing.T) {
	legs, err := ReshapeLegParams(TripodGait)
	require.NoError(t, err)
	assert.Equal(t, LegParams{Radius: 0.12, Offset: 0, StepHeight: 0.04, Phase: 0.5, DutyFactor: 0.5}, legs[1])
	assert.Equal(t, 0.0, legs[2].Phase)

	_, err = ReshapeLegParams(TripodGait[:29])
	require.Error(t, err)
}

func TestLegParamsValidate(t *testing.T) {
	good := LegParams{Radius: 0.12, StepHeight: 0.04, Phase: 0.5, DutyFactor: 0.5}
	require.NoError(t, good.validate(0))

	for name, mutate := range map[string]func(*LegParams){
		"radius":      func(p *LegParams) { p.Radius = CoxaLength },
		"step height": func(p *LegParams) { p.StepHeight = -0.01 },
		"phase":       func(p *LegParams) { p.Phase = 1 },
		"duty":        func(p *LegParams) { p.DutyFactor = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			p := good
			mutate(&p)
			require.Error(t, p.validate(3))
		})
	}
}
