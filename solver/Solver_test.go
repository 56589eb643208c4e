package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestJSONRoundTrip(t *testing.T) {
	for _, create := range []func() (*Solver, error){
		func() (*Solver, error) { return NewDefaultAdam(0.01, 1) },
		func() (*Solver, error) { return NewVanilla(0.1, 1, -1) },
		func() (*Solver, error) { return NewDefaultRMSProp(0.001, 1) },
		func() (*Solver, error) { return NewMomentum(0.1, 0.9, 1, 5) },
	} {
		s, err := create()
		require.NoError(t, err)

		data, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded Solver
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, s.Type, decoded.Type)
		assert.Equal(t, s.Config, decoded.Config)
		assert.NotNil(t, decoded.Solver)
	}
}

func TestUnmarshalYAML(t *testing.T) {
	var s Solver
	in := "type: Adam\nconfig:\n  stepsize: 0.01\n  epsilon: 1e-8\n" +
		"  beta1: 0.9\n  beta2: 0.999\n  batch: 1\n"
	require.NoError(t, yaml.Unmarshal([]byte(in), &s))
	assert.Equal(t, Adam, s.Type)
	assert.Equal(t, &AdamConfig{Common: Common{StepSize: 0.01, Batch: 1},
		Epsilon: 1e-8, Beta1: 0.9, Beta2: 0.999}, s.Config)
	assert.NotNil(t, s.Solver)
}

func TestUnmarshalInvalid(t *testing.T) {
	var s Solver
	err := json.Unmarshal([]byte(`{"Type": "LBFGS", "Config": {}}`), &s)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"Type": "Vanilla", "Config": `+
		`{"StepSize": -1, "Batch": 1}}`), &s)
	assert.Error(t, err)
}

func TestNewInvalid(t *testing.T) {
	_, err := NewDefaultAdam(0, 1)
	assert.Error(t, err)

	_, err = NewVanilla(0.1, 0, -1)
	assert.Error(t, err)

	_, err = NewMomentum(0.1, 1.5, 1, -1)
	assert.Error(t, err)

	_, err = NewRMSProp(0.1, 1e-8, 1.5, 1, -1)
	assert.Error(t, err)
}

func TestUnmarshalDefaults(t *testing.T) {
	var s Solver
	require.NoError(t, yaml.Unmarshal(
		[]byte("type: Momentum\nconfig:\n  stepsize: 0.5\n"), &s))
	assert.Equal(t, &MomentumConfig{Common: Common{StepSize: 0.5, Batch: 1},
		Momentum: 0.9}, s.Config)

	require.NoError(t, yaml.Unmarshal([]byte("type: Adam\n"), &s))
	assert.Equal(t, Adam, s.Type)
	assert.NoError(t, s.Validate())
}

func TestReset(t *testing.T) {
	s, err := NewDefaultAdam(0.01, 1)
	require.NoError(t, err)
	before := s.Solver
	s.Reset()
	assert.NotSame(t, before, s.Solver)
}

func TestClone(t *testing.T) {
	s, err := NewMomentum(0.1, 0.5, 1, -1)
	require.NoError(t, err)

	clone, err := s.Clone()
	require.NoError(t, err)
	assert.Equal(t, s.Type, clone.Type)
	assert.Equal(t, s.Config, clone.Config)
	assert.NotSame(t, s.Solver, clone.Solver)
}
