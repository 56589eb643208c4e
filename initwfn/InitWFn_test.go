package initwfn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestJSONRoundTrip(t *testing.T) {
	for _, create := range []func() (*InitWFn, error){
		func() (*InitWFn, error) { return NewGlorotU(1.0) },
		func() (*InitWFn, error) { return NewHeN(2.0) },
		func() (*InitWFn, error) { return NewGaussian(0, 0.1) },
		func() (*InitWFn, error) { return NewUniform(-1, 1) },
		func() (*InitWFn, error) { return NewConstant(0.5) },
		NewZeroes,
		NewOnes,
	} {
		init, err := create()
		require.NoError(t, err)

		data, err := json.Marshal(init)
		require.NoError(t, err)

		var decoded InitWFn
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, init.Type, decoded.Type)
		assert.Equal(t, init.Config, decoded.Config)
		assert.NotNil(t, decoded.InitWFn())
	}
}

func TestUnmarshalYAML(t *testing.T) {
	var init InitWFn
	err := yaml.Unmarshal([]byte("type: GlorotN\nconfig:\n  gain: 1.5\n"),
		&init)
	require.NoError(t, err)
	assert.Equal(t, GlorotN, init.Type)
	assert.Equal(t, &FanConfig{Kind: GlorotN, Gain: 1.5}, init.Config)

	var zeroes InitWFn
	require.NoError(t, yaml.Unmarshal([]byte("type: Zeroes\n"), &zeroes))
	assert.Equal(t, &ConstantConfig{Kind: Zeroes}, zeroes.Config)
}

func TestUnmarshalDefaults(t *testing.T) {
	var init InitWFn
	require.NoError(t, yaml.Unmarshal([]byte("type: HeU\n"), &init))
	assert.Equal(t, &FanConfig{Kind: HeU, Gain: 1}, init.Config)

	var uniform InitWFn
	require.NoError(t, yaml.Unmarshal(
		[]byte("type: Uniform\nconfig:\n  high: 2\n"), &uniform))
	assert.Equal(t, &UniformConfig{Low: -1, High: 2}, uniform.Config)
}

func TestValidate(t *testing.T) {
	_, err := NewGlorotU(0)
	assert.Error(t, err)
	_, err = NewGaussian(0, -1)
	assert.Error(t, err)
	_, err = NewUniform(1, 1)
	assert.Error(t, err)

	var init InitWFn
	err = yaml.Unmarshal([]byte("type: HeN\nconfig:\n  gain: -2\n"), &init)
	assert.Error(t, err)
}

func TestUnmarshalUnknown(t *testing.T) {
	var init InitWFn
	err := json.Unmarshal([]byte(`{"Type": "Orthogonal", "Config": {}}`),
		&init)
	assert.Error(t, err)
}
