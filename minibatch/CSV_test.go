package minibatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	data := "x1,x2,y\n0,0,0\n0,1,1\n1,0,1\n1,1,0\n"

	features, labels, classes, err := LoadCSV(strings.NewReader(data),
		[]string{"x1", "x2"}, "y")
	require.NoError(t, err)

	r, c := features.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []int{0, 1, 1, 0}, labels)
	assert.Equal(t, 2, classes)
	assert.Equal(t, 1.0, features.At(2, 0))
}

func TestLoadCSVErrors(t *testing.T) {
	_, _, _, err := LoadCSV(strings.NewReader("x1,y\n0,0\n"),
		[]string{"x2"}, "y")
	assert.Error(t, err)

	_, _, _, err = LoadCSV(strings.NewReader("x1,y\nfoo,0\n"),
		[]string{"x1"}, "y")
	assert.Error(t, err)

	_, _, _, err = LoadCSV(strings.NewReader("x1,y\n1,-1\n"),
		[]string{"x1"}, "y")
	assert.Error(t, err)

	_, _, _, err = LoadCSV(strings.NewReader("x1,y\n"), []string{"x1"}, "y")
	assert.Error(t, err)
}
