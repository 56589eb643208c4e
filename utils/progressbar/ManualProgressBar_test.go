package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewManualProgressBar(&buf, 10, 4)

	bar.Increment()
	assert.Equal(t, 0.25, bar.Progress())

	bar.Set(100)
	assert.Equal(t, 1.0, bar.Progress())

	bar.Display()
	bar.Close()
	out := buf.String()
	assert.Contains(t, out, "100.00%")
	assert.Equal(t, 10, strings.Count(out, "█"))
}

func TestManualProgressBarZeroMax(t *testing.T) {
	var buf bytes.Buffer
	bar := NewManualProgressBar(&buf, 10, 0)
	assert.Equal(t, 0.0, bar.Progress())
}
