package runner

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gotrain/config"
	"github.com/samuelfneumann/gotrain/distributed"
)

func TestLocalCheckpointsAndResumes(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Workers = 2

	var bar bytes.Buffer
	r, err := New(cfg, WithFs(fs), WithProgressOutput(&bar))
	require.NoError(t, err)

	result, err := r.Local(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 800, result.Progress.SamplesSeen)
	assert.Equal(t, 200, result.Progress.Minibatches)
	assert.Equal(t, 2, result.Progress.Checkpoints)
	assert.False(t, result.Progress.Restored)
	assert.True(t, result.TestError >= 0 && result.TestError <= 1)
	assert.Contains(t, bar.String(), "100")

	exists, err := afero.Exists(fs, cfg.Session.Checkpoint.Path)
	require.NoError(t, err)
	assert.True(t, exists)

	// The budget is already spent
	result, err = r.Local(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Progress.Restored)
	assert.Equal(t, 800, result.Progress.SamplesSeen)
	assert.Equal(t, 0, result.Progress.Minibatches)

	cfg.ApplyOverrides(config.Overrides{MaxSamples: 1000})
	result, err = r.Local(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Progress.Restored)
	assert.Equal(t, 1000, result.Progress.SamplesSeen)
	assert.Equal(t, 50, result.Progress.Minibatches)

	require.NoError(t, r.Fresh())
	exists, err = afero.Exists(fs, cfg.Session.Checkpoint.Path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalRequireExisting(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Checkpoint.RestoreIfExists = false
	cfg.Session.Checkpoint.RequireExisting = true

	r, err := New(cfg, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	_, err = r.Local(context.Background())
	assert.Error(t, err)
}

func TestLocalInvalidModel(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 3
	cfg.Model.Features = 5

	r, err := New(cfg, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	_, err = r.Local(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, distributed.ErrAborted))
}

func TestNewValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 0
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRootCause(t *testing.T) {
	cause := errors.New("disk full")
	aborted := errors.Wrap(distributed.ErrAborted, "peer")

	assert.NoError(t, rootCause([]error{nil, nil}))
	assert.Equal(t, cause, rootCause([]error{aborted, cause, nil}))
	assert.Equal(t, aborted, rootCause([]error{nil, aborted}))
}
