package checkpointer

import (
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/backo-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gotrain/minibatch"
)

func testBundle(t *testing.T) Bundle {
	id, err := NewRunID()
	require.NoError(t, err)
	return Bundle{
		RunID:       id,
		NumWorkers:  2,
		SamplesSeen: 400,
		Trainer:     []byte("weights"),
		Source:      minibatch.State{Sweep: 100, Offset: 0, SamplesRead: 400},
	}
}

func fastStore(fs afero.Fs, retries int) *Store {
	return NewStore(fs, WithRetries(retries),
		WithBackoff(backo.NewBacko(time.Millisecond, 2, 0, time.Millisecond)))
}

func TestSaveLoad(t *testing.T) {
	store := fastStore(afero.NewMemMapFs(), 0)
	b := testBundle(t)

	require.NoError(t, store.Save("/ckpt/model", b))

	exists, err := store.Exists("/ckpt/model")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load("/ckpt/model")
	require.NoError(t, err)
	assert.Equal(t, b, loaded)

	// Saving again overwrites in place and leaves no temporary files
	b.SamplesSeen = 800
	require.NoError(t, store.Save("/ckpt/model", b))
	loaded, err = store.Load("/ckpt/model")
	require.NoError(t, err)
	assert.Equal(t, 800, loaded.SamplesSeen)

	entries, err := afero.ReadDir(store.Fs(), "/ckpt")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissing(t *testing.T) {
	store := fastStore(afero.NewMemMapFs(), 0)
	_, err := store.Load("/nothing/here")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsFatal(err))

	exists, err := store.Exists("/nothing/here")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := fastStore(fs, 0)
	require.NoError(t, store.Save("/model", testBundle(t)))

	data, err := afero.ReadFile(fs, "/model")
	require.NoError(t, err)

	// Flip a payload byte
	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xff
	require.NoError(t, afero.WriteFile(fs, "/flipped", flipped, 0644))
	_, err = store.Load("/flipped")
	assert.True(t, errors.Is(err, ErrCorrupt))

	// Truncated file
	require.NoError(t, afero.WriteFile(fs, "/short", data[:headerSize+2],
		0644))
	_, err = store.Load("/short")
	assert.True(t, errors.Is(err, ErrCorrupt))

	// Garbage
	require.NoError(t, afero.WriteFile(fs, "/garbage", []byte("hello"), 0644))
	_, err = store.Load("/garbage")
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestLoadIncompatibleVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := fastStore(fs, 0)
	require.NoError(t, store.Save("/model", testBundle(t)))

	data, err := afero.ReadFile(fs, "/model")
	require.NoError(t, err)
	data[4] = FormatVersion + 1
	require.NoError(t, afero.WriteFile(fs, "/model", data, 0644))

	_, err = store.Load("/model")
	assert.True(t, errors.Is(err, ErrIncompatible))
}

func TestSaveInvalidBundle(t *testing.T) {
	store := fastStore(afero.NewMemMapFs(), 0)
	b := testBundle(t)
	b.Trainer = nil
	assert.Error(t, store.Save("/model", b))
}

func TestSaveRetriesThenFails(t *testing.T) {
	store := fastStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), 2)
	err := store.Save("/ckpt/model", testBundle(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.False(t, IsFatal(err))
}

// flakyFs fails the first failures file opens
type flakyFs struct {
	afero.Fs
	failures int
}

func (f *flakyFs) OpenFile(name string, flag int,
	perm os.FileMode) (afero.File, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("disk busy")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestSaveRetriesThenSucceeds(t *testing.T) {
	fs := &flakyFs{Fs: afero.NewMemMapFs(), failures: 2}
	store := fastStore(fs, 3)
	require.NoError(t, store.Save("/model", testBundle(t)))
	assert.Equal(t, 0, fs.failures)

	_, err := store.Load("/model")
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	store := fastStore(afero.NewMemMapFs(), 0)
	require.NoError(t, store.Save("/model", testBundle(t)))
	require.NoError(t, store.Remove("/model"))
	require.NoError(t, store.Remove("/model"))

	exists, err := store.Exists("/model")
	require.NoError(t, err)
	assert.False(t, exists)
}
