package distributed

import (
	"context"
	"math"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorEncoding(t *testing.T) {
	data := []float64{0, -1.5, math.Inf(1), 3e10}
	decoded, err := decodeVector(encodeVector(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestServerRemoteAllReduce(t *testing.T) {
	server, err := NewServer(2, time.Second, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()

	ctx := context.Background()
	members := make([]Communicator, 2)
	for rank := range members {
		remote, err := Dial(ctx, ts.URL, rank, 2)
		require.NoError(t, err)
		members[rank] = remote
	}

	results := make([][]float64, 2)
	errs := runAll(members, func(m Communicator) error {
		out, err := m.AllReduce(ctx, []float64{1, float64(m.Rank())})
		if err != nil {
			return err
		}
		results[m.Rank()] = out
		if err := m.Barrier(ctx); err != nil {
			return err
		}
		return m.Finalize()
	})

	for rank, err := range errs {
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 1}, results[rank])
	}
}

func TestServerRemoteDesync(t *testing.T) {
	server, err := NewServer(2, 5*time.Second, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()

	ctx := context.Background()
	a, err := Dial(ctx, ts.URL, 0, 2)
	require.NoError(t, err)
	b, err := Dial(ctx, ts.URL, 1, 2)
	require.NoError(t, err)

	errs := runAll([]Communicator{a, b}, func(m Communicator) error {
		if m.Rank() == 0 {
			return m.Barrier(ctx)
		}
		_, err := m.AllReduce(ctx, []float64{1})
		return err
	})
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrDesync), "%v", err)
	}

	health, err := a.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Aborted)

	_, err = Dial(ctx, ts.URL, 0, 2)
	assert.True(t, errors.Is(err, ErrAborted), "%v", err)
}

func TestDialWorkerMismatch(t *testing.T) {
	server, err := NewServer(3, time.Second, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()

	_, err = Dial(context.Background(), ts.URL, 0, 2)
	assert.Error(t, err)

	_, err = Dial(context.Background(), ts.URL, 3, 3)
	assert.Error(t, err)
}

func TestRemoteAbort(t *testing.T) {
	server, err := NewServer(2, 5*time.Second, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()

	ctx := context.Background()
	a, err := Dial(ctx, ts.URL, 0, 2)
	require.NoError(t, err)
	b, err := Dial(ctx, ts.URL, 1, 2)
	require.NoError(t, err)

	a.Abort(errors.New("disk full"))

	_, err = b.AllReduce(ctx, []float64{1})
	assert.True(t, errors.Is(err, ErrAborted), "%v", err)
	assert.Contains(t, server.Group().Err().Error(), "disk full")
}
