package distributed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Remote is a Communicator for a worker whose peers meet at a
// coordinator Server
type Remote struct {
	base   string
	rank   int
	n      int
	client *http.Client

	mu        sync.Mutex
	seq       uint64
	finalized bool
}

// Dial connects to the coordinator at addr as the worker with the given
// rank of a run with n workers. The coordinator must serve exactly n
// workers.
func Dial(ctx context.Context, addr string, rank, n int) (*Remote, error) {
	if rank < 0 || rank >= n {
		return nil, errors.Errorf("dial: rank %v out of range [0, %v)", rank,
			n)
	}
	base := addr
	if !strings.HasPrefix(base, "http://") &&
		!strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	r := &Remote{
		base:   strings.TrimSuffix(base, "/"),
		rank:   rank,
		n:      n,
		client: &http.Client{},
	}

	health, err := r.Health(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "dial: unable to reach coordinator %v",
			addr)
	}
	if health.Workers != n {
		return nil, errors.Errorf("dial: coordinator serves %v workers, "+
			"want %v", health.Workers, n)
	}
	if health.Aborted {
		return nil, errors.Wrap(ErrAborted, health.Cause)
	}
	return r, nil
}

// Health returns the state reported by the coordinator
func (r *Remote) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequest("GET", r.base+healthRoute, nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := r.client.Do(req.WithContext(ctx))
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Health{}, errors.Errorf("health: status %v", resp.StatusCode)
	}
	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Health{}, errors.Wrap(err, "health: invalid body")
	}
	return health, nil
}

// Rank implements the Communicator interface
func (r *Remote) Rank() int {
	return r.rank
}

// NumWorkers implements the Communicator interface
func (r *Remote) NumWorkers() int {
	return r.n
}

func (r *Remote) next() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return 0, ErrFinalized
	}
	r.seq++
	return r.seq, nil
}

func (r *Remote) collective(ctx context.Context, op Op,
	data []float64) ([]float64, error) {
	seq, err := r.next()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%v/v1/collective/%d/%d?op=%v", r.base, r.rank, seq,
		op)
	req, err := http.NewRequest("POST", url,
		bytes.NewReader(encodeVector(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "%v: collective %v", op, seq)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%v: collective %v", op, seq)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFor(resp.StatusCode,
			strings.TrimSpace(string(body)))
	}
	return decodeVector(body)
}

// AllReduce implements the Communicator interface
func (r *Remote) AllReduce(ctx context.Context, data []float64) ([]float64,
	error) {
	return r.collective(ctx, OpAllReduce, data)
}

// Barrier implements the Communicator interface
func (r *Remote) Barrier(ctx context.Context) error {
	_, err := r.collective(ctx, OpBarrier, nil)
	return err
}

// Abort implements the Aborter interface. It asks the coordinator to
// abort the run so that peers stop at their next collective. Failing
// to reach the coordinator is ignored; peers will then time out.
func (r *Remote) Abort(cause error) {
	url := fmt.Sprintf("%v/v1/abort/%d", r.base, r.rank)
	resp, err := r.client.Post(url, "text/plain",
		strings.NewReader(cause.Error()))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Finalize implements the Communicator interface
func (r *Remote) Finalize() error {
	_, err := r.collective(context.Background(), OpFinalize, nil)

	r.mu.Lock()
	r.finalized = true
	r.mu.Unlock()
	return err
}
