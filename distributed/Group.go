package distributed

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout is the rendezvous timeout used when none is given
const DefaultTimeout = time.Minute

// Aborter is a Communicator that can abort its whole run, releasing
// every worker blocked in or entering a collective
type Aborter interface {
	Abort(cause error)
}

// abortError is returned by every collective of an aborted run. It
// matches both ErrAborted and the cause of the abort.
type abortError struct {
	cause error
}

func (e *abortError) Error() string {
	return "run aborted: " + e.cause.Error()
}

func (e *abortError) Unwrap() error {
	return e.cause
}

func (e *abortError) Is(target error) bool {
	return target == ErrAborted
}

// round is a single rendezvous of all workers
type round struct {
	op      Op
	size    int
	arrived []bool
	count   int
	sum     []float64
	done    chan struct{}
	err     error
}

// Group connects the workers of a run through synchronous rendezvous
// points. A Group can serve workers in the same process through Member,
// or remote workers through a Server.
type Group struct {
	n       int
	timeout time.Duration

	mu     sync.Mutex
	rounds map[uint64]*round
	err    error // Non-nil once the run is aborted
}

// NewGroup returns a new Group of n workers. A rendezvous not completed
// by every worker within timeout aborts the run. If timeout is not
// positive, DefaultTimeout is used.
func NewGroup(n int, timeout time.Duration) (*Group, error) {
	if n < 1 {
		return nil, errors.Errorf("newGroup: number of workers must be "+
			"positive \n\twant(>0) \n\thave(%v)", n)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Group{
		n:       n,
		timeout: timeout,
		rounds:  make(map[uint64]*round),
	}, nil
}

// NumWorkers returns the number of workers in the Group
func (g *Group) NumWorkers() int {
	return g.n
}

// Err returns the cause of the abort, or nil if the run is healthy
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Abort aborts the run. Every pending and future collective returns an
// error matching both ErrAborted and cause. Only the first cause is
// kept.
func (g *Group) Abort(cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abortLocked(cause)
}

func (g *Group) abortLocked(cause error) {
	if g.err != nil {
		return
	}
	if cause == nil {
		cause = errors.New("unknown cause")
	}
	g.err = &abortError{cause: cause}

	for seq, r := range g.rounds {
		r.err = g.err
		close(r.done)
		delete(g.rounds, seq)
	}
}

// Reduce is the rendezvous of the worker with the given rank at its
// seq-th collective. It blocks until every worker has contributed to
// the same collective and returns the element-wise sum of all
// contributions.
func (g *Group) Reduce(ctx context.Context, rank int, seq uint64, op Op,
	data []float64) ([]float64, error) {
	if rank < 0 || rank >= g.n {
		return nil, errors.Errorf("reduce: rank %v out of range [0, %v)",
			rank, g.n)
	}

	g.mu.Lock()
	if g.err != nil {
		err := g.err
		g.mu.Unlock()
		return nil, err
	}

	r, ok := g.rounds[seq]
	if !ok {
		r = &round{
			op:      op,
			size:    len(data),
			arrived: make([]bool, g.n),
			sum:     make([]float64, len(data)),
			done:    make(chan struct{}),
		}
		g.rounds[seq] = r
	}

	if r.op != op || r.size != len(data) || r.arrived[rank] {
		cause := errors.Wrapf(ErrDesync, "rank %v called %v with %v "+
			"values as collective %v, but peers called %v with %v values",
			rank, op, len(data), seq, r.op, r.size)
		g.abortLocked(cause)
		err := g.err
		g.mu.Unlock()
		return nil, err
	}

	r.arrived[rank] = true
	r.count++
	for i, v := range data {
		r.sum[i] += v
	}
	if r.count == g.n {
		close(r.done)
		delete(g.rounds, seq)
	}
	g.mu.Unlock()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		if r.err != nil {
			return nil, r.err
		}
		return append([]float64(nil), r.sum...), nil

	case <-ctx.Done():
		g.Abort(errors.Wrapf(ctx.Err(), "rank %v left collective %v", rank,
			seq))
		return nil, g.Err()

	case <-timer.C:
		g.Abort(errors.Wrapf(ErrTimeout, "rank %v waited %v for peers at "+
			"collective %v (%v)", rank, g.timeout, seq, op))
		return nil, g.Err()
	}
}

// Member returns the in-process Communicator of the worker with the
// given rank
func (g *Group) Member(rank int) (Communicator, error) {
	if rank < 0 || rank >= g.n {
		return nil, errors.Errorf("member: rank %v out of range [0, %v)",
			rank, g.n)
	}
	return &member{group: g, rank: rank}, nil
}

// Members returns the in-process Communicators of all workers, ordered
// by rank
func (g *Group) Members() []Communicator {
	members := make([]Communicator, g.n)
	for i := range members {
		members[i] = &member{group: g, rank: i}
	}
	return members
}

// member is an in-process worker of a Group
type member struct {
	group *Group
	rank  int

	mu        sync.Mutex
	seq       uint64
	finalized bool
}

func (m *member) next() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return 0, ErrFinalized
	}
	m.seq++
	return m.seq, nil
}

// Rank implements the Communicator interface
func (m *member) Rank() int {
	return m.rank
}

// NumWorkers implements the Communicator interface
func (m *member) NumWorkers() int {
	return m.group.n
}

// AllReduce implements the Communicator interface
func (m *member) AllReduce(ctx context.Context, data []float64) ([]float64,
	error) {
	seq, err := m.next()
	if err != nil {
		return nil, err
	}
	return m.group.Reduce(ctx, m.rank, seq, OpAllReduce, data)
}

// Barrier implements the Communicator interface
func (m *member) Barrier(ctx context.Context) error {
	seq, err := m.next()
	if err != nil {
		return err
	}
	_, err = m.group.Reduce(ctx, m.rank, seq, OpBarrier, nil)
	return err
}

// Finalize implements the Communicator interface. It is a rendezvous
// so that no worker leaves while its peers still expect it in a
// collective.
func (m *member) Finalize() error {
	seq, err := m.next()
	if err != nil {
		return err
	}
	_, err = m.group.Reduce(context.Background(), m.rank, seq, OpFinalize,
		nil)

	m.mu.Lock()
	m.finalized = true
	m.mu.Unlock()
	return err
}

// Abort implements the Aborter interface
func (m *member) Abort(cause error) {
	m.group.Abort(errors.Wrapf(cause, "rank %v", m.rank))
}
