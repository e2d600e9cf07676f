package pipeline

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = stderrors.New("pipeline: pool closed")

// DefaultWorkers is the pool size used when NewPool is given n <= 0.
const DefaultWorkers = 4

type job struct {
	ctx  context.Context
	req  Request
	resp chan Response
}

// Pool runs requests on a fixed set of worker goroutines.
type Pool struct {
	runner *Runner
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts n workers that render with runner.
func NewPool(runner *Runner, n int) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	p := &Pool{
		runner: runner,
		jobs:   make(chan job, n),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.resp <- p.run(j)
	}
}

func (p *Pool) run(j job) Response {
	if err := j.ctx.Err(); err != nil {
		return Response{ID: j.req.ID, Error: SerializeError(err)}
	}
	res, err := p.runner.Render(j.ctx, j.req)
	if err != nil {
		return Response{ID: j.req.ID, Error: SerializeError(err)}
	}
	return Response{ID: j.req.ID, Result: res.Output}
}

// Submit queues req and returns the channel its Response is delivered on.
// The channel is buffered, so the caller may abandon it. Submit blocks while
// the queue is full and fails if ctx ends first.
func (p *Pool) Submit(ctx context.Context, req Request) (<-chan Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	resp := make(chan Response, 1)
	select {
	case p.jobs <- job{ctx: ctx, req: req, resp: resp}:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits req and waits for its Response.
func (p *Pool) Do(ctx context.Context, req Request) (Response, error) {
	ch, err := p.Submit(ctx, req)
	if err != nil {
		return Response{}, err
	}
	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close stops accepting requests and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
