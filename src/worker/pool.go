package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"get-selected-text/src/selector"
)

// Grabber reads the current selection. *selector.Selector implements it.
type Grabber interface {
	GetSelectedText(ctx context.Context) (selector.Result, error)
}

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res selector.Result, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	grabber Grabber
	jobs    chan job
	wg      sync.WaitGroup

	// grabs that outlived their deadline and are still running
	lingering atomic.Int32
}

type job struct {
	ctx context.Context
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0: the selector
// serializes grabs anyway, so extra workers only queue on its lock.
func New(g Grabber, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{grabber: g, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				res, err := p.grabWithContext(j.ctx)
				log.Printf("Worker: grab completed, files=%v items=%d, err=%v", res.IsFilePaths, len(res.Text), err)
				j.cb(res, err)
			}
		}()
	}
}

// Submit enqueues a grab if the single-slot queue is free and no timed-out
// grab is still running. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, cb ResultCallback) bool {
	if n := p.lingering.Load(); n > 0 {
		log.Printf("Worker: %d timed-out grab(s) still running, refusing new work", n)
		return false
	}
	select {
	case p.jobs <- job{ctx: ctx, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// Lingering reports how many timed-out grabs have not finished yet.
func (p *Pool) Lingering() int { return int(p.lingering.Load()) }

func (p *Pool) grabWithContext(ctx context.Context) (selector.Result, error) {
	return grabWithContext(ctx, p.grabber, &p.lingering)
}

// GrabWithContext races g against ctx. On deadline it returns ctx.Err() while
// the grab finishes in the background; a running script is never interrupted.
func GrabWithContext(ctx context.Context, g Grabber) (selector.Result, error) {
	return grabWithContext(ctx, g, nil)
}

func grabWithContext(ctx context.Context, g Grabber, lingering *atomic.Int32) (selector.Result, error) {
	if err := ctx.Err(); err != nil {
		return selector.Result{}, err
	}
	// Fast path: no deadline to race against.
	if _, ok := ctx.Deadline(); !ok && ctx.Done() == nil {
		return g.GetSelectedText(ctx)
	}
	type outcome struct {
		res selector.Result
		err error
	}
	resCh := make(chan outcome, 1)
	go func() {
		res, err := g.GetSelectedText(context.WithoutCancel(ctx))
		resCh <- outcome{res, err}
	}()
	select {
	case r := <-resCh:
		return r.res, r.err
	case <-ctx.Done():
		log.Printf("Worker: grab outlived its deadline, letting it finish")
		if lingering != nil {
			lingering.Add(1)
			go func() {
				<-resCh
				lingering.Add(-1)
				log.Printf("Worker: timed-out grab finished")
			}()
		}
		return selector.Result{}, ctx.Err()
	}
}
