package filmgrade

import (
	"fmt"
	"log/slog"
	"sync"
)

// Processor turns a Request into a Result, *Pipeline implements it.
type Processor interface {
	Process(req Request) Result
}

// QueueOptions controls the Queue.
type QueueOptions struct {
	// Workers is the number of requests processed concurrently, default 1.
	Workers int
	// Size is the submission buffer, Submit blocks when it is full.
	Size int
	// Sink receives every result in submission order, on a single goroutine.
	Sink   func(res Result)
	Logger *slog.Logger
}

// Queue processes requests in the background and delivers results strictly in submission
// order, regardless of how long each request takes.
type Queue struct {
	proc Processor
	opts QueueOptions

	mu     sync.Mutex
	closed bool
	in     chan *job
	done   chan struct{}
}

type job struct {
	req   Request
	res   Result
	ready chan struct{}
	out   chan Result
}

// NewQueue starts a queue on top of proc.
func NewQueue(proc Processor, opts ...func(o *QueueOptions)) *Queue {
	o := QueueOptions{
		Workers: 1,
		Size:    defaultQueueSize,
		Logger:  discardLogger(),
	}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Size < 0 {
		o.Size = 0
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}

	q := &Queue{
		proc: proc,
		opts: o,
		in:   make(chan *job, o.Size),
		done: make(chan struct{}),
	}
	ordered := make(chan *job, o.Size+o.Workers)
	go q.dispatch(ordered)
	go q.emit(ordered)
	return q
}

// Submit enqueues req. The returned channel yields its Result once all earlier results
// have been delivered.
func (q *Queue) Submit(req Request) (<-chan Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	j := &job{req: req, ready: make(chan struct{}), out: make(chan Result, 1)}
	q.in <- j
	return j.out, nil
}

// Close stops accepting requests and waits until every submitted request is delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.in)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) dispatch(ordered chan<- *job) {
	sem := make(chan struct{}, q.opts.Workers)
	for j := range q.in {
		ordered <- j
		sem <- struct{}{}
		go func(j *job) {
			defer func() { <-sem }()
			j.res = q.run(j.req)
			close(j.ready)
		}(j)
	}
	close(ordered)
}

func (q *Queue) emit(ordered <-chan *job) {
	defer close(q.done)
	for j := range ordered {
		<-j.ready
		if q.opts.Sink != nil {
			q.opts.Sink(j.res)
		}
		j.out <- j.res
		close(j.out)
	}
}

func (q *Queue) run(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			q.opts.Logger.Error("request panicked", "id", req.ID, "panic", r)
			res = Result{ID: req.ID, Output: req.Encoded, Err: fmt.Errorf("process %s: panic: %v", req.ID, r)}
		}
	}()
	return q.proc.Process(req)
}
