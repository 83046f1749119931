package device

import "sync"

type notification struct {
	muted   bool
	flushed chan struct{} // non-nil for Flush markers
}

// notifyQueue delivers observer notifications in FIFO order on a single
// goroutine. Pushing never blocks, so it is safe while holding the
// synchronizer lock even if the observer calls back into the synchronizer.
type notifyQueue struct {
	mu       sync.Mutex
	observer Observer
	pending  []notification
	closed   bool

	wake      chan struct{}
	done      chan struct{}
	delivered func()
}

func newNotifyQueue(delivered func()) *notifyQueue {
	q := &notifyQueue{
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		delivered: delivered,
	}
	go q.loop()
	return q
}

func (q *notifyQueue) setObserver(o Observer) {
	q.mu.Lock()
	q.observer = o
	q.mu.Unlock()
}

func (q *notifyQueue) push(n notification) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, n)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return true
}

// flush blocks until everything pushed before it has been delivered.
func (q *notifyQueue) flush() {
	marker := make(chan struct{})
	if !q.push(notification{flushed: marker}) {
		return
	}
	<-marker
}

// close delivers what is pending, then stops the loop.
func (q *notifyQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.wake)
	q.mu.Unlock()

	<-q.done
}

func (q *notifyQueue) loop() {
	defer close(q.done)
	for range q.wake {
		q.drain()
	}
	q.drain()
}

func (q *notifyQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		n := q.pending[0]
		q.pending = q.pending[1:]
		o := q.observer
		q.mu.Unlock()

		if n.flushed != nil {
			close(n.flushed)
			continue
		}
		if o == nil {
			continue
		}
		o.Notify(n.muted)
		if q.delivered != nil {
			q.delivered()
		}
	}
}
