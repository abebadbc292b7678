package capture

import "sync"

// stateQueue delivers every pushed state to one subscriber in order. The
// queue is unbounded so a slow reader never loses a transition and never
// stalls the cycle.
type stateQueue struct {
	mu      sync.Mutex
	pending []State
	notify  chan struct{}
	out     chan State
	done    chan struct{}
	stop    func()
}

func newStateQueue(initial State) *stateQueue {
	q := &stateQueue{
		pending: []State{initial},
		notify:  make(chan struct{}, 1),
		out:     make(chan State),
		done:    make(chan struct{}),
	}
	q.stop = sync.OnceFunc(func() { close(q.done) })
	go q.run()
	return q
}

func (q *stateQueue) push(s State) {
	q.mu.Lock()
	q.pending = append(q.pending, s)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *stateQueue) run() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		next := q.pending[0]
		q.pending[0] = State{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		select {
		case q.out <- next:
		case <-q.done:
			return
		}
	}
}
