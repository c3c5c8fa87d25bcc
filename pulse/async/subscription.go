package async

// subscriberBuffer bounds how far a subscriber may lag before updates are
// dropped.
const subscriberBuffer = 16

type subscription struct {
	ch     chan Snapshot
	closed bool
}

// offer delivers snap without blocking. Called with the job lock held.
// Intermediate updates are dropped when the buffer is full; a final
// snapshot replaces the oldest queued one so it is never lost.
func (s *subscription) offer(snap Snapshot) {
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
		return
	default:
	}
	if !snap.Final() {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *subscription) close() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// subscribe registers a subscriber and queues the current snapshot. A job
// that already completed or faulted yields a closed channel holding its
// final state.
func (j *Job) subscribe() (<-chan Snapshot, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	sub := &subscription{ch: make(chan Snapshot, subscriberBuffer)}
	sub.ch <- j.snapshotLocked()
	if j.status == JobStatusCompleted || j.err != "" {
		sub.close()
		return sub.ch, func() {}
	}
	j.subscribers[sub] = struct{}{}

	unsubscribe := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, ok := j.subscribers[sub]; ok {
			delete(j.subscribers, sub)
			sub.close()
		}
	}
	return sub.ch, unsubscribe
}

func (j *Job) closeSubscribersLocked() {
	for sub := range j.subscribers {
		sub.close()
		delete(j.subscribers, sub)
	}
}
