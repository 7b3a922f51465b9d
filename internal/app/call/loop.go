package call

import "context"

func (s *Session) run() {
	defer close(s.done)
	for fn := range s.tasks {
		fn()
		s.flush()
	}
}

// runOutbound executes relay operations one at a time, in the order the
// loop issued them, so requests reach the relay in issue order.
func (s *Session) runOutbound() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case op := <-s.outbound:
			ctx, cancel := context.WithTimeout(s.ctx, s.opts.RequestTimeout)
			op(ctx)
			cancel()
		}
	}
}

// post queues fn on the loop. It reports false once the session is closed.
// Never call it from the loop itself.
func (s *Session) post(fn func()) bool {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	if s.stopped {
		return false
	}
	s.tasks <- fn
	return true
}

// resume is post for continuations that must not touch a closing session.
func (s *Session) resume(fn func()) bool {
	return s.post(func() {
		if s.closing {
			return
		}
		fn()
	})
}

// do runs fn on the loop and waits for its result. The snapshot is
// published before do returns.
func (s *Session) do(fn func() error) error {
	errc := make(chan error, 1)
	posted := s.post(func() {
		err := fn()
		s.flush()
		errc <- err
	})
	if !posted {
		return ErrSessionClosed
	}
	return <-errc
}
