package call

import "github.com/dkeye/roomcast/internal/domain"

// Reconnect re-runs the viewer join on the existing relay session. The
// subscription gate is reset first so the next announced feed is
// subscribed exactly once.
func (s *Session) Reconnect() error {
	if s.opts.Role != domain.RoleViewer {
		return ErrNotViewer
	}
	return s.do(func() error {
		if s.handle == nil || s.closing {
			return ErrNotAttached
		}
		s.log.Info().Msg("reconnecting viewer")
		s.resetSubscription()
		s.stopPlayback()
		s.clearError()
		s.mutate(func(st *State) { st.RemoteStreamActive = false })
		s.setPhase(PhaseRelayAttached)
		s.joinAsViewer()
		return nil
	})
}
