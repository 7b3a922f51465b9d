package call

import (
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

const DefaultRetryDelay = time.Second

type PlaybackAction int

const (
	GiveUp PlaybackAction = iota
	RetryPlayback
)

// PlaybackPolicy is consulted each time the remote surface rejects playback.
// attempt starts at 1.
type PlaybackPolicy interface {
	OnPlaybackFailure(attempt int, err error) (PlaybackAction, time.Duration)
}

// RetryOncePolicy retries a rejected playback exactly once after Delay.
type RetryOncePolicy struct {
	Delay time.Duration
}

func (p RetryOncePolicy) OnPlaybackFailure(attempt int, _ error) (PlaybackAction, time.Duration) {
	if attempt > 1 {
		return GiveUp, 0
	}
	return RetryPlayback, p.Delay
}

func (s *Session) onLocalStream(ls core.LocalStream) {
	s.opts.Preview.Attach(ls)
}

// onRemoteStream swaps the stream on the playback surface and starts it.
// A previously attached, different stream is released first.
func (s *Session) onRemoteStream(rs core.RemoteStream) {
	pb := s.opts.Playback
	if prev := pb.Current(); prev != nil && prev.ID() != rs.ID() {
		s.log.Debug().Str("stream", prev.ID()).Msg("releasing previous remote stream")
		prev.Stop()
	}
	pb.Attach(rs)
	s.log.Info().Str("stream", rs.ID()).Int("tracks", len(rs.Tracks())).Msg("remote stream ready")

	s.stopPlayback()
	s.play(s.playGen, 1)
}

func (s *Session) play(gen, attempt int) {
	go func() {
		err := s.opts.Playback.Play(s.ctx)
		s.resume(func() { s.onPlayed(gen, attempt, err) })
	}()
}

func (s *Session) onPlayed(gen, attempt int, err error) {
	if gen != s.playGen {
		return
	}
	if err == nil {
		s.log.Info().Int("attempt", attempt).Msg("remote playback started")
		s.mutate(func(st *State) { st.RemoteStreamActive = true })
		return
	}

	action, delay := s.opts.Policy.OnPlaybackFailure(attempt, err)
	if action != RetryPlayback {
		s.log.Error().Err(err).Int("attempt", attempt).Msg("remote playback failed")
		return
	}
	s.log.Warn().Err(err).Dur("delay", delay).Msg("remote playback rejected, retrying")
	s.retry = time.AfterFunc(delay, func() {
		s.resume(func() {
			if gen == s.playGen {
				s.play(gen, attempt+1)
			}
		})
	})
}

// stopPlayback invalidates any in-flight playback attempt or pending retry.
func (s *Session) stopPlayback() {
	s.playGen++
	s.cancelRetry()
}

func (s *Session) cancelRetry() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// onCleanup runs when the relay tore the peer connection down.
func (s *Session) onCleanup() {
	s.log.Info().Msg("peer connection cleaned up")
	s.stopPlayback()
	s.mutate(func(st *State) { st.RemoteStreamActive = false })
}

// ToggleAudio flips every local audio track and reports whether audio is
// now muted.
func (s *Session) ToggleAudio() (bool, error) {
	return s.toggle(domain.KindAudio)
}

// ToggleVideo flips every local video track and reports whether video is
// now off.
func (s *Session) ToggleVideo() (bool, error) {
	return s.toggle(domain.KindVideo)
}

func (s *Session) toggle(kind domain.MediaKind) (bool, error) {
	var off bool
	err := s.do(func() error {
		if s.local == nil {
			return ErrNoLocalStream
		}
		for _, t := range core.TracksOf(s.local, kind) {
			t.SetEnabled(!t.Enabled())
		}
		s.mutate(func(st *State) {
			if kind == domain.KindAudio {
				st.AudioMuted = !st.AudioMuted
				off = st.AudioMuted
			} else {
				st.VideoOff = !st.VideoOff
				off = st.VideoOff
			}
		})
		return nil
	})
	return off, err
}
