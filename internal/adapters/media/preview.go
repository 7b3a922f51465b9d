package media

import (
	"sync"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/rs/zerolog/log"
)

// LogPreview stands in for a local video element: it only reports what
// would be shown.
type LogPreview struct {
	mu   sync.Mutex
	last string
}

var _ core.LocalSurface = (*LogPreview)(nil)

func (p *LogPreview) Attach(ls core.LocalStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ls == nil || ls.ID() == p.last {
		return
	}
	p.last = ls.ID()

	kinds := make([]string, 0, 2)
	for _, t := range ls.Tracks() {
		kinds = append(kinds, string(t.Kind()))
	}
	log.Info().
		Str("module", "media.preview").
		Str("stream", ls.ID()).
		Strs("tracks", kinds).
		Msg("local preview")
}
