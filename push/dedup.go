package push

import (
	"time"

	ttlworker "github.com/FloatTech/ttl"
)

// Deduper suppresses re-delivered mirror notifications. Phones resend
// the same mirrored notification across reconnects; the key (package
// plus notification id) is remembered for a short window. In-memory
// only, nothing survives a restart.
type Deduper struct {
	cache *ttlworker.Cache[string, bool]
}

func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{cache: ttlworker.NewCache[string, bool](window)}
}

// Seen reports whether key was recorded within the window, and records
// it. Empty keys are never deduplicated.
func (d *Deduper) Seen(key string) bool {
	if key == "" {
		return false
	}
	if d.cache.Get(key) {
		return true
	}
	d.cache.Set(key, true)
	return false
}
