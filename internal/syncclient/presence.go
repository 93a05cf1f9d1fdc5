package syncclient

import (
	"sort"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// presence merges beats from every participant on a table, keyed by
// connection so one player with two tabs counts once per role.
type presence struct {
	entries map[string]protocol.Presence
	ttl     time.Duration
}

func newPresence(ttl time.Duration) *presence {
	return &presence{entries: make(map[string]protocol.Presence), ttl: ttl}
}

func (p *presence) merge(beat protocol.Presence) {
	if beat.Leave {
		delete(p.entries, beat.Key)
		return
	}
	if cur, ok := p.entries[beat.Key]; ok && cur.At.After(beat.At) {
		return
	}
	p.entries[beat.Key] = beat
}

func (p *presence) live(now time.Time) []protocol.Presence {
	var out []protocol.Presence
	for key, beat := range p.entries {
		if now.Sub(beat.At) > p.ttl {
			delete(p.entries, key)
			continue
		}
		out = append(out, beat)
	}
	return out
}

func (p *presence) spectators(now time.Time) int {
	seen := make(map[string]bool)
	for _, beat := range p.live(now) {
		if beat.Role == protocol.RoleSpectator {
			seen[beat.PlayerID] = true
		}
	}
	return len(seen)
}

func (p *presence) online(now time.Time) []string {
	seen := make(map[string]bool)
	for _, beat := range p.live(now) {
		seen[beat.PlayerID] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
