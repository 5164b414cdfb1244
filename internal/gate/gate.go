// Package gate suppresses repeated processing of an unchanged report.
package gate

// Gate remembers the last report timestamp it let through.
// It is not safe for concurrent use; the poller owns it.
type Gate struct {
	lastSeen string
	seen     bool
	failed   bool
}

// New returns a gate with no timestamp observed yet.
func New() *Gate {
	return &Gate{}
}

// HasChanged reports whether current differs from the last timestamp seen and
// records it. The first call always returns true, including for "".
// A timestamp marked failed is let through once more.
func (g *Gate) HasChanged(current string) bool {
	if g.seen && !g.failed && current == g.lastSeen {
		return false
	}
	g.lastSeen = current
	g.seen = true
	g.failed = false
	return true
}

// MarkFailed flags current as not persisted so the next HasChanged(current)
// returns true and the snapshot is retried.
func (g *Gate) MarkFailed(current string) {
	if g.seen && g.lastSeen == current {
		g.failed = true
	}
}

// LastSeen returns the last timestamp let through and whether there is one.
func (g *Gate) LastSeen() (string, bool) {
	return g.lastSeen, g.seen
}

// Pending reports whether the last timestamp is awaiting a retry.
func (g *Gate) Pending() bool {
	return g.failed
}
