package upstream

import "time"

// Backoff is the sticky escalation state applied on repeated rate-limit
// signals. It only grows until Reset. Not safe for concurrent use; the
// client guards it together with its block window.
type Backoff struct {
	Floor   time.Duration
	Ceiling time.Duration

	current time.Duration
}

// Escalate advances the state (floor first, then doubling up to the
// ceiling) and returns the wait to apply: max(requested, state).
func (b *Backoff) Escalate(requested time.Duration) time.Duration {
	if b.current == 0 {
		b.current = b.Floor
	} else {
		b.current = min(b.current*2, b.Ceiling)
	}
	return max(requested, b.current)
}

func (b *Backoff) Current() time.Duration { return b.current }

func (b *Backoff) Reset() { b.current = 0 }
