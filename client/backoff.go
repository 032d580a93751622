package client

import (
	"math/rand"
	"time"
)

// Backoff computes capped exponential retry delays with jitter. Jitter keeps
// multiple plugin instances in the same host from hammering the helper
// socket in lockstep after an outage.
type Backoff struct {
	// Base is the attempt-zero delay.
	Base time.Duration
	// Cap bounds the pre-jitter delay.
	Cap time.Duration
	// Jitter is the symmetric random factor, e.g. 0.1 for ±10%.
	Jitter float64
}

// Delay returns the sleep before retry number attempt (zero-based). The
// pre-jitter value is min(Cap, Base·2^attempt) and therefore non-decreasing;
// the jittered result never exceeds Cap·(1+Jitter).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := b.Cap
	// Shifting beyond 62 bits overflows; past the cap the exact exponent no
	// longer matters.
	if attempt < 32 {
		if shifted := b.Base << uint(attempt); shifted > 0 && shifted < b.Cap {
			d = shifted
		}
	}

	if b.Jitter > 0 {
		factor := 1 + b.Jitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * factor)
	}
	return d
}
