// Package backoff computes retry delays for the client's retry loop.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before retry attempt n (0-indexed).
type Strategy interface {
	Delay(attempt int, base, max time.Duration, multiplier, jitter float64) time.Duration
}

// Exponential grows the delay geometrically and adds uniform jitter:
// delay = min(base * multiplier^n * (1 + U[0,jitter)), max).
type Exponential struct{}

func (Exponential) Delay(attempt int, base, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^63ns overflows well before attempt 63; clamp the exponent.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(base) * pow(multiplier, attempt))
	if d < 0 || d > max {
		return max
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		d += time.Duration(float64(d) * jitter * rand.Float64())
		if d > max {
			d = max
		}
	}
	return d
}

// Decorrelated implements AWS-style decorrelated jitter: a random delay between
// base and base*3^n, capped at max. Smoother tail latencies than plain
// exponential jitter under heavy contention.
type Decorrelated struct{}

func (Decorrelated) Delay(attempt int, base, max time.Duration, _, _ float64) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 10 {
		attempt = 10
	}

	lo := float64(base)
	hi := lo * pow(3, attempt)
	if hi > float64(max) || hi < lo {
		hi = float64(max)
	}
	if hi < lo {
		hi = lo
	}

	d := time.Duration(lo + rand.Float64()*(hi-lo))
	if d < 0 || d > max {
		d = max
	}
	return d
}

func clampJitter(j float64) float64 {
	if j < 0 {
		return 0
	}
	if j > 1 {
		return 1
	}
	return j
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
