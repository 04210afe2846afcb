// Package ratelimit implements the per-connection admission limiter
// (spec.md §4.1 step 1) as an explicit state object constructed at
// accept time — the re-architecture spec.md §9 calls for in place of
// the original's socket-carried property bag.
package ratelimit

import "golang.org/x/time/rate"

const (
	// maxFrames is the number of frame arrivals tolerated within window.
	maxFrames = 10
	// windowMillis is the sliding-window width in milliseconds.
	windowMillis = 1000
)

// Window is a fixed-size sliding window over the last maxFrames
// frame-arrival timestamps (unix milliseconds). It is not safe for
// concurrent use — each Window is owned by the single chat event loop
// goroutine that calls Allow on it.
type Window struct {
	arrivals []int64
}

// NewWindow returns an empty sliding window.
func NewWindow() *Window {
	return &Window{arrivals: make([]int64, 0, maxFrames)}
}

// Allow records an arrival at nowMillis and reports whether it should be
// admitted. It returns false (and does not record the arrival) once
// maxFrames arrivals have landed inside windowMillis, per spec.md's
// "if 10 frames arrived within 1000ms, drop the frame silently".
func (w *Window) Allow(nowMillis int64) bool {
	if len(w.arrivals) >= maxFrames {
		oldest := w.arrivals[len(w.arrivals)-maxFrames]
		if nowMillis-oldest < windowMillis {
			return false
		}
	}

	w.arrivals = append(w.arrivals, nowMillis)
	if len(w.arrivals) > maxFrames {
		w.arrivals = w.arrivals[len(w.arrivals)-maxFrames:]
	}
	return true
}

// ProviderThrottle rate-limits outbound identity-provider HTTP calls
// (tokeninfo / OAuth token endpoint) so a burst of reconnects can't
// hammer an external service; this is independent of Window, which
// governs the wire protocol itself.
type ProviderThrottle struct {
	limiter *rate.Limiter
}

// NewProviderThrottle allows up to ratePerSecond requests per second,
// with a burst of the same size.
func NewProviderThrottle(ratePerSecond float64) *ProviderThrottle {
	return &ProviderThrottle{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond))}
}

// Allow reports whether an outbound provider call may proceed now.
func (p *ProviderThrottle) Allow() bool {
	return p.limiter.Allow()
}
