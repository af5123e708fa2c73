package service

// Default completion thresholds. These are product policy and can be
// overridden through configuration.
const (
	DefaultCompletionRatio            = 0.90
	DefaultCompletionRemainingSeconds = 30
)

// CompletionPolicy decides when a reported position completes a lesson.
type CompletionPolicy struct {
	WatchedRatio     float64 // position/duration at or above this completes
	RemainingSeconds int     // duration-position at or below this completes
}

func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{
		WatchedRatio:     DefaultCompletionRatio,
		RemainingSeconds: DefaultCompletionRemainingSeconds,
	}
}

// Reached reports whether position satisfies either rule. Without a known
// positive duration neither rule applies.
func (p CompletionPolicy) Reached(position int, duration *int) bool {
	if duration == nil || *duration <= 0 || position < 0 {
		return false
	}
	d := *duration
	if float64(position) >= p.WatchedRatio*float64(d) {
		return true
	}
	return d-position <= p.RemainingSeconds
}
