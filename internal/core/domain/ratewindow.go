package domain

// RateWindow is the per-IP sliding window of request timestamps (epoch seconds).
type RateWindow struct {
	Timestamps []int64 `json:"t"`
}

// Prune drops timestamps older than windowSeconds relative to now.
func (w *RateWindow) Prune(now, windowSeconds int64) {
	cutoff := now - windowSeconds
	kept := w.Timestamps[:0]
	for _, ts := range w.Timestamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	w.Timestamps = kept
}

// Count returns the number of timestamps in the window.
func (w *RateWindow) Count() int {
	return len(w.Timestamps)
}

// Add appends a timestamp.
func (w *RateWindow) Add(ts int64) {
	w.Timestamps = append(w.Timestamps, ts)
}
