package playtime

import "time"

const (
	// suspiciousGap is the elapsed time beyond which we assume polls were
	// missed and stop trusting the delta.
	suspiciousGap = 600 * time.Second

	// cappedSeconds is credited instead of the real delta after a gap.
	cappedSeconds = 300
)

// ElapsedSeconds converts the time between two consecutive snapshots into
// creditable playtime. Gaps beyond 600s are credited as a flat 300s so a
// run of missed polls cannot inflate the counters.
func ElapsedSeconds(delta time.Duration) int64 {
	if delta <= 0 {
		return 0
	}
	if delta > suspiciousGap {
		return cappedSeconds
	}
	return int64(delta / time.Second)
}
