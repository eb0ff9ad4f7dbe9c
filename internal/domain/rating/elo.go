package rating

import (
	"math"
	"time"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
)

const (
	eloK          = 25.0
	eloRatingSpan = 400.0

	// MaxPairGap bounds how far apart two snapshots may be and still be
	// treated as the same session.
	MaxPairGap = 30 * time.Minute

	// minCommonPlayers is the smallest lobby worth rating.
	minCommonPlayers = 2

	// minAvgScoreDelta rejects pairs where everyone lost score on
	// average, which signals a round reset rather than play.
	minAvgScoreDelta = -1.0
)

// ComparableScoreDeltas classifies a pair of consecutive snapshots and, if
// rankable, returns per-player score deltas for the players present and in
// game in both. Placeholder client slots are ignored. The second return is
// false when the pair must not produce a rating update.
func ComparableScoreDeltas(prev, cur snapshot.Snapshot) (map[string]int, bool) {
	if prev.MapName != cur.MapName {
		return nil, false
	}

	elapsed := cur.CreatedAt.Sub(prev.CreatedAt)
	if elapsed <= 0 || elapsed > MaxPairGap {
		return nil, false
	}

	prevScores := inGameScores(prev)
	deltas := make(map[string]int)
	total := 0
	for _, c := range cur.DedupedClients() {
		if !c.IsInGame || c.PlayerName == snapshot.ConnectingName {
			continue
		}
		before, ok := prevScores[c.PlayerName]
		if !ok {
			continue
		}
		deltas[c.PlayerName] = c.Score - before
		total += c.Score - before
	}

	if len(deltas) < minCommonPlayers {
		return nil, false
	}
	if float64(total)/float64(len(deltas)) < minAvgScoreDelta {
		return nil, false
	}

	return deltas, true
}

// EloDeltas computes, for every player, the mean pairwise Elo adjustment
// against every other rated player. Missing ratings default to zero.
func EloDeltas(ratings map[string]float64, scoreDeltas map[string]int) map[string]float64 {
	out := make(map[string]float64, len(scoreDeltas))
	for name, delta := range scoreDeltas {
		sum := 0.0
		count := 0
		for other, otherDelta := range scoreDeltas {
			if other == name {
				continue
			}
			outcome := 0.5
			switch {
			case delta > otherDelta:
				outcome = 1
			case delta < otherDelta:
				outcome = 0
			}
			sum += eloK * (outcome - expectedScore(ratings[name]-ratings[other]))
			count++
		}
		if count == 0 {
			continue
		}
		out[name] = sum / float64(count)
	}
	return out
}

func expectedScore(ratingDiff float64) float64 {
	clamped := math.Max(-eloRatingSpan, math.Min(eloRatingSpan, ratingDiff))
	return 1 / (1 + math.Pow(10, -clamped/eloRatingSpan))
}

func inGameScores(snap snapshot.Snapshot) map[string]int {
	out := make(map[string]int, len(snap.Clients))
	for _, c := range snap.DedupedClients() {
		if !c.IsInGame || c.PlayerName == snapshot.ConnectingName {
			continue
		}
		out[c.PlayerName] = c.Score
	}
	return out
}
