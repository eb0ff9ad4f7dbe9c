package rating

import (
	"math"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
)

// UnfinishedScore is the magnitude race servers report for a player who
// has not completed the map yet.
const UnfinishedScore = 9999

// BestTimeCandidate turns a client row into a best-time rating candidate,
// stored as the negated absolute time so a smaller time is a larger
// rating. The second return is false when the row carries no usable time.
func BestTimeCandidate(c snapshot.Client) (float64, bool) {
	if !c.IsInGame || c.PlayerName == snapshot.ConnectingName {
		return 0, false
	}
	if c.Score == UnfinishedScore || c.Score == -UnfinishedScore {
		return 0, false
	}
	return -math.Abs(float64(c.Score)), true
}
