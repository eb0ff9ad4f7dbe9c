package rating

import "strings"

// Strategy selects how a game type's snapshots translate into ratings.
type Strategy string

const (
	StrategyElo      Strategy = "elo"
	StrategyBestTime Strategy = "besttime"
	StrategyNone     Strategy = "none"
)

// DefaultStrategyForGameType picks the strategy seeded for a game type the
// first time it is seen. Race-style modes report completion times as
// scores, everything else is score-competitive.
func DefaultStrategyForGameType(name string) Strategy {
	lowered := strings.ToLower(name)
	if strings.Contains(lowered, "race") || strings.Contains(lowered, "fastcap") {
		return StrategyBestTime
	}
	return StrategyElo
}
