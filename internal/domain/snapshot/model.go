package snapshot

import "time"

// ConnectingName is the placeholder the game uses for a client slot whose
// player has not finished joining. Such rows never take part in rating.
const ConnectingName = "(connecting)"

// Client is one row of a snapshot's client table as reported on the wire.
type Client struct {
	PlayerName string
	ClanName   string
	Country    int
	Score      int
	IsInGame   bool
}

// Snapshot is an immutable observation of one game server. Only the
// lease/progress markers change after creation.
type Snapshot struct {
	ID           int64
	GameServerID int64
	CreatedAt    time.Time
	Name         string
	MapName      string
	GameTypeName string
	Clients      []Client

	RankingStartedAt    *time.Time
	RankedAt            *time.Time
	PlayTimingStartedAt *time.Time
	PlayTimedAt         *time.Time
}

// DedupedClients drops repeated player names, keeping the first
// occurrence. Servers occasionally report the same name twice within one
// reply.
func (s Snapshot) DedupedClients() []Client {
	seen := make(map[string]struct{}, len(s.Clients))
	out := make([]Client, 0, len(s.Clients))
	for _, c := range s.Clients {
		if _, ok := seen[c.PlayerName]; ok {
			continue
		}
		seen[c.PlayerName] = struct{}{}
		out = append(out, c)
	}
	return out
}
