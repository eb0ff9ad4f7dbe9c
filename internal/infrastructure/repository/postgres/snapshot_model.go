package postgres

import "time"

type snapshotTableModel struct {
	ID                  int64      `db:"id"`
	GameServerID        int64      `db:"game_server_id"`
	CreatedAt           time.Time  `db:"created_at"`
	Name                string     `db:"name"`
	MapName             string     `db:"map_name"`
	GameTypeName        string     `db:"game_type_name"`
	RankingStartedAt    *time.Time `db:"ranking_started_at"`
	RankedAt            *time.Time `db:"ranked_at"`
	PlayTimingStartedAt *time.Time `db:"play_timing_started_at"`
	PlayTimedAt         *time.Time `db:"play_timed_at"`
}

type snapshotClientTableModel struct {
	SnapshotID int64  `db:"snapshot_id"`
	Idx        int    `db:"idx"`
	PlayerName string `db:"player_name"`
	ClanName   string `db:"clan_name"`
	Country    int    `db:"country"`
	Score      int    `db:"score"`
	IsInGame   bool   `db:"is_in_game"`
}
