package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

type PlaytimeRepository struct {
	db *sqlx.DB
}

func NewPlaytimeRepository(db *sqlx.DB) *PlaytimeRepository {
	return &PlaytimeRepository{db: db}
}

func (r *PlaytimeRepository) AddPlayerTime(ctx context.Context, player string, seconds int64) error {
	return r.add(ctx, "players", []string{"name"}, []any{player}, seconds)
}

func (r *PlaytimeRepository) AddPlayerMapTime(ctx context.Context, player, mapName string, seconds int64) error {
	return r.add(ctx, "player_map_stats", []string{"player_name", "map_name"}, []any{player, mapName}, seconds)
}

func (r *PlaytimeRepository) AddPlayerGameTypeTime(ctx context.Context, player, gameType string, seconds int64) error {
	return r.add(ctx, "player_game_type_stats", []string{"player_name", "game_type_name"}, []any{player, gameType}, seconds)
}

func (r *PlaytimeRepository) AddClanTime(ctx context.Context, clan string, seconds int64) error {
	return r.add(ctx, "clans", []string{"name"}, []any{clan}, seconds)
}

func (r *PlaytimeRepository) AddClanMapTime(ctx context.Context, clan, mapName string, seconds int64) error {
	return r.add(ctx, "clan_map_stats", []string{"clan_name", "map_name"}, []any{clan, mapName}, seconds)
}

func (r *PlaytimeRepository) AddClanGameTypeTime(ctx context.Context, clan, gameType string, seconds int64) error {
	return r.add(ctx, "clan_game_type_stats", []string{"clan_name", "game_type_name"}, []any{clan, gameType}, seconds)
}

func (r *PlaytimeRepository) AddClanPlayerTime(ctx context.Context, clan, player string, seconds int64) error {
	return r.add(ctx, "clan_player_stats", []string{"clan_name", "player_name"}, []any{clan, player}, seconds)
}

func (r *PlaytimeRepository) AddMapTime(ctx context.Context, mapName string, seconds int64) error {
	return r.add(ctx, "maps", []string{"name"}, []any{mapName}, seconds)
}

func (r *PlaytimeRepository) AddGameTypeTime(ctx context.Context, gameType string, seconds int64) error {
	return r.add(ctx, "game_types", []string{"name"}, []any{gameType}, seconds)
}

func (r *PlaytimeRepository) add(ctx context.Context, table string, keyColumns []string, keyValues []any, seconds int64) error {
	if seconds <= 0 {
		return nil
	}

	values := make([]any, 0, len(keyValues)+1)
	values = append(values, keyValues...)
	values = append(values, seconds)

	query, args, err := qb.InsertInto(table).
		Columns(append(append([]string{}, keyColumns...), "play_seconds")...).
		Values(values...).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%s) DO UPDATE SET play_seconds = %s.play_seconds + EXCLUDED.play_seconds",
			strings.Join(keyColumns, ", "), table,
		)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build add playtime query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add %ds playtime to %s: %w", seconds, table, err)
	}
	return nil
}

func (r *PlaytimeRepository) ObserveClanMembership(ctx context.Context, player, clan string, seenAt time.Time) error {
	query, args, err := qb.InsertInto("players").
		Columns("name", "clan_name", "clan_seen_at").
		Values(player, clan, seenAt).
		Suffix("ON CONFLICT (name) DO UPDATE SET clan_name = EXCLUDED.clan_name, clan_seen_at = EXCLUDED.clan_seen_at " +
			"WHERE players.clan_seen_at IS NULL OR players.clan_seen_at < EXCLUDED.clan_seen_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build observe clan membership query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("observe clan membership player=%q clan=%q: %w", player, clan, err)
	}
	return nil
}
