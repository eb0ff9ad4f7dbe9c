package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/teewatch/teewatch/internal/domain/rating"
	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

type RatingRepository struct {
	db *sqlx.DB
}

func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) StrategyFor(ctx context.Context, gameType string) (rating.Strategy, error) {
	query, args, err := qb.Select("rating_strategy").
		From("game_types").
		Where(qb.Eq("name", gameType)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build select rating strategy query: %w", err)
	}

	var raw string
	if err := r.db.GetContext(ctx, &raw, query, args...); err != nil {
		if isNotFound(err) {
			return rating.DefaultStrategyForGameType(gameType), nil
		}
		return "", fmt.Errorf("select rating strategy for game type %q: %w", gameType, err)
	}
	return rating.Strategy(raw), nil
}

func (r *RatingRepository) MapRatings(ctx context.Context, mapName string, players []string) (map[string]float64, error) {
	return r.ratings(ctx, "player_map_stats", "map_name", mapName, players)
}

func (r *RatingRepository) GameTypeRatings(ctx context.Context, gameType string, players []string) (map[string]float64, error) {
	return r.ratings(ctx, "player_game_type_stats", "game_type_name", gameType, players)
}

func (r *RatingRepository) ratings(ctx context.Context, table, scopeColumn, scope string, players []string) (map[string]float64, error) {
	out := make(map[string]float64, len(players))
	for _, name := range players {
		out[name] = 0
	}
	if len(players) == 0 {
		return out, nil
	}

	query, args, err := qb.Select("player_name", "COALESCE(rating, 0) AS rating").
		From(table).
		Where(qb.Eq(scopeColumn, scope), qb.In("player_name", stringSliceToAny(players))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select ratings query: %w", err)
	}

	var rows []struct {
		PlayerName string  `db:"player_name"`
		Rating     float64 `db:"rating"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s ratings for %q: %w", table, scope, err)
	}

	for _, row := range rows {
		out[row.PlayerName] = row.Rating
	}
	return out, nil
}

func (r *RatingRepository) ApplyMapDeltas(ctx context.Context, mapName string, deltas map[string]float64) error {
	return r.applyDeltas(ctx, "player_map_stats", "map_name", mapName, deltas)
}

func (r *RatingRepository) ApplyGameTypeDeltas(ctx context.Context, gameType string, deltas map[string]float64) error {
	return r.applyDeltas(ctx, "player_game_type_stats", "game_type_name", gameType, deltas)
}

func (r *RatingRepository) applyDeltas(ctx context.Context, table, scopeColumn, scope string, deltas map[string]float64) error {
	for player, delta := range deltas {
		query, args, err := qb.InsertInto(table).
			Columns("player_name", scopeColumn, "rating").
			Values(player, scope, delta).
			Suffix(fmt.Sprintf(
				"ON CONFLICT (player_name, %s) DO UPDATE SET rating = COALESCE(%s.rating, 0) + EXCLUDED.rating",
				scopeColumn, table,
			)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build apply rating delta query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("apply rating delta for player=%q scope=%q: %w", player, scope, err)
		}
	}
	return nil
}

func (r *RatingRepository) ImproveMapRating(ctx context.Context, player, mapName string, candidate float64) error {
	// The playtime pass may have created the row already with a NULL
	// rating; NULL counts as "no rating yet", not as a rating of 0.
	query, args, err := qb.InsertInto("player_map_stats").
		Columns("player_name", "map_name", "rating").
		Values(player, mapName, candidate).
		Suffix("ON CONFLICT (player_name, map_name) DO UPDATE SET rating = CASE " +
			"WHEN player_map_stats.rating IS NULL THEN EXCLUDED.rating " +
			"ELSE GREATEST(player_map_stats.rating, EXCLUDED.rating) END").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build improve map rating query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("improve map rating for player=%q map=%q: %w", player, mapName, err)
	}
	return nil
}
