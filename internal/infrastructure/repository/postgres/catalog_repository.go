package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/teewatch/teewatch/internal/domain/rating"
	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) EnsureMap(ctx context.Context, name string) error {
	query, args, err := qb.InsertInto("maps").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build ensure map query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure map %q: %w", name, err)
	}
	return nil
}

func (r *CatalogRepository) EnsureGameType(ctx context.Context, name string) error {
	query, args, err := qb.InsertInto("game_types").
		Columns("name", "rating_strategy").
		Values(name, string(rating.DefaultStrategyForGameType(name))).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build ensure game type query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure game type %q: %w", name, err)
	}
	return nil
}

func (r *CatalogRepository) EnsurePlayers(ctx context.Context, names []string) error {
	return r.ensureNames(ctx, "players", names)
}

func (r *CatalogRepository) EnsureClans(ctx context.Context, names []string) error {
	return r.ensureNames(ctx, "clans", names)
}

func (r *CatalogRepository) ensureNames(ctx context.Context, table string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	builder := qb.InsertInto(table).Columns("name")
	for _, name := range names {
		builder.Values(name)
	}
	query, args, err := builder.
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build ensure %s query: %w", table, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure %d %s rows: %w", len(names), table, err)
	}
	return nil
}
