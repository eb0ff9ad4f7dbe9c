package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teewatch/teewatch/internal/domain/server"
	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

type GameServerRepository struct {
	db *sqlx.DB
}

var gameServerSelectColumns = []string{
	"id",
	"address",
	"port",
	"master_server_id",
	"offline_since",
	"polling_started_at",
	"polled_at",
}

func NewGameServerRepository(db *sqlx.DB) *GameServerRepository {
	return &GameServerRepository{db: db}
}

func (r *GameServerRepository) ClaimStaleBatch(ctx context.Context, staleBefore, now time.Time, limit int) ([]server.GameServer, error) {
	if limit <= 0 {
		return []server.GameServer{}, nil
	}

	query, args, err := qb.Select(gameServerSelectColumns...).
		From("game_servers").
		Where(
			qb.IsNull("polling_started_at"),
			qb.Or(qb.IsNull("polled_at"), qb.Lt("polled_at", staleBefore)),
		).
		OrderBy("polled_at NULLS FIRST", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select stale game servers query: %w", err)
	}

	var rows []gameServerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select stale game servers: %w", err)
	}

	out := make([]server.GameServer, 0, len(rows))
	for _, row := range rows {
		claimed, err := tryClaim(ctx, r.db, "game_servers", "polling_started_at", row.ID, row.PollingStartedAt, now)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}

		claimedAt := now
		out = append(out, server.GameServer{
			ID:               row.ID,
			Address:          row.Address,
			Port:             row.Port,
			MasterServerID:   int64OrZero(row.MasterServerID),
			OfflineSince:     row.OfflineSince,
			PollingStartedAt: &claimedAt,
			PolledAt:         row.PolledAt,
		})
	}

	return out, nil
}

// ReplaceForMaster swaps the master's associations wholesale: servers no
// longer listed are detached (not deleted, their history stays), listed
// ones are inserted or re-pointed at this master.
func (r *GameServerRepository) ReplaceForMaster(ctx context.Context, masterID int64, endpoints []server.Endpoint) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace associations tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := qb.Update("game_servers").
		SetExpr("master_server_id", "NULL").
		Where(qb.Eq("master_server_id", masterID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build detach game servers query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("detach game servers for master=%d: %w", masterID, err)
	}

	for _, endpoint := range endpoints {
		query, args, err := qb.InsertInto("game_servers").
			Columns("address", "port", "master_server_id").
			Values(endpoint.Address, endpoint.Port, masterID).
			Suffix("ON CONFLICT (address, port) DO UPDATE SET master_server_id = EXCLUDED.master_server_id").
			ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert game server query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert game server %s:%d: %w", endpoint.Address, endpoint.Port, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace associations tx: %w", err)
	}
	return nil
}

func (r *GameServerRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.DeleteFrom("game_servers").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete game server query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete game server id=%d: %w", id, err)
	}
	return nil
}

func (r *GameServerRepository) MarkOffline(ctx context.Context, id int64, since time.Time) error {
	query, args, err := qb.Update("game_servers").
		Set("offline_since", since).
		Where(qb.Eq("id", id), qb.IsNull("offline_since")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark offline query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark game server id=%d offline: %w", id, err)
	}
	return nil
}

func (r *GameServerRepository) ClearOffline(ctx context.Context, id int64) error {
	query, args, err := qb.Update("game_servers").
		SetExpr("offline_since", "NULL").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear offline query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear game server id=%d offline marker: %w", id, err)
	}
	return nil
}

func (r *GameServerRepository) CompletePoll(ctx context.Context, id int64, polledAt time.Time) error {
	query, args, err := qb.Update("game_servers").
		SetExpr("polling_started_at", "NULL").
		Set("polled_at", polledAt).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete game poll query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("complete game poll id=%d: %w", id, err)
	}
	return nil
}

func (r *GameServerRepository) ReleaseStuck(ctx context.Context, heldBefore time.Time) (int64, error) {
	return releaseStuck(ctx, r.db, "game_servers", "polling_started_at", heldBefore)
}

func int64OrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
