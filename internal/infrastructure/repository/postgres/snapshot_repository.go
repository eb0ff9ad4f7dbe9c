package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

type SnapshotRepository struct {
	db *sqlx.DB
}

var snapshotSelectColumns = []string{
	"id",
	"game_server_id",
	"created_at",
	"name",
	"map_name",
	"game_type_name",
	"ranking_started_at",
	"ranked_at",
	"play_timing_started_at",
	"play_timed_at",
}

var snapshotClientSelectColumns = []string{
	"snapshot_id",
	"idx",
	"player_name",
	"clan_name",
	"country",
	"score",
	"is_in_game",
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Insert(ctx context.Context, snap snapshot.Snapshot) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := qb.InsertInto("snapshots").
		Columns("game_server_id", "created_at", "name", "map_name", "game_type_name").
		Values(snap.GameServerID, snap.CreatedAt, snap.Name, snap.MapName, snap.GameTypeName).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert snapshot query: %w", err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("insert snapshot for server=%d: %w", snap.GameServerID, err)
	}

	if len(snap.Clients) > 0 {
		builder := qb.InsertInto("snapshot_clients").
			Columns("snapshot_id", "idx", "player_name", "clan_name", "country", "score", "is_in_game")
		for i, c := range snap.Clients {
			builder.Values(id, i, c.PlayerName, c.ClanName, c.Country, c.Score, c.IsInGame)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build insert snapshot clients query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert snapshot clients for snapshot=%d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert snapshot tx: %w", err)
	}
	return id, nil
}

func (r *SnapshotRepository) ClaimForRanking(ctx context.Context, now time.Time, limit int) ([]snapshot.Snapshot, error) {
	return r.claimBatch(ctx, "ranking_started_at", "ranked_at", now, limit)
}

func (r *SnapshotRepository) ClaimForPlaytime(ctx context.Context, now time.Time, limit int) ([]snapshot.Snapshot, error) {
	return r.claimBatch(ctx, "play_timing_started_at", "play_timed_at", now, limit)
}

func (r *SnapshotRepository) claimBatch(ctx context.Context, leaseColumn, doneColumn string, now time.Time, limit int) ([]snapshot.Snapshot, error) {
	if limit <= 0 {
		return []snapshot.Snapshot{}, nil
	}

	query, args, err := qb.Select(snapshotSelectColumns...).
		From("snapshots").
		Where(qb.IsNull(leaseColumn), qb.IsNull(doneColumn)).
		OrderBy("created_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select unprocessed snapshots query: %w", err)
	}

	var rows []snapshotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select unprocessed snapshots: %w", err)
	}

	claimed := make([]snapshotTableModel, 0, len(rows))
	for _, row := range rows {
		ok, err := tryClaim(ctx, r.db, "snapshots", leaseColumn, row.ID, nil, now)
		if err != nil {
			return nil, err
		}
		if ok {
			claimed = append(claimed, row)
		}
	}

	return r.attachClients(ctx, claimed)
}

func (r *SnapshotRepository) PreviousOf(ctx context.Context, snap snapshot.Snapshot) (snapshot.Snapshot, bool, error) {
	query, args, err := qb.Select(snapshotSelectColumns...).
		From("snapshots").
		Where(
			qb.Eq("game_server_id", snap.GameServerID),
			qb.Lt("created_at", snap.CreatedAt),
		).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select previous snapshot query: %w", err)
	}

	var row snapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return snapshot.Snapshot{}, false, nil
		}
		return snapshot.Snapshot{}, false, fmt.Errorf("select previous snapshot for server=%d: %w", snap.GameServerID, err)
	}

	out, err := r.attachClients(ctx, []snapshotTableModel{row})
	if err != nil {
		return snapshot.Snapshot{}, false, err
	}
	return out[0], true, nil
}

func (r *SnapshotRepository) MarkRanked(ctx context.Context, id int64, at time.Time) error {
	return r.markDone(ctx, "ranked_at", id, at)
}

func (r *SnapshotRepository) MarkPlayTimed(ctx context.Context, id int64, at time.Time) error {
	return r.markDone(ctx, "play_timed_at", id, at)
}

func (r *SnapshotRepository) markDone(ctx context.Context, doneColumn string, id int64, at time.Time) error {
	query, args, err := qb.Update("snapshots").
		Set(doneColumn, at).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark %s query: %w", doneColumn, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark snapshot id=%d %s: %w", id, doneColumn, err)
	}
	return nil
}

func (r *SnapshotRepository) ReleaseStuckRanking(ctx context.Context, heldBefore time.Time) (int64, error) {
	return releaseStuck(ctx, r.db, "snapshots", "ranking_started_at", heldBefore, qb.IsNull("ranked_at"))
}

func (r *SnapshotRepository) ReleaseStuckPlaytime(ctx context.Context, heldBefore time.Time) (int64, error) {
	return releaseStuck(ctx, r.db, "snapshots", "play_timing_started_at", heldBefore, qb.IsNull("play_timed_at"))
}

func (r *SnapshotRepository) attachClients(ctx context.Context, rows []snapshotTableModel) ([]snapshot.Snapshot, error) {
	out := make([]snapshot.Snapshot, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	query, args, err := qb.Select(snapshotClientSelectColumns...).
		From("snapshot_clients").
		Where(qb.In("snapshot_id", int64SliceToAny(ids))).
		OrderBy("snapshot_id", "idx").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select snapshot clients query: %w", err)
	}

	var clientRows []snapshotClientTableModel
	if err := r.db.SelectContext(ctx, &clientRows, query, args...); err != nil {
		return nil, fmt.Errorf("select snapshot clients: %w", err)
	}

	clientsBySnapshot := make(map[int64][]snapshot.Client, len(rows))
	for _, c := range clientRows {
		clientsBySnapshot[c.SnapshotID] = append(clientsBySnapshot[c.SnapshotID], snapshot.Client{
			PlayerName: c.PlayerName,
			ClanName:   c.ClanName,
			Country:    c.Country,
			Score:      c.Score,
			IsInGame:   c.IsInGame,
		})
	}

	for _, row := range rows {
		out = append(out, snapshot.Snapshot{
			ID:                  row.ID,
			GameServerID:        row.GameServerID,
			CreatedAt:           row.CreatedAt,
			Name:                row.Name,
			MapName:             row.MapName,
			GameTypeName:        row.GameTypeName,
			Clients:             clientsBySnapshot[row.ID],
			RankingStartedAt:    row.RankingStartedAt,
			RankedAt:            row.RankedAt,
			PlayTimingStartedAt: row.PlayTimingStartedAt,
			PlayTimedAt:         row.PlayTimedAt,
		})
	}
	return out, nil
}
