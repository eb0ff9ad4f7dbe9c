package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teewatch/teewatch/internal/domain/server"
	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

// claimCandidateWindow is how many stale candidates a single claim attempt
// reads before giving up; losing every race across the window just means
// other workers have the queue covered.
const claimCandidateWindow = 5

type MasterServerRepository struct {
	db *sqlx.DB
}

var masterServerSelectColumns = []string{
	"id",
	"hostname",
	"port",
	"polling_started_at",
	"polled_at",
}

func NewMasterServerRepository(db *sqlx.DB) *MasterServerRepository {
	return &MasterServerRepository{db: db}
}

func (r *MasterServerRepository) Upsert(ctx context.Context, hostname string, port int) error {
	query, args, err := qb.InsertInto("master_servers").
		Columns("hostname", "port").
		Values(hostname, port).
		Suffix("ON CONFLICT (hostname, port) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert master server query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert master server %s:%d: %w", hostname, port, err)
	}
	return nil
}

func (r *MasterServerRepository) ClaimStale(ctx context.Context, staleBefore, now time.Time) (server.MasterServer, bool, error) {
	query, args, err := qb.Select(masterServerSelectColumns...).
		From("master_servers").
		Where(
			qb.IsNull("polling_started_at"),
			qb.Or(qb.IsNull("polled_at"), qb.Lt("polled_at", staleBefore)),
		).
		OrderBy("polled_at NULLS FIRST", "id").
		Limit(claimCandidateWindow).
		ToSQL()
	if err != nil {
		return server.MasterServer{}, false, fmt.Errorf("build select stale masters query: %w", err)
	}

	var rows []masterServerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return server.MasterServer{}, false, fmt.Errorf("select stale masters: %w", err)
	}

	for _, row := range rows {
		claimed, err := tryClaim(ctx, r.db, "master_servers", "polling_started_at", row.ID, row.PollingStartedAt, now)
		if err != nil {
			return server.MasterServer{}, false, err
		}
		if !claimed {
			continue
		}

		claimedAt := now
		return server.MasterServer{
			ID:               row.ID,
			Hostname:         row.Hostname,
			Port:             row.Port,
			PollingStartedAt: &claimedAt,
			PolledAt:         row.PolledAt,
		}, true, nil
	}

	return server.MasterServer{}, false, nil
}

func (r *MasterServerRepository) CompletePoll(ctx context.Context, id int64, polledAt time.Time) error {
	query, args, err := qb.Update("master_servers").
		SetExpr("polling_started_at", "NULL").
		Set("polled_at", polledAt).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete master poll query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("complete master poll id=%d: %w", id, err)
	}
	return nil
}

func (r *MasterServerRepository) ReleaseStuck(ctx context.Context, heldBefore time.Time) (int64, error) {
	return releaseStuck(ctx, r.db, "master_servers", "polling_started_at", heldBefore)
}
