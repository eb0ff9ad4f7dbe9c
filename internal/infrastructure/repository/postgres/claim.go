package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	qb "github.com/teewatch/teewatch/internal/platform/querybuilder"
)

// tryClaim is the single synchronization primitive of the pipeline: an
// optimistic conditional update that sets the lease column to now, guarded
// on the value observed when the candidate row was read. Zero affected
// rows means another worker won the race; callers treat that as "no work",
// never as an error.
func tryClaim(ctx context.Context, db sqlx.ExtContext, table, leaseColumn string, id int64, observed *time.Time, now time.Time) (bool, error) {
	conditions := []qb.Condition{qb.Eq("id", id)}
	if observed == nil {
		conditions = append(conditions, qb.IsNull(leaseColumn))
	} else {
		conditions = append(conditions, qb.Eq(leaseColumn, *observed))
	}

	query, args, err := qb.Update(table).
		Set(leaseColumn, now).
		Where(conditions...).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build claim query for %s: %w", table, err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim %s id=%d: %w", table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim %s id=%d rows affected: %w", table, id, err)
	}
	return affected == 1, nil
}

// releaseStuck clears lease columns held since before the cutoff. Used by
// the reaper to return work abandoned by crashed workers to the pool.
func releaseStuck(ctx context.Context, db sqlx.ExtContext, table, leaseColumn string, heldBefore time.Time, extra ...qb.Condition) (int64, error) {
	conditions := append([]qb.Condition{qb.Lt(leaseColumn, heldBefore)}, extra...)

	query, args, err := qb.Update(table).
		SetExpr(leaseColumn, "NULL").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build release query for %s: %w", table, err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("release stuck %s leases: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stuck %s rows affected: %w", table, err)
	}
	return affected, nil
}
