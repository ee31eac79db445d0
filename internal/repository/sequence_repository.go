package repository

import (
	"context"
	"database/sql"
)

// SequenceRepo implements Sequencer on the counters table. The increment and
// the read happen in one statement, so concurrent callers never observe the
// same value.
type SequenceRepo struct{ db *sql.DB }

func NewSequenceRepo(db *sql.DB) *SequenceRepo { return &SequenceRepo{db: db} }

func (r *SequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES (?, LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
