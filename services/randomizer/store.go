package randomizer

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Store keeps the randomizer's only persistent state: the post id
// cursor marking how far the id space has been searched, and a log of
// the shares it published.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Cursor returns the last post id the randomizer considered, or 0
// when it has never run.
func (s Store) Cursor(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT last_post_id FROM cursor WHERE id = 0`)
	var last int64
	err := row.Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last, nil
}

func (s Store) SetCursor(ctx context.Context, lastPostID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cursor (id, last_post_id) VALUES (0, ?)
		ON CONFLICT (id) DO UPDATE SET last_post_id = excluded.last_post_id
	`, lastPostID)
	return err
}

type ShareRecord struct {
	SharePostID  int64
	SourcePostID int64
	SourceHandle string
	VerifiedTag  string
	SharedAt     time.Time
}

func (s Store) RecordShare(ctx context.Context, rec ShareRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (share_post_id, source_post_id, source_handle, verified_tag, shared_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.SharePostID, rec.SourcePostID, rec.SourceHandle, rec.VerifiedTag, rec.SharedAt.Unix())
	return err
}

func (s Store) Shares(ctx context.Context) ([]ShareRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT share_post_id, source_post_id, source_handle, verified_tag, shared_at
		FROM shares ORDER BY share_post_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShareRecord
	for rows.Next() {
		var rec ShareRecord
		var sharedAt int64
		err = rows.Scan(&rec.SharePostID, &rec.SourcePostID, &rec.SourceHandle, &rec.VerifiedTag, &sharedAt)
		if err != nil {
			return nil, err
		}
		rec.SharedAt = time.Unix(sharedAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
