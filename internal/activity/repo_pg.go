package activity

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Append inserts a new event.
func (r *PGRepo) Append(ctx context.Context, e Event) error {
	if err := validate(e); err != nil {
		return err
	}
	const query = `
INSERT INTO file_events (
    id,
    user_name,
    file_name,
    object_key,
    action,
    size_bytes,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		e.ID,
		e.UserName,
		e.FileName,
		e.ObjectKey,
		string(e.Action),
		e.SizeBytes,
		e.CreatedAt,
	)
	return err
}

// ListByUser returns up to limit events for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userName string, limit int) ([]Event, error) {
	const query = `
SELECT id, user_name, file_name, object_key, action, size_bytes, created_at
FROM file_events
WHERE user_name = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, userName, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.UserName, &e.FileName, &e.ObjectKey, &action, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

var _ Repo = (*PGRepo)(nil)
