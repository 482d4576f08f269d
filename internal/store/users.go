package store

import (
	"context"
	"fmt"

	"redarch/internal/model"
)

// RefreshUsers rebuilds the users table from scratch with one set-based
// aggregate over posts and comments. Returns the number of users present
// after the rebuild.
func (s *PostgresStore) RefreshUsers(ctx context.Context) (int64, error) {
	ctx, cancel := s.aggregateCtx(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning user refresh: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE users`); err != nil {
		return 0, fmt.Errorf("clearing users: %w", mapQueryErr(err))
	}

	tag, err := tx.Exec(ctx, `
		WITH post_stats AS (
			SELECT author,
			       count(*)         AS post_count,
			       sum(score)       AS total_score,
			       min(created_utc) AS first_seen,
			       max(created_utc) AS last_seen
			FROM posts
			GROUP BY author
		), comment_stats AS (
			SELECT author,
			       count(*)         AS comment_count,
			       sum(score)       AS total_score,
			       min(created_utc) AS first_seen,
			       max(created_utc) AS last_seen
			FROM comments
			GROUP BY author
		)
		INSERT INTO users
			(username, post_count, comment_count, total_score,
			 total_activity, first_seen, last_seen)
		SELECT COALESCE(p.author, c.author),
		       COALESCE(p.post_count, 0),
		       COALESCE(c.comment_count, 0),
		       COALESCE(p.total_score, 0) + COALESCE(c.total_score, 0),
		       COALESCE(p.post_count, 0) + COALESCE(c.comment_count, 0),
		       LEAST(COALESCE(p.first_seen, c.first_seen),
		             COALESCE(c.first_seen, p.first_seen)),
		       GREATEST(COALESCE(p.last_seen, c.last_seen),
		                COALESCE(c.last_seen, p.last_seen))
		FROM post_stats p
		FULL OUTER JOIN comment_stats c ON c.author = p.author`)
	if err != nil {
		return 0, fmt.Errorf("rebuilding user aggregates: %w", mapQueryErr(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing user refresh: %w", mapQueryErr(err))
	}
	return tag.RowsAffected(), nil
}

// ListUsersAfter returns up to limit users with username > after, ordered by
// username. The export producer walks the whole table with this keyset page.
func (s *PostgresStore) ListUsersAfter(ctx context.Context, after string, limit int) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, post_count, comment_count, total_score,
		       total_activity, first_seen, last_seen
		FROM users
		WHERE username > $1
		ORDER BY username
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("listing users after %q: %w", after, err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		err := rows.Scan(&u.Username, &u.PostCount, &u.CommentCount,
			&u.TotalScore, &u.TotalActivity, &u.FirstSeen, &u.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing users after %q: %w", after, err)
	}
	return users, nil
}
