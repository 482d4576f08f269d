package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// sortColumn maps a PostSort to its indexed column. Every sort has a
// matching (community, <column> DESC, id DESC) index so keyset pages are
// pure index scans.
func sortColumn(sort archive.PostSort) (string, error) {
	switch sort {
	case archive.SortNew, "":
		return "created_utc", nil
	case archive.SortTop:
		return "score", nil
	case archive.SortComments:
		return "num_comments", nil
	default:
		return "", fmt.Errorf("unknown post sort %q", sort)
	}
}

// ListPosts returns one page of a community's posts using keyset pagination
// on the (sort key, id) tuple. It fetches limit+1 rows to decide whether a
// next page exists without a separate count.
func (s *PostgresStore) ListPosts(ctx context.Context, community string, sort archive.PostSort, after *archive.Cursor, limit int) ([]model.Post, *archive.Cursor, error) {
	col, err := sortColumn(sort)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 25
	}

	args := []any{community, limit + 1}
	cond := ""
	if after != nil {
		cond = fmt.Sprintf("AND (%s, id) < ($3, $4)", col)
		args = append(args, after.Key, after.ID)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, platform, community, author, title, body, url,
		       score, num_comments, created_utc
		FROM posts
		WHERE community = $1 %s
		ORDER BY %s DESC, id DESC
		LIMIT $2`, cond, col), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("listing posts for %q: %w", community, err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		err := rows.Scan(&p.ID, &p.Platform, &p.Community, &p.Author,
			&p.Title, &p.Body, &p.URL, &p.Score, &p.NumComments, &p.CreatedUTC)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("listing posts for %q: %w", community, err)
	}

	var next *archive.Cursor
	if len(posts) > limit {
		posts = posts[:limit]
		last := posts[limit-1]
		key := last.CreatedUTC
		switch col {
		case "score":
			key = last.Score
		case "num_comments":
			key = last.NumComments
		}
		next = &archive.Cursor{Key: key, ID: last.ID}
	}
	return posts, next, nil
}

// GetPost returns a post by its platform-prefixed ID, or nil if absent.
func (s *PostgresStore) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := s.pool.QueryRow(ctx, `
		SELECT id, platform, community, author, title, body, url,
		       score, num_comments, created_utc, raw
		FROM posts WHERE id = $1`, id).
		Scan(&p.ID, &p.Platform, &p.Community, &p.Author, &p.Title, &p.Body,
			&p.URL, &p.Score, &p.NumComments, &p.CreatedUTC, &p.Raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading post %q: %w", id, err)
	}
	return &p, nil
}

// ThreadComments returns every comment of a post in the order tree assembly
// consumes them: parents before children within each sibling group, siblings
// by score descending with ID as a total tie-break.
func (s *PostgresStore) ThreadComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, COALESCE(parent_id, ''), community, author,
		       body, score, created_utc, COALESCE(parent_title, '')
		FROM comments
		WHERE post_id = $1
		ORDER BY parent_id NULLS FIRST, score DESC, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("reading thread %q: %w", postID, err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Community,
			&c.Author, &c.Body, &c.Score, &c.CreatedUTC, &c.ParentTitle)
		if err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading thread %q: %w", postID, err)
	}
	return comments, nil
}
