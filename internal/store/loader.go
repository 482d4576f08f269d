package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"redarch/internal/archive"
	"redarch/internal/model"
)

var postLoadColumns = []string{
	"id", "platform", "community", "author", "title", "body",
	"url", "score", "num_comments", "created_utc", "raw",
}

var commentLoadColumns = []string{
	"id", "post_id", "parent_id", "community", "author", "body",
	"score", "created_utc", "raw",
}

// LoadPosts copies the batch into a transaction-scoped temp table, merges it
// into posts with duplicate IDs left unchanged, and advances the stage
// checkpoint in the same transaction.
func (s *PostgresStore) LoadPosts(ctx context.Context, batch []model.Post, stage, cursor string) (model.LoadResult, error) {
	var result model.LoadResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		CREATE TEMP TABLE posts_load (
			id           text,
			platform     text,
			community    text,
			author       text,
			title        text,
			body         text,
			url          text,
			score        bigint,
			num_comments bigint,
			created_utc  bigint,
			raw          jsonb
		) ON COMMIT DROP`)
	if err != nil {
		return result, fmt.Errorf("creating posts staging table: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"posts_load"}, postLoadColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			p := batch[i]
			return []any{
				p.ID, p.Platform, p.Community, p.Author, p.Title, p.Body,
				p.URL, p.Score, p.NumComments, p.CreatedUTC, p.Raw,
			}, nil
		}))
	if err != nil {
		return result, fmt.Errorf("copying %d posts: %w", len(batch), err)
	}

	row := tx.QueryRow(ctx, `
		WITH merged AS (
			INSERT INTO posts
				(id, platform, community, author, title, body, url,
				 score, num_comments, created_utc, raw)
			SELECT DISTINCT ON (id)
				id, platform, community, author, title, body, url,
				score, num_comments, created_utc, raw
			FROM posts_load
			ON CONFLICT (id) DO NOTHING
			RETURNING 1
		)
		SELECT count(*) FROM merged`)
	if err := row.Scan(&result.Inserted); err != nil {
		return result, fmt.Errorf("merging posts: %w", err)
	}
	result.Conflicted = int64(len(batch)) - result.Inserted

	if err := putCheckpointTx(ctx, tx, stage, cursor); err != nil {
		return result, err
	}
	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("committing post batch: %w", err)
	}
	return result, nil
}

// LoadComments is LoadPosts for comments, with two extra steps done in SQL:
// the parent post's title is denormalized onto each comment, and comments
// whose parent is absent get the fallback community and are counted as
// orphans.
func (s *PostgresStore) LoadComments(ctx context.Context, batch []model.Comment, stage, cursor string) (model.LoadResult, error) {
	var result model.LoadResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		CREATE TEMP TABLE comments_load (
			id          text,
			post_id     text,
			parent_id   text,
			community   text,
			author      text,
			body        text,
			score       bigint,
			created_utc bigint,
			raw         jsonb
		) ON COMMIT DROP`)
	if err != nil {
		return result, fmt.Errorf("creating comments staging table: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"comments_load"}, commentLoadColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			c := batch[i]
			return []any{
				c.ID, c.PostID, c.ParentID, c.Community, c.Author, c.Body,
				c.Score, c.CreatedUTC, c.Raw,
			}, nil
		}))
	if err != nil {
		return result, fmt.Errorf("copying %d comments: %w", len(batch), err)
	}

	row := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM comments_load l
		LEFT JOIN posts p ON p.id = l.post_id
		WHERE p.id IS NULL`)
	if err := row.Scan(&result.Orphans); err != nil {
		return result, fmt.Errorf("counting orphaned comments: %w", err)
	}

	row = tx.QueryRow(ctx, fmt.Sprintf(`
		WITH merged AS (
			INSERT INTO comments
				(id, post_id, parent_id, community, author, body,
				 score, created_utc, raw, parent_title)
			SELECT DISTINCT ON (l.id)
				l.id, l.post_id, NULLIF(l.parent_id, ''),
				CASE WHEN p.id IS NULL THEN '%s'
				     ELSE COALESCE(NULLIF(l.community, ''), p.community)
				END,
				l.author, l.body, l.score, l.created_utc, l.raw, p.title
			FROM comments_load l
			LEFT JOIN posts p ON p.id = l.post_id
			ON CONFLICT (id) DO NOTHING
			RETURNING 1
		)
		SELECT count(*) FROM merged`, archive.FallbackCommunity))
	if err := row.Scan(&result.Inserted); err != nil {
		return result, fmt.Errorf("merging comments: %w", err)
	}
	result.Conflicted = int64(len(batch)) - result.Inserted

	if err := putCheckpointTx(ctx, tx, stage, cursor); err != nil {
		return result, err
	}
	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("committing comment batch: %w", err)
	}
	return result, nil
}
