package store

import (
	"context"
	"fmt"
	"strings"

	"redarch/internal/archive"
)

const headlineOptions = "MaxWords=50, MinWords=25, MaxFragments=1"

// searchBuilder accumulates positional arguments while the UNION query is
// assembled, so each filter appears exactly once per branch.
type searchBuilder struct {
	args []any
}

func (b *searchBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// branchFilters renders the shared filter predicates against the given table
// alias.
func (b *searchBuilder) branchFilters(alias string, q archive.SearchQuery) []string {
	var conds []string
	if q.Community != "" {
		conds = append(conds, fmt.Sprintf("lower(%s.community) = lower(%s)", alias, b.bind(q.Community)))
	}
	if q.Author != "" {
		conds = append(conds, fmt.Sprintf("%s.author = %s", alias, b.bind(q.Author)))
	}
	if q.MinScore != 0 {
		conds = append(conds, fmt.Sprintf("%s.score >= %s", alias, b.bind(q.MinScore)))
	}
	if q.StartDate != 0 {
		conds = append(conds, fmt.Sprintf("%s.created_utc >= %s", alias, b.bind(q.StartDate)))
	}
	if q.EndDate != 0 {
		conds = append(conds, fmt.Sprintf("%s.created_utc <= %s", alias, b.bind(q.EndDate)))
	}
	return conds
}

func searchOrder(orderBy string) string {
	switch orderBy {
	case "score":
		return "score DESC, id"
	case "date":
		return "created_utc DESC, id"
	default:
		return "rank DESC, score DESC, id"
	}
}

// Search runs one full-text query over posts and comments and returns one
// merged, ranked page plus the total hit count. A query text of "*" matches
// everything so filters can be used on their own.
func (s *PostgresStore) Search(ctx context.Context, q archive.SearchQuery) ([]archive.SearchResult, int64, error) {
	ctx, cancel := s.aggregateCtx(ctx)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}
	matchAll := strings.TrimSpace(q.QueryText) == "" || q.QueryText == "*"

	b := &searchBuilder{}
	var tsParam string
	if !matchAll {
		tsParam = b.bind(q.QueryText)
	}

	var branches []string
	if q.ResultType == "" || q.ResultType == "post" {
		conds := b.branchFilters("p", q)
		rank, headline := "0::float4", "left(p.title || ' ' || p.body, 200)"
		if !matchAll {
			conds = append(conds,
				fmt.Sprintf("p.search_vector @@ websearch_to_tsquery('english', %s)", tsParam))
			rank = fmt.Sprintf("ts_rank(p.search_vector, websearch_to_tsquery('english', %s))", tsParam)
			headline = fmt.Sprintf(
				"ts_headline('english', p.title || ' ' || p.body, websearch_to_tsquery('english', %s), '%s')",
				tsParam, headlineOptions)
		}
		where := ""
		if len(conds) > 0 {
			where = "WHERE " + strings.Join(conds, " AND ")
		}
		branches = append(branches, fmt.Sprintf(`
			SELECT 'post' AS result_type, p.id, p.community, p.platform,
			       p.author, p.created_utc, p.score,
			       p.title, p.body, p.num_comments, p.url,
			       '' AS post_id, '' AS parent_title,
			       %s AS rank, %s AS headline
			FROM posts p
			%s`, rank, headline, where))
	}
	if q.ResultType == "" || q.ResultType == "comment" {
		conds := b.branchFilters("c", q)
		rank, headline := "0::float4", "left(c.body, 200)"
		if !matchAll {
			conds = append(conds,
				fmt.Sprintf("c.search_vector @@ websearch_to_tsquery('english', %s)", tsParam))
			rank = fmt.Sprintf("ts_rank(c.search_vector, websearch_to_tsquery('english', %s))", tsParam)
			headline = fmt.Sprintf(
				"ts_headline('english', c.body, websearch_to_tsquery('english', %s), '%s')",
				tsParam, headlineOptions)
		}
		where := ""
		if len(conds) > 0 {
			where = "WHERE " + strings.Join(conds, " AND ")
		}
		branches = append(branches, fmt.Sprintf(`
			SELECT 'comment' AS result_type, c.id, c.community,
			       split_part(c.id, '_', 1) AS platform,
			       c.author, c.created_utc, c.score,
			       '' AS title, c.body, 0::bigint AS num_comments, '' AS url,
			       c.post_id, COALESCE(c.parent_title, '') AS parent_title,
			       %s AS rank, %s AS headline
			FROM comments c
			%s`, rank, headline, where))
	}
	if len(branches) == 0 {
		return nil, 0, fmt.Errorf("unknown result type %q", q.ResultType)
	}

	sql := fmt.Sprintf(`
		SELECT result_type, id, community, platform, author, created_utc,
		       score, title, body, num_comments, url, post_id, parent_title,
		       rank, headline, count(*) OVER () AS total
		FROM (%s) hits
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		strings.Join(branches, "\nUNION ALL\n"),
		searchOrder(q.OrderBy), b.bind(limit), b.bind(q.Offset))

	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("running search: %w", mapQueryErr(err))
	}
	defer rows.Close()

	var results []archive.SearchResult
	var total int64
	for rows.Next() {
		var r archive.SearchResult
		err := rows.Scan(&r.ResultType, &r.ID, &r.Community, &r.Platform,
			&r.Author, &r.CreatedUTC, &r.Score, &r.Title, &r.Body,
			&r.NumComments, &r.URL, &r.PostID, &r.ParentTitle,
			&r.Rank, &r.Headline, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning search hit: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("running search: %w", mapQueryErr(err))
	}
	return results, total, nil
}

// Stats reports cross-table totals under the store's statement timeout.
func (s *PostgresStore) Stats(ctx context.Context) (*archive.ArchiveStats, error) {
	ctx, cancel := s.aggregateCtx(ctx)
	defer cancel()

	stats := &archive.ArchiveStats{ByPlatform: make(map[string]int64)}
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM posts),
		       (SELECT count(*) FROM comments),
		       (SELECT count(*) FROM users),
		       pg_database_size(current_database())`).
		Scan(&stats.Posts, &stats.Comments, &stats.Users, &stats.DatabaseSize)
	if err != nil {
		return nil, fmt.Errorf("reading archive totals: %w", mapQueryErr(err))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT platform, count(*) FROM posts GROUP BY platform
		UNION ALL
		SELECT split_part(id, '_', 1), count(*) FROM comments GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("reading per-platform counts: %w", mapQueryErr(err))
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		var count int64
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("scanning platform count: %w", err)
		}
		stats.ByPlatform[platform] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading per-platform counts: %w", mapQueryErr(err))
	}
	return stats, nil
}
