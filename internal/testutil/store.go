package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// MemoryStore is an in-memory archive.Store for tests. It mirrors the
// Postgres store's observable behavior: ID conflicts leave rows unchanged,
// comment loads fill parent titles and count orphans, and every batch load
// advances the stage checkpoint.
type MemoryStore struct {
	mu          sync.Mutex
	posts       map[string]model.Post
	comments    map[string]model.Comment
	users       []model.User
	checkpoints map[string]model.Checkpoint

	// LoadErr, when set, fails every Load call.
	LoadErr error
	// FailAfterLoads, when > 0, fails the Nth+1 Load call and later ones.
	FailAfterLoads int

	loadCalls     int
	userPageCalls int
	// PostBatches and CommentBatches record the batches each Load received.
	PostBatches    [][]model.Post
	CommentBatches [][]model.Comment
}

var _ archive.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:       make(map[string]model.Post),
		comments:    make(map[string]model.Comment),
		checkpoints: make(map[string]model.Checkpoint),
	}
}

func (m *MemoryStore) loadGate() error {
	m.loadCalls++
	if m.LoadErr != nil {
		return m.LoadErr
	}
	if m.FailAfterLoads > 0 && m.loadCalls > m.FailAfterLoads {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MemoryStore) LoadPosts(ctx context.Context, batch []model.Post, stage, cursor string) (model.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadGate(); err != nil {
		return model.LoadResult{}, err
	}
	m.PostBatches = append(m.PostBatches, append([]model.Post(nil), batch...))

	var res model.LoadResult
	for _, p := range batch {
		if _, ok := m.posts[p.ID]; ok {
			res.Conflicted++
			continue
		}
		m.posts[p.ID] = p
		res.Inserted++
	}
	m.checkpoints[stage] = model.Checkpoint{Stage: stage, Cursor: cursor, UpdatedAt: time.Now()}
	return res, nil
}

func (m *MemoryStore) LoadComments(ctx context.Context, batch []model.Comment, stage, cursor string) (model.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadGate(); err != nil {
		return model.LoadResult{}, err
	}
	m.CommentBatches = append(m.CommentBatches, append([]model.Comment(nil), batch...))

	var res model.LoadResult
	for _, c := range batch {
		// Orphans are counted over the whole staged batch, before the
		// conflict check, matching the loader's staging-table count.
		parent, hasParent := m.posts[c.PostID]
		if !hasParent {
			res.Orphans++
		}
		if _, ok := m.comments[c.ID]; ok {
			res.Conflicted++
			continue
		}
		if hasParent {
			c.ParentTitle = parent.Title
			if c.Community == "" {
				c.Community = parent.Community
			}
		} else {
			c.Community = archive.FallbackCommunity
		}
		m.comments[c.ID] = c
		res.Inserted++
	}
	m.checkpoints[stage] = model.Checkpoint{Stage: stage, Cursor: cursor, UpdatedAt: time.Now()}
	return res, nil
}

func (m *MemoryStore) GetCheckpoint(ctx context.Context, stage string) (*model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[stage]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *MemoryStore) PutCheckpoint(ctx context.Context, stage, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[stage] = model.Checkpoint{Stage: stage, Cursor: cursor, UpdatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) ResetStages(ctx context.Context, stagePrefix, platform, community string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for stage := range m.checkpoints {
		if strings.HasPrefix(stage, stagePrefix) {
			delete(m.checkpoints, stage)
		}
	}
	for id, p := range m.posts {
		if p.Platform == platform && p.Community == community {
			delete(m.posts, id)
		}
	}
	for id, c := range m.comments {
		if strings.HasPrefix(id, platform+"_") && c.Community == community {
			delete(m.comments, id)
		}
	}
	return nil
}

func (m *MemoryStore) ListPosts(ctx context.Context, community string, sort_ archive.PostSort, after *archive.Cursor, limit int) ([]model.Post, *archive.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 25
	}

	key := func(p model.Post) int64 {
		switch sort_ {
		case archive.SortTop:
			return p.Score
		case archive.SortComments:
			return p.NumComments
		default:
			return p.CreatedUTC
		}
	}

	var rows []model.Post
	for _, p := range m.posts {
		if p.Community != community {
			continue
		}
		if after != nil {
			k := key(p)
			if k > after.Key || (k == after.Key && p.ID >= after.ID) {
				continue
			}
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki != kj {
			return ki > kj
		}
		return rows[i].ID > rows[j].ID
	})

	var next *archive.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		next = &archive.Cursor{Key: key(last), ID: last.ID}
	}
	return rows, next, nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) ThreadComments(ctx context.Context, postID string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []model.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ParentID != rows[j].ParentID {
			return rows[i].ParentID < rows[j].ParentID
		}
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (m *MemoryStore) RefreshUsers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := make(map[string]*model.User)
	touch := func(name string, created int64) *model.User {
		u, ok := agg[name]
		if !ok {
			u = &model.User{Username: name, FirstSeen: created, LastSeen: created}
			agg[name] = u
		}
		if created < u.FirstSeen {
			u.FirstSeen = created
		}
		if created > u.LastSeen {
			u.LastSeen = created
		}
		return u
	}
	for _, p := range m.posts {
		u := touch(p.Author, p.CreatedUTC)
		u.PostCount++
		u.TotalScore += p.Score
	}
	for _, c := range m.comments {
		u := touch(c.Author, c.CreatedUTC)
		u.CommentCount++
		u.TotalScore += c.Score
	}

	m.users = m.users[:0]
	for _, u := range agg {
		u.TotalActivity = u.PostCount + u.CommentCount
		m.users = append(m.users, *u)
	}
	sort.Slice(m.users, func(i, j int) bool { return m.users[i].Username < m.users[j].Username })
	return int64(len(m.users)), nil
}

func (m *MemoryStore) ListUsersAfter(ctx context.Context, after string, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userPageCalls++
	var page []model.User
	for _, u := range m.users {
		if u.Username <= after {
			continue
		}
		page = append(page, u)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *MemoryStore) Search(ctx context.Context, q archive.SearchQuery) ([]archive.SearchResult, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match := func(text string) bool {
		if q.QueryText == "*" {
			return true
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(q.QueryText))
	}
	inRange := func(score, created int64) bool {
		if score < q.MinScore {
			return false
		}
		if q.StartDate > 0 && created < q.StartDate {
			return false
		}
		if q.EndDate > 0 && created > q.EndDate {
			return false
		}
		return true
	}

	var results []archive.SearchResult
	if q.ResultType == "" || q.ResultType == "post" {
		for _, p := range m.posts {
			if q.Community != "" && !strings.EqualFold(p.Community, q.Community) {
				continue
			}
			if q.Author != "" && p.Author != q.Author {
				continue
			}
			if !match(p.Title+" "+p.Body) || !inRange(p.Score, p.CreatedUTC) {
				continue
			}
			results = append(results, archive.SearchResult{
				ResultType: "post", ID: p.ID, Community: p.Community,
				Platform: p.Platform, Author: p.Author, Title: p.Title,
				Body: p.Body, NumComments: p.NumComments, URL: p.URL,
				Score: p.Score, CreatedUTC: p.CreatedUTC, Headline: p.Title,
			})
		}
	}
	if q.ResultType == "" || q.ResultType == "comment" {
		for _, c := range m.comments {
			if q.Community != "" && !strings.EqualFold(c.Community, q.Community) {
				continue
			}
			if q.Author != "" && c.Author != q.Author {
				continue
			}
			if !match(c.Body) || !inRange(c.Score, c.CreatedUTC) {
				continue
			}
			platform, _, _ := strings.Cut(c.ID, "_")
			results = append(results, archive.SearchResult{
				ResultType: "comment", ID: c.ID, Community: c.Community,
				Platform: platform, Author: c.Author, Body: c.Body,
				PostID: c.PostID, ParentTitle: c.ParentTitle,
				Score: c.Score, CreatedUTC: c.CreatedUTC, Headline: c.Body,
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	total := int64(len(results))
	if q.Offset > 0 {
		if q.Offset >= len(results) {
			results = nil
		} else {
			results = results[q.Offset:]
		}
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, total, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*archive.ArchiveStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &archive.ArchiveStats{
		Posts:      int64(len(m.posts)),
		Comments:   int64(len(m.comments)),
		Users:      int64(len(m.users)),
		ByPlatform: make(map[string]int64),
	}
	for _, p := range m.posts {
		stats.ByPlatform[p.Platform]++
	}
	for id := range m.comments {
		platform, _, ok := strings.Cut(id, "_")
		if ok {
			stats.ByPlatform[platform]++
		}
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }

// PostCount reports how many posts the store holds.
func (m *MemoryStore) PostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// CommentCount reports how many comments the store holds.
func (m *MemoryStore) CommentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.comments)
}

// Comment returns a stored comment by ID.
func (m *MemoryStore) Comment(id string) (model.Comment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	return c, ok
}

// UserPageCalls reports how many ListUsersAfter pages have been fetched.
func (m *MemoryStore) UserPageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userPageCalls
}

// SeedUsers replaces the user table, bypassing RefreshUsers.
func (m *MemoryStore) SeedUsers(users []model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append([]model.User(nil), users...)
	sort.Slice(m.users, func(i, j int) bool { return m.users[i].Username < m.users[j].Username })
}
