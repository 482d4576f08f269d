package app

import (
	"context"
	"fmt"
	"testing"

	"redarch/internal/archive"
	"redarch/internal/model"
	"redarch/internal/testutil"
)

// seedCommunityPosts loads n posts with deliberate sort-key collisions so
// the id tie-break in the page cursor actually matters.
func seedCommunityPosts(t *testing.T, store *testutil.MemoryStore, community string, n int) {
	t.Helper()
	posts := make([]model.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, model.Post{
			ID:          fmt.Sprintf("reddit_p%03d", i),
			Platform:    "reddit",
			Community:   community,
			Author:      fmt.Sprintf("author%d", i%3),
			Title:       fmt.Sprintf("post %d", i),
			Score:       int64((i * 7) % 5),
			NumComments: int64((i * 3) % 4),
			CreatedUTC:  int64(1600000000 + (i%4)*100),
		})
	}
	stage := "import:reddit:" + community + ":posts"
	if _, err := store.LoadPosts(context.Background(), posts, stage, "done"); err != nil {
		t.Fatalf("seeding posts: %v", err)
	}
}

func sortKey(sort archive.PostSort, p model.Post) int64 {
	switch sort {
	case archive.SortTop:
		return p.Score
	case archive.SortComments:
		return p.NumComments
	default:
		return p.CreatedUTC
	}
}

func TestApp_ListPosts_Pagination(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedCommunityPosts(t, store, "golang", 11)
	a := &App{store: store}

	for _, sort := range []archive.PostSort{archive.SortNew, archive.SortTop, archive.SortComments} {
		t.Run(string(sort), func(t *testing.T) {
			var walked []model.Post
			seen := make(map[string]bool)
			cursor := ""
			pages := 0
			for {
				posts, next, err := a.ListPosts(context.Background(), "golang", sort, cursor, 4)
				if err != nil {
					t.Fatalf("ListPosts() error = %v", err)
				}
				if len(posts) > 4 {
					t.Fatalf("page size = %d, want <= 4", len(posts))
				}
				for _, p := range posts {
					if seen[p.ID] {
						t.Errorf("post %s returned on two pages", p.ID)
					}
					seen[p.ID] = true
					walked = append(walked, p)
				}
				pages++
				if next == "" {
					break
				}
				cursor = next
				if pages > 10 {
					t.Fatal("pagination did not terminate")
				}
			}

			if len(seen) != 11 {
				t.Errorf("distinct posts across pages = %d, want 11", len(seen))
			}
			if pages != 3 {
				t.Errorf("pages = %d, want 3", pages)
			}

			// The (key, id) tuple must strictly decrease across the whole
			// walk, page boundaries included.
			for i := 1; i < len(walked); i++ {
				prevKey, curKey := sortKey(sort, walked[i-1]), sortKey(sort, walked[i])
				if curKey > prevKey || (curKey == prevKey && walked[i].ID >= walked[i-1].ID) {
					t.Errorf("order violated at %d: (%d, %s) after (%d, %s)",
						i, curKey, walked[i].ID, prevKey, walked[i-1].ID)
				}
			}
		})
	}

	t.Run("rejects malformed cursor token", func(t *testing.T) {
		if _, _, err := a.ListPosts(context.Background(), "golang", archive.SortNew, "!!!", 4); err == nil {
			t.Error("ListPosts() expected error for malformed cursor")
		}
	})

	t.Run("unknown community yields empty page", func(t *testing.T) {
		posts, next, err := a.ListPosts(context.Background(), "nosuch", archive.SortNew, "", 4)
		if err != nil {
			t.Fatalf("ListPosts() error = %v", err)
		}
		if len(posts) != 0 || next != "" {
			t.Errorf("ListPosts() = %d posts, cursor %q, want empty page", len(posts), next)
		}
	})
}
