package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"redarch/internal/archive"
)

func TestSortColumn(t *testing.T) {
	tests := []struct {
		sort    archive.PostSort
		want    string
		wantErr bool
	}{
		{archive.SortNew, "created_utc", false},
		{archive.PostSort(""), "created_utc", false},
		{archive.SortTop, "score", false},
		{archive.SortComments, "num_comments", false},
		{archive.PostSort("hot"), "", true},
	}

	for _, tt := range tests {
		col, err := sortColumn(tt.sort)
		if tt.wantErr {
			if err == nil {
				t.Errorf("sortColumn(%q) expected error, got nil", tt.sort)
			}
			continue
		}
		if err != nil {
			t.Errorf("sortColumn(%q) error = %v", tt.sort, err)
			continue
		}
		if col != tt.want {
			t.Errorf("sortColumn(%q) = %q, want %q", tt.sort, col, tt.want)
		}
	}
}

func TestSearchOrder(t *testing.T) {
	if got := searchOrder("score"); got != "score DESC, id" {
		t.Errorf("searchOrder(score) = %q", got)
	}
	if got := searchOrder("date"); got != "created_utc DESC, id" {
		t.Errorf("searchOrder(date) = %q", got)
	}
	if got := searchOrder(""); got != "rank DESC, score DESC, id" {
		t.Errorf("searchOrder(default) = %q", got)
	}
}

func TestSearchBuilder_BindsFiltersInOrder(t *testing.T) {
	b := &searchBuilder{}
	conds := b.branchFilters("p", archive.SearchQuery{
		Community: "golang",
		Author:    "gopher",
		MinScore:  10,
		StartDate: 100,
		EndDate:   200,
	})

	if len(conds) != 5 {
		t.Fatalf("branchFilters() returned %d conditions, want 5", len(conds))
	}
	if len(b.args) != 5 {
		t.Fatalf("branchFilters() bound %d args, want 5", len(b.args))
	}
	if b.args[0] != "golang" || b.args[1] != "gopher" {
		t.Errorf("branchFilters() args = %v, want community then author first", b.args)
	}
	if conds[0] != "lower(p.community) = lower($1)" {
		t.Errorf("community condition = %q", conds[0])
	}
}

func TestSearchBuilder_SkipsEmptyFilters(t *testing.T) {
	b := &searchBuilder{}
	conds := b.branchFilters("c", archive.SearchQuery{QueryText: "hello"})
	if len(conds) != 0 {
		t.Errorf("branchFilters() with no filters returned %v", conds)
	}
	if len(b.args) != 0 {
		t.Errorf("branchFilters() with no filters bound args %v", b.args)
	}
}

func TestMapQueryErr(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := mapQueryErr(nil); err != nil {
			t.Errorf("mapQueryErr(nil) = %v", err)
		}
	})

	t.Run("deadline becomes query timeout", func(t *testing.T) {
		err := mapQueryErr(context.DeadlineExceeded)
		if !errors.Is(err, archive.ErrQueryTimeout) {
			t.Errorf("mapQueryErr(DeadlineExceeded) = %v, want ErrQueryTimeout", err)
		}
	})

	t.Run("statement cancel becomes query timeout", func(t *testing.T) {
		err := mapQueryErr(&pgconn.PgError{Code: pgQueryCanceled})
		if !errors.Is(err, archive.ErrQueryTimeout) {
			t.Errorf("mapQueryErr(57014) = %v, want ErrQueryTimeout", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		sentinel := errors.New("boom")
		if err := mapQueryErr(sentinel); !errors.Is(err, sentinel) {
			t.Errorf("mapQueryErr(boom) = %v, want original error", err)
		}
	})
}
