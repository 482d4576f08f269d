package archive_test

import (
	"testing"

	"redarch/internal/archive"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor *archive.Cursor
	}{
		{name: "positive key", cursor: &archive.Cursor{Key: 1650000000, ID: "reddit_abc123"}},
		{name: "negative key", cursor: &archive.Cursor{Key: -42, ID: "voat_7"}},
		{name: "zero key", cursor: &archive.Cursor{Key: 0, ID: "ruqqus_x"}},
		{name: "id containing pipe", cursor: &archive.Cursor{Key: 5, ID: "odd|id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := archive.EncodeCursor(tt.cursor)
			if token == "" {
				t.Fatal("EncodeCursor() returned empty token")
			}

			got, err := archive.DecodeCursor(token)
			if err != nil {
				t.Fatalf("DecodeCursor() error = %v", err)
			}
			if got.Key != tt.cursor.Key || got.ID != tt.cursor.ID {
				t.Errorf("round trip = %+v, want %+v", got, tt.cursor)
			}
		})
	}
}

func TestEncodeCursor_NilMeansFirstPage(t *testing.T) {
	if token := archive.EncodeCursor(nil); token != "" {
		t.Errorf("EncodeCursor(nil) = %q, want empty", token)
	}

	c, err := archive.DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor(\"\") error = %v", err)
	}
	if c != nil {
		t.Errorf("DecodeCursor(\"\") = %+v, want nil", c)
	}
}

func TestDecodeCursor_RejectsMalformedTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64", token: "!!!"},
		{name: "no separator", token: "MTIzNDU="},    // "12345"
		{name: "non-numeric key", token: "YWJjfGlk"}, // "abc|id"
		{name: "empty id", token: "MTIzfA=="},        // "123|"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := archive.DecodeCursor(tt.token); err == nil {
				t.Errorf("DecodeCursor(%q) expected error, got nil", tt.token)
			}
		})
	}
}
