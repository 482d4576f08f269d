package archive

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// EncodeCursor renders a cursor as an opaque token safe to hand to callers.
// Tokens from page N feed the query bound for page N+1.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%d|%s", c.Key, c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means
// the first page. Malformed tokens are rejected rather than treated as a
// first page, so a truncated token cannot silently restart a listing.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decoding cursor: %w", err)
	}
	key, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed cursor %q", token)
	}
	k, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor key: %w", err)
	}
	return &Cursor{Key: k, ID: id}, nil
}
