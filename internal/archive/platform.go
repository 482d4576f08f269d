package archive

import "fmt"

// Platform identifies a source platform for archived forum data.
type Platform string

const (
	PlatformReddit Platform = "reddit"
	PlatformVoat   Platform = "voat"
	PlatformRuqqus Platform = "ruqqus"
)

// FallbackCommunity is assigned to comments whose parent post was not found
// at ingestion time. Orphans are persisted and counted, never dropped.
const FallbackCommunity = "unknown"

// PrefixID prefixes a native record ID with the platform identifier so IDs
// are globally unique across platforms by construction.
func PrefixID(p Platform, rawID string) string {
	return fmt.Sprintf("%s_%s", p, rawID)
}

// PlatformMeta describes platform display conventions.
type PlatformMeta struct {
	DisplayName   string
	CommunityTerm string // what the platform calls a community
	URLPrefix     string // path prefix for community URLs
}

// Meta returns display metadata for the platform.
func (p Platform) Meta() PlatformMeta {
	switch p {
	case PlatformReddit:
		return PlatformMeta{DisplayName: "Reddit", CommunityTerm: "subreddit", URLPrefix: "r"}
	case PlatformVoat:
		return PlatformMeta{DisplayName: "Voat", CommunityTerm: "subverse", URLPrefix: "v"}
	case PlatformRuqqus:
		return PlatformMeta{DisplayName: "Ruqqus", CommunityTerm: "guild", URLPrefix: "g"}
	default:
		return PlatformMeta{DisplayName: string(p), CommunityTerm: "community", URLPrefix: "c"}
	}
}

// Valid reports whether p names a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformReddit, PlatformVoat, PlatformRuqqus:
		return true
	}
	return false
}
