package domain

import "time"

// Platform is a bit set of platforms a game runs on.
type Platform uint8

// Platform flags.
const (
	PlatformWindows Platform = 1 << iota
	PlatformMac
	PlatformLinux
	PlatformSteamDeck
)

// Has reports whether all flags in p are set.
func (p Platform) Has(flag Platform) bool { return p&flag == flag }

// CoopMode is the cooperative-play mode of a game.
type CoopMode string

// Cooperative-play modes.
const (
	CoopSinglePlayer CoopMode = "single-player"
	CoopLocal        CoopMode = "local-coop"
	CoopOnline       CoopMode = "online-coop"
	CoopLocalMulti   CoopMode = "local-multiplayer"
	CoopOnlineMulti  CoopMode = "online-multiplayer"
	CoopMMO          CoopMode = "mmo"
)

// ContentType is the store content category.
type ContentType string

// Content types.
const (
	ContentGame ContentType = "game"
	ContentDLC  ContentType = "dlc"
	ContentDemo ContentType = "demo"
)

// Game is one searchable corpus entity. Title, Description and Genres feed
// ranking; the remaining attributes are filter-only. Games are immutable once
// loaded into a corpus snapshot.
type Game struct {
	ID          int
	Title       string
	Description string
	Genres      []string

	PriceCents   int64
	Platforms    Platform
	Coop         CoopMode
	Type         ContentType
	ReleaseDate  time.Time
	TotalReviews int
	ReviewStatus string
}
