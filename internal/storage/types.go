package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SearchQuery defines filters for searching cached videos.
type SearchQuery struct {
	Query    string
	Author   string
	Live     bool
	Playlist bool
	Since    time.Time // updated at or after
	Before   time.Time // updated strictly before
	Limit    int
	Offset   int
}

// Stats holds aggregate statistics about the cache.
type Stats struct {
	TotalVideos   int64
	LiveVideos    int64
	Playlists     int64
	TabURLs       int64
	OldestUpdate  time.Time
	NewestUpdate  time.Time
	LastSort      time.Time
	TotalDuration int64
	TopAuthors    []AuthorCount
}

// AuthorCount pairs a channel name with its cached video count.
type AuthorCount struct {
	Author string
	Count  int64
}

// Action names recorded in the audit log.
const (
	ActionSort   = "sort"
	ActionEvict  = "evict"
	ActionForget = "forget"
	ActionPrune  = "prune"
	ActionPurge  = "purge"
)
