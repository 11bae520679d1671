package tabs

import (
	"sort"

	"github.com/runnerr0/tubesort/internal/youtube"
)

// Merge joins every unpinned tab whose URL carries a video ID with the
// metadata cached for that video. Input order is kept.
//
// Field resolution:
//
//	TabID, URL, TabTitle, Sleepy, Selected  tab
//	Title                                   cache, else tab title
//	Author, Views, UploadDate, Duration,
//	Premiere, Skipped, Playlist, Live       cache
//	LiveDuration                            Premiere, else Skipped, else Duration
//	VideoID                                 URL, only when it is a valid ID
func Merge(open []Tab, cache map[string]Metadata) []Entry {
	entries := make([]Entry, 0, len(open))
	seen := make(map[string]bool, len(open))

	for _, tab := range open {
		if tab.Pinned {
			continue
		}
		id, ok := youtube.ExtractID(tab.URL)
		if !ok {
			continue
		}
		key := id + "-" + tab.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		e := Entry{
			Key:      key,
			TabID:    tab.ID,
			URL:      tab.URL,
			TabTitle: tab.Title,
			Title:    tab.Title,
			Sleepy:   tab.Discarded,
			Selected: tab.Highlighted,
		}
		if youtube.ValidID(id) {
			e.VideoID = id
		}

		if md, ok := cache[id]; ok {
			e.Cached = true
			if md.Title != "" {
				e.Title = md.Title
			}
			e.Author = md.Author
			e.Views = md.Views
			e.UploadDate = md.UploadDate
			e.Duration = md.Duration
			e.Premiere = md.Premiere
			e.Skipped = md.Skipped
			e.Playlist = md.Playlist
			e.Live = md.Live
			e.LiveDuration = liveDuration(md)
		}

		entries = append(entries, e)
	}

	return entries
}

func liveDuration(md Metadata) *int64 {
	switch {
	case md.Premiere != nil:
		v := *md.Premiere
		return &v
	case md.Skipped != nil:
		v := *md.Skipped
		return &v
	default:
		v := md.Duration
		return &v
	}
}

// Stale returns the cache keys to evict for a snapshot, sorted. A cached key
// is stale when no open tab, pinned ones included, carries its video, or when
// the only tabs carrying it have neither a title nor a tab id.
func Stale(open []Tab, cache map[string]Metadata) []string {
	live := make(map[string]bool, len(open))
	for _, tab := range open {
		if tab.Title == "" && tab.ID == "" {
			continue
		}
		if id, ok := youtube.ExtractID(tab.URL); ok {
			live[id] = true
		}
	}

	var out []string
	for id := range cache {
		if !live[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
