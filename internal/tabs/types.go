// Package tabs turns a snapshot of open browser tabs plus cached video
// metadata into the ordered list shown to the user, and into the tab moves
// and reloads that apply that order in the browser.
//
// Everything here is pure: no I/O, no shared state. The browser, the cache,
// and the settings record are passed in and results are returned.
package tabs

import "time"

// Tab is one open browser tab as reported by the browser.
type Tab struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Pinned      bool   `json:"pinned"`
	Discarded   bool   `json:"discarded"`
	Highlighted bool   `json:"highlighted"`
}

// Metadata is the cached description of one video, keyed by VideoID.
type Metadata struct {
	VideoID    string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Views      int64     `json:"views"`
	UploadDate time.Time `json:"uploadDate"`
	Duration   int64     `json:"duration"`
	// Premiere holds the seconds until a scheduled premiere starts.
	Premiere *int64 `json:"premiere,omitempty"`
	// Skipped is the duration with sponsor segments removed.
	Skipped   *int64    `json:"skipped,omitempty"`
	Playlist  bool      `json:"playlist"`
	Live      bool      `json:"live"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entry is a tab merged with the metadata cached for its video.
type Entry struct {
	Key      string `json:"key"`
	TabID    string `json:"tabId"`
	URL      string `json:"url"`
	TabTitle string `json:"tabTitle"`
	Sleepy   bool   `json:"sleepy"`
	Selected bool   `json:"selected"`

	VideoID    string    `json:"youtubeId,omitempty"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Views      int64     `json:"views"`
	UploadDate time.Time `json:"uploadDate"`
	Duration   int64     `json:"duration"`
	Premiere   *int64    `json:"premiere,omitempty"`
	Skipped    *int64    `json:"skipped,omitempty"`
	Playlist   bool      `json:"playlist"`
	Live       bool      `json:"live"`

	// LiveDuration is the value the "duration" sort key reads: premiere
	// countdown, else sponsor-adjusted duration, else raw duration.
	LiveDuration *int64 `json:"liveDuration,omitempty"`
	// Cached is false when no metadata record exists for the video yet.
	Cached bool `json:"cached"`
}

// DisplayDuration is the duration shown for an entry. With sponsorBlock set
// the sponsor-adjusted duration wins when known.
func (e Entry) DisplayDuration(sponsorBlock bool) int64 {
	if sponsorBlock && e.Skipped != nil {
		return *e.Skipped
	}
	return e.Duration
}

// Stats summarises a displayed list.
type Stats struct {
	Tabs     int   `json:"tabs"`
	Duration int64 `json:"duration"`
	Views    int64 `json:"views"`
}

// View is the display-ready result of one pass over the tabs.
type View struct {
	Entries []Entry `json:"entries"`
	Stats   Stats   `json:"stats"`
	// Stale lists cache keys that no open tab refers to any more.
	Stale []string `json:"stale,omitempty"`
}
