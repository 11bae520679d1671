package tabs

import "github.com/runnerr0/tubesort/internal/settings"

// Filter drops entries without a video ID or title and those matched by an
// active ignore flag. When at least two of the remaining entries are
// selected, only the selected ones are returned.
func Filter(entries []Entry, s settings.Settings) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.VideoID == "" || e.Title == "" {
			continue
		}
		if s.IgnorePlaylists && e.Playlist {
			continue
		}
		if s.IgnoreLive && e.Live {
			continue
		}
		if s.IgnoreInactive && e.Sleepy {
			continue
		}
		kept = append(kept, e)
	}

	var selected []Entry
	for _, e := range kept {
		if e.Selected {
			selected = append(selected, e)
		}
	}
	if len(selected) > 1 {
		return selected
	}
	return kept
}
