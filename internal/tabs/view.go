package tabs

import "github.com/runnerr0/tubesort/internal/settings"

// Build runs merge, filter, and sort over one snapshot and returns the
// display-ready list. Stale cache keys are reported, not removed.
func Build(open []Tab, cache map[string]Metadata, s settings.Settings) View {
	merged := Merge(open, cache)
	entries := Sort(Filter(merged, s), s.Sorting)

	return View{
		Entries: entries,
		Stats:   ComputeStats(entries, s.SortSponsorBlock),
		Stale:   Stale(open, cache),
	}
}

// ComputeStats totals the tab count, durations, and views of a list.
func ComputeStats(entries []Entry, sponsorBlock bool) Stats {
	st := Stats{Tabs: len(entries)}
	for _, e := range entries {
		st.Duration += e.DisplayDuration(sponsorBlock)
		st.Views += e.Views
	}
	return st
}
