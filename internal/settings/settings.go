// Package settings holds the user's sort preferences: ignore flags, the
// ordered sort rule chain, and the small bits of popup state persisted with
// them. Settings values are immutable from the caller's point of view; every
// edit returns a new value.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknown is returned for a flag or sort attribute that does not exist.
var ErrUnknown = errors.New("unknown setting")

// Sort attributes understood by the sorter.
const (
	AttrTitle      = "title"
	AttrUploadDate = "uploadDate"
	AttrViews      = "views"
	AttrAuthor     = "author"
	AttrDuration   = "duration"
)

// SortRule is one key in the sort chain. A rule's position in
// Settings.Sorting is its precedence; Order mirrors that position.
//
// Asc flips the key's natural order (A-Z, oldest, least, shortest) to the
// second dropdown choice. The field name matches the stored record.
type SortRule struct {
	Attr     string   `json:"attr"`
	Asc      bool     `json:"asc"`
	Order    int      `json:"order"`
	Title    string   `json:"title,omitempty"`
	Dropdown []string `json:"dropdown,omitempty"`
}

// Direction is the label of the rule's current direction.
func (r SortRule) Direction() string {
	if len(r.Dropdown) < 2 {
		if r.Asc {
			return "descending"
		}
		return "ascending"
	}
	if r.Asc {
		return r.Dropdown[1]
	}
	return r.Dropdown[0]
}

// Settings is the persisted preference record.
type Settings struct {
	ShowTip          bool       `json:"show_tip"`
	IgnoreInactive   bool       `json:"ignore_inactive"`
	IgnorePlaylists  bool       `json:"ignore_playlists"`
	IgnoreLive       bool       `json:"ignore_live"`
	SortSponsorBlock bool       `json:"sort_sponsorblock"`
	ForceReload      bool       `json:"force_reload"`
	Sorting          []SortRule `json:"sorting"`
	Menu             int        `json:"menu"`
}

// Flag names accepted by SetFlag.
const (
	FlagShowTip          = "show_tip"
	FlagIgnoreInactive   = "ignore_inactive"
	FlagIgnorePlaylists  = "ignore_playlists"
	FlagIgnoreLive       = "ignore_live"
	FlagSortSponsorBlock = "sort_sponsorblock"
	FlagForceReload      = "force_reload"
)

// FlagNames lists every boolean setting in display order.
func FlagNames() []string {
	return []string{
		FlagShowTip,
		FlagIgnoreInactive,
		FlagIgnorePlaylists,
		FlagIgnoreLive,
		FlagSortSponsorBlock,
		FlagForceReload,
	}
}

// Default returns the settings used before anything is stored.
func Default() Settings {
	return Settings{
		ShowTip: true,
		Sorting: DefaultRules(),
	}
}

// DefaultRules returns the built-in rule chain.
func DefaultRules() []SortRule {
	return []SortRule{
		{Attr: AttrTitle, Order: 0, Title: "Video Title", Dropdown: []string{"A-Z", "Z-A"}},
		{Attr: AttrUploadDate, Order: 1, Title: "Upload Date", Dropdown: []string{"Oldest first", "Newest first"}},
		{Attr: AttrViews, Order: 2, Title: "Views", Dropdown: []string{"Least first", "Most first"}},
		{Attr: AttrAuthor, Order: 3, Title: "Channel Name", Dropdown: []string{"A-Z", "Z-A"}},
		{Attr: AttrDuration, Order: 4, Title: "Video Duration", Dropdown: []string{"Shortest first", "Longest first"}},
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.Sorting = make([]SortRule, len(s.Sorting))
	for i, r := range s.Sorting {
		r.Dropdown = slices.Clone(r.Dropdown)
		out.Sorting[i] = r
	}
	return out
}

// Index returns the position of the rule for attr, or -1.
func (s Settings) Index(attr string) int {
	for i, r := range s.Sorting {
		if strings.EqualFold(r.Attr, attr) {
			return i
		}
	}
	return -1
}

// MoveUp raises the precedence of the rule at i by swapping it with i-1.
// Position 0 and out-of-range indexes are no-ops.
func (s Settings) MoveUp(i int) Settings {
	out := s.Clone()
	if i <= 0 || i >= len(out.Sorting) {
		return out
	}
	out.Sorting[i], out.Sorting[i-1] = out.Sorting[i-1], out.Sorting[i]
	out.renumber()
	return out
}

// MoveDown lowers the precedence of the rule at i by swapping it with i+1.
// The last position and out-of-range indexes are no-ops.
func (s Settings) MoveDown(i int) Settings {
	out := s.Clone()
	if i < 0 || i >= len(out.Sorting)-1 {
		return out
	}
	out.Sorting[i], out.Sorting[i+1] = out.Sorting[i+1], out.Sorting[i]
	out.renumber()
	return out
}

// SetAsc sets the direction flag of the rule at i.
func (s Settings) SetAsc(i int, asc bool) Settings {
	out := s.Clone()
	if i < 0 || i >= len(out.Sorting) {
		return out
	}
	out.Sorting[i].Asc = asc
	return out
}

// SetFlag sets one of the boolean settings by its stored name.
func (s Settings) SetFlag(name string, value bool) (Settings, error) {
	out := s.Clone()
	switch name {
	case FlagShowTip:
		out.ShowTip = value
	case FlagIgnoreInactive:
		out.IgnoreInactive = value
	case FlagIgnorePlaylists:
		out.IgnorePlaylists = value
	case FlagIgnoreLive:
		out.IgnoreLive = value
	case FlagSortSponsorBlock:
		out.SortSponsorBlock = value
	case FlagForceReload:
		out.ForceReload = value
	default:
		return s, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return out, nil
}

// Flag reads a boolean setting by its stored name.
func (s Settings) Flag(name string) (bool, error) {
	switch name {
	case FlagShowTip:
		return s.ShowTip, nil
	case FlagIgnoreInactive:
		return s.IgnoreInactive, nil
	case FlagIgnorePlaylists:
		return s.IgnorePlaylists, nil
	case FlagIgnoreLive:
		return s.IgnoreLive, nil
	case FlagSortSponsorBlock:
		return s.SortSponsorBlock, nil
	case FlagForceReload:
		return s.ForceReload, nil
	default:
		return false, fmt.Errorf("%w %q", ErrUnknown, name)
	}
}

// SetMenu records the active popup menu.
func (s Settings) SetMenu(menu int) Settings {
	out := s.Clone()
	out.Menu = menu
	return out
}

func (s *Settings) renumber() {
	for i := range s.Sorting {
		s.Sorting[i].Order = i
	}
}
