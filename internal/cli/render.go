package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// fit truncates s to width display cells and pads it to exactly width.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// lengthLabel is what the length column shows for an entry.
func lengthLabel(e tabs.Entry, sponsorBlock bool) string {
	switch {
	case e.Live && e.Premiere != nil:
		return "in " + youtube.FormatPremiere(*e.Premiere)
	case e.Live:
		return "LIVE"
	case !e.Cached:
		return "?"
	}
	return youtube.FormatDuration(e.DisplayDuration(sponsorBlock))
}

func uploadLabel(e tabs.Entry) string {
	if e.UploadDate.IsZero() {
		return ""
	}
	return e.UploadDate.Local().Format("2006-01-02")
}

// renderEntries formats the sorted list as an aligned table.
func renderEntries(entries []tabs.Entry, titleWidth int, sponsorBlock bool) string {
	const (
		authorWidth = 20
		lengthWidth = 10
		viewsWidth  = 6
	)
	var b strings.Builder

	header := fmt.Sprintf("%3s  %s  %s  %s  %s  %s",
		"#", fit("Title", titleWidth), fit("Channel", authorWidth),
		fit("Length", lengthWidth), fit("Views", viewsWidth), "Uploaded")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	for i, e := range entries {
		length := fit(lengthLabel(e, sponsorBlock), lengthWidth)
		if e.Live {
			length = liveStyle.Render(length)
		}
		views := ""
		if e.Cached {
			views = youtube.FormatViews(e.Views)
		}
		title := fit(e.Title, titleWidth)
		if e.Sleepy {
			title = dimStyle.Render(title)
		}
		fmt.Fprintf(&b, "%3d  %s  %s  %s  %s  %s\n",
			i+1, title, fit(e.Author, authorWidth), length, fit(views, viewsWidth), uploadLabel(e))
	}
	return b.String()
}

// renderStats formats the totals line under a list.
func renderStats(st tabs.Stats) string {
	return fmt.Sprintf("%d tabs · %s total · %s views",
		st.Tabs, youtube.FormatDuration(st.Duration), youtube.FormatViews(st.Views))
}

// renderRules formats the rule chain in precedence order.
func renderRules(rules []settings.SortRule) string {
	var b strings.Builder
	for i, r := range rules {
		label := r.Title
		if label == "" {
			label = r.Attr
		}
		fmt.Fprintf(&b, "%d. %s %s  %s\n",
			i+1, fit(label, 16), dimStyle.Render(fit("("+r.Attr+")", 13)), r.Direction())
	}
	return b.String()
}

// renderFlags formats the boolean settings.
func renderFlags(s settings.Settings) string {
	var b strings.Builder
	for _, name := range settings.FlagNames() {
		v, _ := s.Flag(name)
		fmt.Fprintf(&b, "  %s %t\n", fit(name, 18), v)
	}
	return b.String()
}
