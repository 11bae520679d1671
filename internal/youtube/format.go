package youtube

import (
	"fmt"
	"strings"
)

// FormatDuration renders a length in seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatViews compacts a view count: 999, 1.2K, 3.4M, 5.6B.
func FormatViews(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return compact(float64(n)/1e9) + "B"
	case n >= 1_000_000:
		return compact(float64(n)/1e6) + "M"
	case n >= 1_000:
		return compact(float64(n)/1e3) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func compact(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}

// FormatPremiere renders the time until a premiere starts, e.g. "2h 5m".
func FormatPremiere(seconds int64) string {
	if seconds <= 0 {
		return "now"
	}
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || len(parts) == 0 {
		if m == 0 {
			m = 1
		}
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	return strings.Join(parts, " ")
}
