package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// IDLength is the length of every valid YouTube video ID.
const IDLength = 11

var (
	// queryIDPattern matches watch-style URLs on any YouTube host and captures
	// the last v= parameter that is followed by &, whitespace, or end of input.
	queryIDPattern = regexp.MustCompile(`(?i)^((?:https?:)?//)?((?:www|m)\.)?(?:youtube(?:-nocookie)?\.com|youtu\.be)(/(?:[\w\-]+\?|embed/|v/)?)?.*v=([\w\-]+)(?:&|\s|$)`)

	// pathIDPattern matches short links and embed/shorts/live paths where the
	// ID is a path segment instead of a query parameter.
	pathIDPattern = regexp.MustCompile(`(?i)^(?:(?:https?:)?//)?(?:(?:www|m)\.)?(?:youtube(?:-nocookie)?\.com/(?:embed|v|shorts|live)/|youtu\.be/)([\w\-]+)(?:[?&#/\s]|$)`)

	idChars = regexp.MustCompile(`^[\w\-]+$`)
)

// ExtractID returns the video ID embedded in rawURL. The second result is
// false when no YouTube URL form matches.
func ExtractID(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if m := queryIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[4], true
	}
	if m := pathIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	return "", false
}

// ValidID reports whether id has the shape of a YouTube video ID.
func ValidID(id string) bool {
	return len(id) == IDLength && idChars.MatchString(id)
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// MatchesHost reports whether rawURL points at one of hosts or a subdomain of
// one of them.
func MatchesHost(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether rawURL opens a video inside a playlist.
func IsPlaylistURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return u.Query().Get("list") != ""
}
