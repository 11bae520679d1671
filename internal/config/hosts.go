package config

// DefaultVideoHosts returns the hosts whose tabs are treated as video tabs.
// Subdomains match too, so "youtube.com" covers www. and music.
func DefaultVideoHosts() []string {
	return []string{
		"youtube.com",
		"m.youtube.com",
		"youtu.be",
		"youtube-nocookie.com",
	}
}
