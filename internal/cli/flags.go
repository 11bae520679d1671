package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DB      string `long:"db" env:"TUBESORT_DB" description:"Override the database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand reports cache statistics and whether the bridge is up.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ListCommand prints the filtered and sorted tab list.
type ListCommand struct {
	Tabs     string `long:"tabs" description:"Read tabs from a JSON snapshot instead of the browser"`
	Activate int    `long:"activate" description:"Focus the N-th listed tab (1-based)"`
	Width    int    `long:"width" description:"Maximum title width" default:"48"`

	globals *GlobalFlags
	version string
}

// SortCommand sorts the open video tabs.
type SortCommand struct {
	Tabs   string `long:"tabs" description:"Sort a JSON tab snapshot in place instead of the browser"`
	DryRun bool   `long:"dry-run" description:"Print the plan without moving tabs or evicting cache entries"`

	globals *GlobalFlags
	version string
}

// RulesCommand shows or edits the sort rule chain.
type RulesCommand struct {
	Up   string   `long:"up" description:"Move the rule for ATTR one step up" value-name:"ATTR"`
	Down string   `long:"down" description:"Move the rule for ATTR one step down" value-name:"ATTR"`
	Asc  []string `long:"asc" description:"Set the direction flag of a rule (repeatable)" value-name:"ATTR=BOOL"`

	globals *GlobalFlags
	version string
}

// SetCommand shows or changes boolean settings.
type SetCommand struct {
	Reset bool `long:"reset" description:"Restore default settings"`

	globals *GlobalFlags
	version string
}

// AddCommand writes a metadata record by hand.
type AddCommand struct {
	URL      string `long:"url" description:"Video URL"`
	ID       string `long:"id" description:"Video ID (instead of --url)"`
	Title    string `long:"title" description:"Video title (required)"`
	Author   string `long:"author" description:"Channel name"`
	Views    int64  `long:"views" description:"View count"`
	Duration string `long:"duration" description:"Duration as seconds, m:ss or h:mm:ss"`
	Skipped  string `long:"skipped" description:"Duration without sponsor segments"`
	Uploaded string `long:"uploaded" description:"Upload date (YYYY-MM-DD)"`
	Premiere string `long:"premiere" description:"Time until premiere (e.g. 2h, 30m)"`
	Live     bool   `long:"live" description:"Mark as a live stream"`
	Playlist bool   `long:"playlist" description:"Mark as part of a playlist"`

	globals *GlobalFlags
	version string
}

// SearchCommand runs a full-text search over cached titles and channels.
type SearchCommand struct {
	Author   string `long:"author" description:"Only videos from this channel"`
	Live     bool   `long:"live" description:"Only live streams"`
	Playlist bool   `long:"playlist" description:"Only playlist videos"`
	Since    string `long:"since" description:"Only records fetched within duration (e.g., 7d, 24h, 2w)"`
	Limit    int    `long:"limit" description:"Maximum results" default:"10"`
	Offset   int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// ShowCommand prints one cached metadata record.
type ShowCommand struct {
	ID     string `long:"id" description:"Video ID or URL"`
	Format string `long:"format" description:"Output format: md | raw | json" default:"md"`

	globals *GlobalFlags
	version string
}

// PruneCommand evicts cache records older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override cache max age (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes all cached metadata after confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // confirmation input; nil means stdin
}

// ServeCommand runs the HTTP bridge for the browser extension.
type ServeCommand struct {
	Host string `long:"host" description:"Override listen host"`
	Port int    `long:"port" description:"Override listen port"`

	globals *GlobalFlags
	version string
}
