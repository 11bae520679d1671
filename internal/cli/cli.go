package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status *StatusCommand
	List   *ListCommand
	Sort   *SortCommand
	Rules  *RulesCommand
	Set    *SetCommand
	Add    *AddCommand
	Search *SearchCommand
	Show   *ShowCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
	Serve  *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tubesort"
	parser.LongDescription = "Sort open YouTube tabs by title, upload date, views, channel, or duration."

	cmds := &commands{
		Status: &StatusCommand{globals: &globals, version: version},
		List:   &ListCommand{globals: &globals, version: version},
		Sort:   &SortCommand{globals: &globals, version: version},
		Rules:  &RulesCommand{globals: &globals, version: version},
		Set:    &SetCommand{globals: &globals, version: version},
		Add:    &AddCommand{globals: &globals, version: version},
		Search: &SearchCommand{globals: &globals, version: version},
		Show:   &ShowCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
		Serve:  &ServeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show cache statistics and settings", "Show cache statistics, the active sort rules, and whether the bridge is running.", cmds.Status)
	parser.AddCommand("list", "List video tabs in sorted order", "List open video tabs filtered and sorted by the current settings, with totals.", cmds.List)
	parser.AddCommand("sort", "Sort video tabs", "Reorder open video tabs by the current rule chain and evict cache entries for closed tabs.", cmds.Sort)
	parser.AddCommand("rules", "Show or edit sort rules", "Show the sort rule chain, move rules up or down, or flip their direction.", cmds.Rules)
	parser.AddCommand("set", "Show or change settings", "Show boolean settings, or change them with NAME=true|false arguments.", cmds.Set)
	parser.AddCommand("add", "Cache metadata for a video", "Write a video metadata record into the cache by hand.", cmds.Add)
	parser.AddCommand("search", "Search cached videos", "Search cached video titles and channel names.", cmds.Search)
	parser.AddCommand("show", "Print one cached video", "Print the cached metadata record for one video.", cmds.Show)
	parser.AddCommand("prune", "Evict old cache entries", "Delete cached metadata older than the configured max age.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL cached metadata", "Delete all cached metadata and recorded tab URLs. Settings are kept.", cmds.Purge)
	parser.AddCommand("serve", "Run the extension bridge", "Run the local HTTP API used by the browser extension.", cmds.Serve)

	return parser, &globals, cmds
}

// Run is the main entry point for the tubesort CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, os.Args[1:])
}

// RunWithArgs parses args and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags insists on a subcommand, so --version is handled first.
	if wantsVersion(args) {
		fmt.Printf("tubesort %s\n", version)
		return nil
	}

	parser, _, _ := buildParser(version)
	_, err := parser.ParseArgs(args)

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}

// wantsVersion reports whether --version appears before any "--".
func wantsVersion(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--version":
			return true
		case "--":
			return false
		}
	}
	return false
}
