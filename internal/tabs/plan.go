package tabs

import "github.com/runnerr0/tubesort/internal/settings"

// CommandKind names a browser side effect.
type CommandKind string

const (
	CommandReload CommandKind = "reload"
	CommandMove   CommandKind = "move"
)

// Phase orders commands relative to the moves.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseMove   Phase = "move"
	PhaseAfter  Phase = "after"
)

// MoveToEnd is the move index that places a tab last in its window.
const MoveToEnd = -1

// Command is one side effect to apply after a sort, in slice order.
type Command struct {
	Kind  CommandKind `json:"kind"`
	Phase Phase       `json:"phase"`
	TabID string      `json:"tabId"`
	Index int         `json:"index,omitempty"`
	// URL, when set on a reload, is the address recorded before the tab was
	// unloaded and should be loaded instead of a plain reload.
	URL string `json:"url,omitempty"`
}

// Plan turns a sorted list into browser commands:
//
//  1. with ForceReload, reload every tab before moving;
//  2. move each tab to the end of its window in sorted order;
//  3. unless IgnoreInactive is set, reload tabs that were discarded.
func Plan(sorted []Entry, s settings.Settings) []Command {
	var cmds []Command

	if s.ForceReload {
		for _, e := range sorted {
			cmds = append(cmds, Command{Kind: CommandReload, Phase: PhaseBefore, TabID: e.TabID})
		}
	}

	for _, e := range sorted {
		cmds = append(cmds, Command{Kind: CommandMove, Phase: PhaseMove, TabID: e.TabID, Index: MoveToEnd})
	}

	if !s.IgnoreInactive && !s.ForceReload {
		for _, e := range sorted {
			if e.Sleepy {
				cmds = append(cmds, Command{Kind: CommandReload, Phase: PhaseAfter, TabID: e.TabID})
			}
		}
	}

	return cmds
}
