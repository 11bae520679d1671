package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/runnerr0/tubesort/internal/settings"
)

// Execute implements the go-flags Commander interface for RulesCommand.
func (c *RulesCommand) Execute(args []string) error {
	if c.Up != "" && c.Down != "" {
		return fmt.Errorf("--up and --down cannot be combined")
	}
	if _, err := parseAssignments(c.Asc); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e)
}

// executeWithEnv applies rule edits and prints the chain (for testing).
func (c *RulesCommand) executeWithEnv(e *env) error {
	ctx := context.Background()

	assignments, err := parseAssignments(c.Asc)
	if err != nil {
		return err
	}

	// The chain is rendered from whatever the last saved edit produced.
	cur := e.settings.Current()
	e.settings.OnChange(func(s settings.Settings) { cur = s })

	switch {
	case c.Up != "":
		_, err = e.settings.MoveRule(ctx, c.Up, false)
	case c.Down != "":
		_, err = e.settings.MoveRule(ctx, c.Down, true)
	}
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if _, err = e.settings.SetRuleAsc(ctx, a.name, a.value); err != nil {
			return err
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(cur.Sorting)
	}
	fmt.Print(renderRules(cur.Sorting))
	return nil
}

// assignment is one NAME=BOOL argument.
type assignment struct {
	name  string
	value bool
}

// parseAssignments parses NAME=BOOL pairs as given to --asc and set.
func parseAssignments(in []string) ([]assignment, error) {
	out := make([]assignment, 0, len(in))
	for _, s := range in {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (want NAME=true|false)", s)
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q: %w", s, err)
		}
		out = append(out, assignment{name: strings.TrimSpace(name), value: v})
	}
	return out, nil
}
