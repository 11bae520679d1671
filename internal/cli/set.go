package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tubesort/internal/settings"
)

// Execute implements the go-flags Commander interface for SetCommand.
func (c *SetCommand) Execute(args []string) error {
	if c.Reset && len(args) > 0 {
		return fmt.Errorf("--reset takes no arguments")
	}
	if _, err := parseAssignments(args); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e, args)
}

// executeWithEnv applies NAME=BOOL args and prints the flags (for testing).
func (c *SetCommand) executeWithEnv(e *env, args []string) error {
	ctx := context.Background()

	assignments, err := parseAssignments(args)
	if err != nil {
		return err
	}

	cur := e.settings.Current()
	e.settings.OnChange(func(s settings.Settings) { cur = s })

	if c.Reset {
		if _, err = e.settings.Replace(ctx, settings.Default()); err != nil {
			return err
		}
	}
	if len(assignments) > 0 {
		_, err = e.settings.Update(ctx, func(s settings.Settings) (settings.Settings, error) {
			for _, a := range assignments {
				var err error
				if s, err = s.SetFlag(a.name, a.value); err != nil {
					return s, err
				}
			}
			return s, nil
		})
		if err != nil {
			return err
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(cur)
	}
	fmt.Print(renderFlags(cur))
	return nil
}
