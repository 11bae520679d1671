package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runnerr0/tubesort/internal/settings"
)

func summarize(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = string(c.Kind) + ":" + c.TabID
	}
	return out
}

func TestPlanMovesInSortedOrder(t *testing.T) {
	sorted := []Entry{{TabID: "3"}, {TabID: "1"}, {TabID: "2"}}

	cmds := Plan(sorted, settings.Default())
	assert.Equal(t, []string{"move:3", "move:1", "move:2"}, summarize(cmds))
	for _, c := range cmds {
		assert.Equal(t, MoveToEnd, c.Index)
		assert.Equal(t, PhaseMove, c.Phase)
	}
}

func TestPlanWakesSleepyTabsAfterMoving(t *testing.T) {
	sorted := []Entry{{TabID: "1", Sleepy: true}, {TabID: "2"}, {TabID: "3", Sleepy: true}}

	cmds := Plan(sorted, settings.Default())
	assert.Equal(t, []string{"move:1", "move:2", "move:3", "reload:1", "reload:3"}, summarize(cmds))
	assert.Equal(t, PhaseAfter, cmds[3].Phase)
}

func TestPlanIgnoreInactiveSkipsWakeUp(t *testing.T) {
	s, _ := settings.Default().SetFlag(settings.FlagIgnoreInactive, true)
	sorted := []Entry{{TabID: "1", Sleepy: true}}

	assert.Equal(t, []string{"move:1"}, summarize(Plan(sorted, s)))
}

func TestPlanForceReloadReloadsEverythingFirst(t *testing.T) {
	s, _ := settings.Default().SetFlag(settings.FlagForceReload, true)
	sorted := []Entry{{TabID: "1", Sleepy: true}, {TabID: "2"}}

	cmds := Plan(sorted, s)
	assert.Equal(t, []string{"reload:1", "reload:2", "move:1", "move:2"}, summarize(cmds))
	assert.Equal(t, PhaseBefore, cmds[0].Phase)
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, Plan(nil, settings.Default()))
}
