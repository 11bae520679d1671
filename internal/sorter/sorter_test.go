package sorter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tubesort/internal/browser"
	"github.com/runnerr0/tubesort/internal/logging"
	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
)

// fakeCache is an in-memory Cache.
type fakeCache struct {
	mu      sync.Mutex
	videos  map[string]tabs.Metadata
	urls    map[string]string
	actions []string
	failAll error
}

func newFakeCache(videos ...tabs.Metadata) *fakeCache {
	c := &fakeCache{videos: map[string]tabs.Metadata{}, urls: map[string]string{}}
	for _, v := range videos {
		c.videos[v.VideoID] = v
	}
	return c
}

func (c *fakeCache) AllMetadata(context.Context) (map[string]tabs.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll != nil {
		return nil, c.failAll
	}
	out := make(map[string]tabs.Metadata, len(c.videos))
	for k, v := range c.videos {
		out[k] = v
	}
	return out, nil
}

func (c *fakeCache) DeleteMetadata(_ context.Context, ids ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := c.videos[id]; ok {
			delete(c.videos, id)
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) TabURL(_ context.Context, tabID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.urls[tabID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return u, nil
}

func (c *fakeCache) TabIDs(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.urls))
	for id := range c.urls {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *fakeCache) DeleteTabURL(_ context.Context, tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.urls, tabID)
	return nil
}

func (c *fakeCache) LogAction(_ context.Context, action, _, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
	return nil
}

// memSettings satisfies settings.Store.
type memSettings map[string]string

func (m memSettings) GetValue(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memSettings) SetValue(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

// queryOnly is a driver with no optional capabilities.
type queryOnly struct{ list []tabs.Tab }

func (q queryOnly) Query(context.Context) ([]tabs.Tab, error) { return q.list, nil }
func (q queryOnly) URL(context.Context, string) (string, error) { return "", nil }

// brokenMover fails every move.
type brokenMover struct{ queryOnly }

func (brokenMover) Move(context.Context, string, int) error { return errors.New("tab strip locked") }

// cancelOnMove cancels the sort's context on the first move.
type cancelOnMove struct {
	*browser.Snapshot
	cancel context.CancelFunc
	moves  int
}

func (c *cancelOnMove) Move(ctx context.Context, tabID string, index int) error {
	c.moves++
	c.cancel()
	return c.Snapshot.Move(ctx, tabID, index)
}

func watch(id string) string { return "https://www.youtube.com/watch?v=" + id }

func fixture(t *testing.T) (*Service, *fakeCache, *settings.Service, []tabs.Tab) {
	t.Helper()
	cache := newFakeCache(
		tabs.Metadata{VideoID: "bananavideo", Title: "Banana", Views: 10},
		tabs.Metadata{VideoID: "applevideo1", Title: "Apple", Views: 20},
		tabs.Metadata{VideoID: "closedvideo", Title: "Closed"},
	)
	set := settings.NewService(memSettings{}, logging.Discard())
	svc := New(cache, set, logging.Discard())

	open := []tabs.Tab{
		{ID: "1", URL: watch("bananavideo"), Title: "b"},
		{ID: "2", URL: watch("applevideo1"), Title: "a", Discarded: true},
		{ID: "3", URL: watch("pinnedvideo"), Title: "p", Pinned: true},
	}
	return svc, cache, set, open
}

func tabIDs(list []tabs.Tab) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func TestSortAppliesPlan(t *testing.T) {
	svc, cache, _, open := fixture(t)
	ctx := context.Background()
	snap := browser.NewSnapshot(open)

	res := svc.Sort(ctx, snap, Options{})
	require.Empty(t, res.Error)

	assert.NotEmpty(t, res.ID)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Apple", res.Entries[0].Title)
	assert.Equal(t, tabs.Stats{Tabs: 2, Views: 30}, res.Stats)

	// moves for 2 then 1, then the wake-up reload of the discarded tab
	require.Len(t, res.Commands, 3)
	assert.Equal(t, 3, res.Applied())
	assert.Zero(t, res.Skipped())

	list, err := snap.Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, tabIDs(list))
	assert.False(t, list[1].Discarded, "sleepy tab should be woken")

	assert.Equal(t, []string{"closedvideo"}, res.Evicted)
	all, _ := cache.AllMetadata(ctx)
	assert.NotContains(t, all, "closedvideo")
	assert.Contains(t, cache.actions, storage.ActionEvict)
	assert.Contains(t, cache.actions, storage.ActionSort)
	assert.False(t, svc.Busy())
}

func TestSortDryRunTouchesNothing(t *testing.T) {
	svc, cache, _, open := fixture(t)
	ctx := context.Background()
	snap := browser.NewSnapshot(open)

	res := svc.Sort(ctx, snap, Options{DryRun: true})
	require.Empty(t, res.Error)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Commands, 3)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, []string{"closedvideo"}, res.Evicted)

	list, _ := snap.Query(ctx)
	assert.Equal(t, []string{"1", "2", "3"}, tabIDs(list))

	all, _ := cache.AllMetadata(ctx)
	assert.Contains(t, all, "closedvideo")
	assert.Empty(t, cache.actions)
}

func TestSortSkipsUnsupportedCommands(t *testing.T) {
	svc, _, _, open := fixture(t)

	res := svc.Sort(context.Background(), queryOnly{list: open}, Options{})
	require.Empty(t, res.Error)
	assert.Zero(t, res.Applied())
	assert.Equal(t, 3, res.Skipped())
}

func TestSortReportsCommandErrors(t *testing.T) {
	svc, _, _, open := fixture(t)

	res := svc.Sort(context.Background(), brokenMover{queryOnly{list: open}}, Options{})
	require.NotEmpty(t, res.Error)
	assert.Contains(t, res.Error, "tab strip locked")
	// the reload is still attempted and skipped, not aborted
	assert.Equal(t, 1, res.Skipped())
	assert.False(t, res.Outcomes[0].Skipped)
	assert.NotEmpty(t, res.Outcomes[0].Error)
}

func TestSortReportsCacheFailure(t *testing.T) {
	svc, cache, _, open := fixture(t)
	cache.failAll = errors.New("disk gone")

	res := svc.Sort(context.Background(), browser.NewSnapshot(open), Options{})
	assert.Contains(t, res.Error, "disk gone")
	assert.False(t, svc.Busy())
}

func TestSortRejectsConcurrentRun(t *testing.T) {
	svc, _, _, open := fixture(t)
	svc.busy.Store(true)

	res := svc.Sort(context.Background(), browser.NewSnapshot(open), Options{})
	assert.Equal(t, ErrBusy.Error(), res.Error)
	assert.True(t, svc.Busy(), "a rejected sort must not clear another run's flag")
}

func TestSortUsesSettingsSnapshot(t *testing.T) {
	svc, _, set, open := fixture(t)
	ctx := context.Background()

	_, err := set.SetRuleAsc(ctx, settings.AttrTitle, true)
	require.NoError(t, err)

	res := svc.Sort(ctx, browser.NewSnapshot(open), Options{DryRun: true})
	require.Empty(t, res.Error)
	assert.Equal(t, "Banana", res.Entries[0].Title)
}

func TestPlanCarriesRecordedURL(t *testing.T) {
	svc, cache, _, open := fixture(t)
	recorded := watch("applevideo1") + "&t=42"
	cache.urls["2"] = recorded

	res, err := svc.Plan(context.Background(), open, true)
	require.NoError(t, err)

	var reload *tabs.Command
	for i := range res.Commands {
		if res.Commands[i].Kind == tabs.CommandReload {
			reload = &res.Commands[i]
		}
	}
	require.NotNil(t, reload)
	assert.Equal(t, "2", reload.TabID)
	assert.Equal(t, recorded, reload.URL)
}

func TestPlanForceReload(t *testing.T) {
	svc, _, set, open := fixture(t)
	ctx := context.Background()
	_, err := set.SetFlag(ctx, settings.FlagForceReload, true)
	require.NoError(t, err)

	res, err := svc.Plan(ctx, open, true)
	require.NoError(t, err)

	var phases []tabs.Phase
	for _, c := range res.Commands {
		phases = append(phases, c.Phase)
	}
	assert.Equal(t, []tabs.Phase{tabs.PhaseBefore, tabs.PhaseBefore, tabs.PhaseMove, tabs.PhaseMove}, phases)
}

func TestPlanKeepsMetadataForPinnedTab(t *testing.T) {
	svc, cache, _, open := fixture(t)
	ctx := context.Background()
	cache.videos["pinnedvideo"] = tabs.Metadata{VideoID: "pinnedvideo", Title: "Pinned"}

	res, err := svc.Plan(ctx, open, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"closedvideo"}, res.Evicted)

	all, _ := cache.AllMetadata(ctx)
	assert.Contains(t, all, "pinnedvideo")
	for _, e := range res.Entries {
		assert.NotEqual(t, "3", e.TabID, "pinned tabs stay out of the list")
	}
}

func TestPlanForgetsClosedTabURLs(t *testing.T) {
	svc, cache, _, open := fixture(t)
	ctx := context.Background()
	cache.urls["2"] = watch("applevideo1") + "&t=42"
	cache.urls["gone-tab"] = watch("closedvideo")

	_, err := svc.Plan(ctx, open, false)
	require.NoError(t, err)

	_, err = cache.TabURL(ctx, "gone-tab")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	u, err := cache.TabURL(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, watch("applevideo1")+"&t=42", u)
	assert.Contains(t, cache.actions, storage.ActionForget)
}

func TestPlanDryRunKeepsTabURLs(t *testing.T) {
	svc, cache, _, open := fixture(t)
	ctx := context.Background()
	cache.urls["gone-tab"] = watch("closedvideo")

	_, err := svc.Plan(ctx, open, true)
	require.NoError(t, err)

	_, err = cache.TabURL(ctx, "gone-tab")
	assert.NoError(t, err)
	assert.NotContains(t, cache.actions, storage.ActionForget)
}

func TestSortStopsDelayOnCancel(t *testing.T) {
	svc, _, _, open := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	drv := &cancelOnMove{Snapshot: browser.NewSnapshot(open), cancel: cancel}

	start := time.Now()
	res := svc.Sort(ctx, drv, Options{Delay: time.Hour})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, res.Error, context.Canceled.Error())
	assert.Equal(t, 1, drv.moves)
	assert.Len(t, res.Outcomes, 1)
	assert.Equal(t, 1, res.Applied())
	assert.False(t, svc.Busy())
}

func TestPause(t *testing.T) {
	require.NoError(t, pause(context.Background(), 0))
	require.NoError(t, pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pause(ctx, time.Hour), context.Canceled)
}

func TestView(t *testing.T) {
	svc, cache, _, open := fixture(t)

	v, err := svc.View(context.Background(), open)
	require.NoError(t, err)
	assert.Len(t, v.Entries, 2)
	assert.Equal(t, []string{"closedvideo"}, v.Stale)

	// View never evicts.
	all, _ := cache.AllMetadata(context.Background())
	assert.Contains(t, all, "closedvideo")
}

func TestGroupByPhase(t *testing.T) {
	cmds := []tabs.Command{
		{Phase: tabs.PhaseBefore}, {Phase: tabs.PhaseBefore},
		{Phase: tabs.PhaseMove},
		{Phase: tabs.PhaseAfter},
	}
	groups := groupByPhase(cmds)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{0, 1}, groups[0].indexes)
	assert.Equal(t, []int{2}, groups[1].indexes)
	assert.Equal(t, tabs.PhaseAfter, groups[2].phase)
}

func TestNewPlanIDUnique(t *testing.T) {
	assert.NotEqual(t, newPlanID(), newPlanID())
}
