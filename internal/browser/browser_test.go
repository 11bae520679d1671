package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tubesort/internal/logging"
	"github.com/runnerr0/tubesort/internal/tabs"
)

func ids(list []tabs.Tab) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func sampleTabs() []tabs.Tab {
	return []tabs.Tab{
		{ID: "1", URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
		{ID: "2", URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Discarded: true},
		{ID: "3", URL: "https://www.youtube.com/watch?v=ccccccccccc"},
	}
}

// queryOnly has none of the optional capabilities.
type queryOnly struct{}

func (queryOnly) Query(context.Context) ([]tabs.Tab, error) { return nil, nil }
func (queryOnly) URL(context.Context, string) (string, error) { return "", nil }

func TestApplyMovesToEnd(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(sampleTabs())

	for _, id := range []string{"3", "1", "2"} {
		require.NoError(t, Apply(ctx, s, tabs.Command{Kind: tabs.CommandMove, TabID: id, Index: tabs.MoveToEnd}))
	}

	list, err := s.Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, ids(list))
}

func TestApplyMoveToIndex(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(sampleTabs())

	require.NoError(t, Apply(ctx, s, tabs.Command{Kind: tabs.CommandMove, TabID: "3", Index: 0}))

	list, _ := s.Query(ctx)
	assert.Equal(t, []string{"3", "1", "2"}, ids(list))
}

func TestApplyReload(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(sampleTabs())

	require.NoError(t, Apply(ctx, s, tabs.Command{Kind: tabs.CommandReload, TabID: "2"}))
	list, _ := s.Query(ctx)
	assert.False(t, list[1].Discarded)
	assert.Equal(t, "https://www.youtube.com/watch?v=bbbbbbbbbbb", list[1].URL)

	recorded := "https://www.youtube.com/watch?v=bbbbbbbbbbb&t=95"
	require.NoError(t, Apply(ctx, s, tabs.Command{Kind: tabs.CommandReload, TabID: "2", URL: recorded}))
	u, err := s.URL(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, recorded, u)
}

func TestApplyUnknownTab(t *testing.T) {
	s := NewSnapshot(sampleTabs())

	err := Apply(context.Background(), s, tabs.Command{Kind: tabs.CommandMove, TabID: "99"})
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestApplyUnsupported(t *testing.T) {
	ctx := context.Background()

	err := Apply(ctx, queryOnly{}, tabs.Command{Kind: tabs.CommandMove, TabID: "1"})
	assert.ErrorIs(t, err, ErrUnsupported)

	err = Apply(ctx, queryOnly{}, tabs.Command{Kind: tabs.CommandReload, TabID: "1"})
	assert.ErrorIs(t, err, ErrUnsupported)

	err = Activate(ctx, queryOnly{}, "1")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestApplyUnknownKind(t *testing.T) {
	err := Apply(context.Background(), NewSnapshot(nil), tabs.Command{Kind: "close", TabID: "1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestActivateHighlightsOneTab(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(sampleTabs())

	require.NoError(t, Activate(ctx, s, "2"))

	list, _ := s.Query(ctx)
	assert.False(t, list[0].Highlighted)
	assert.True(t, list[1].Highlighted)
	assert.False(t, list[1].Discarded)
	assert.False(t, list[2].Highlighted)
}

func TestSnapshotFileRoundtrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tabs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "a", "url": "https://youtu.be/aaaaaaaaaaa", "title": "A"},
		{"id": "b", "url": "https://youtu.be/bbbbbbbbbbb", "title": "B", "pinned": true}
	]`), 0644))

	s, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, s.Move(ctx, "a", tabs.MoveToEnd))
	require.NoError(t, s.Save())

	reloaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	list, err := reloaded.Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(list))
	assert.True(t, list[0].Pinned)
}

func TestLoadSnapshotErrors(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadSnapshot(path)
	assert.Error(t, err)
}

func TestSnapshotQueryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(sampleTabs())

	list, _ := s.Query(ctx)
	list[0].ID = "changed"

	again, _ := s.Query(ctx)
	assert.Equal(t, "1", again[0].ID)
}

func TestCDPPagesFilter(t *testing.T) {
	c := NewCDP("http://127.0.0.1:9222", []string{"youtube.com", "youtu.be"}, logging.Discard())

	infos := []*target.Info{
		{TargetID: "T1", Type: "page", URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
		{TargetID: "T2", Type: "service_worker", URL: "https://www.youtube.com/sw.js"},
		{TargetID: "T3", Type: "page", URL: "https://example.com/"},
		{TargetID: "T4", Type: "page", URL: "https://youtu.be/bbbbbbbbbbb"},
	}

	var got []target.ID
	for _, info := range c.pages(infos) {
		got = append(got, info.TargetID)
	}
	assert.Equal(t, []target.ID{"T1", "T4"}, got)
}

func TestDetachUnbindsTarget(t *testing.T) {
	ctx, cancel := chromedp.NewContext(context.Background(), chromedp.WithTargetID("T1"))
	defer cancel()
	c := chromedp.FromContext(ctx)
	c.Target = &chromedp.Target{TargetID: "T1", SessionID: "S1"}

	err := detach(ctx)
	assert.Error(t, err, "no browser is connected")
	assert.Nil(t, c.Target, "a cancelled context must not find a tab to close")
}

func TestDetachWithoutSession(t *testing.T) {
	assert.NoError(t, detach(context.Background()))

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()
	assert.NoError(t, detach(ctx))
}

func TestBoundFollowsParentOnly(t *testing.T) {
	session := context.WithoutCancel(context.Background())
	parent, cancelParent := context.WithCancel(context.Background())

	ctx, stop := bound(session, parent)
	defer stop()
	require.NoError(t, ctx.Err())

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context outlived its parent")
	}
	assert.NoError(t, session.Err())
}

func TestReloadAction(t *testing.T) {
	assert.IsType(t, &page.ReloadParams{}, reloadAction(""))
	assert.IsType(t, chromedp.ActionFunc(nil), reloadAction("https://youtu.be/aaaaaaaaaaa"))
}
