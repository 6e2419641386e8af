package columns

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glabrego/deck-cli/internal/nostr"
	"github.com/glabrego/deck-cli/internal/route"
	"github.com/glabrego/deck-cli/internal/timeline"
)

type fakePool struct {
	subscribes   int
	unsubscribed []nostr.SubscriptionID
}

func (p *fakePool) Subscribe([]nostr.Filter) nostr.SubscriptionID {
	p.subscribes++
	return nostr.SubscriptionID(fmt.Sprintf("sub-%d", p.subscribes))
}

func (p *fakePool) Unsubscribe(id nostr.SubscriptionID) {
	p.unsubscribed = append(p.unsubscribed, id)
}

func newFixture() (*Columns, *timeline.Cache, *fakePool) {
	pool := &fakePool{}
	return New(), timeline.NewCache(pool), pool
}

func TestAddTimelineColumn_ReportsNewThenReused(t *testing.T) {
	cols, cache, pool := newFixture()
	ctx := context.Background()

	if got := cols.AddTimelineColumn(ctx, cache, nil, timeline.Universe()); got != timeline.OpenNew {
		t.Fatalf("expected new, got %s", got)
	}
	if got := cols.AddTimelineColumn(ctx, cache, nil, timeline.Universe()); got != timeline.OpenReused {
		t.Fatalf("expected reused, got %s", got)
	}
	if cols.Len() != 2 {
		t.Fatalf("expected 2 columns, got %d", cols.Len())
	}
	if pool.subscribes != 1 {
		t.Fatalf("expected one subscription, got %d", pool.subscribes)
	}
}

func TestDeleteColumn_ReturnsDistinctKinds(t *testing.T) {
	cols, cache, _ := newFixture()
	ctx := context.Background()
	a := timeline.Hashtag("a")
	b := timeline.Hashtag("b")

	cols.AddTimelineColumn(ctx, cache, nil, a)
	cols.PushRoute(ctx, 0, cache, nil, route.Timeline(b))
	if _, opened := cols.PushRoute(ctx, 0, cache, nil, route.Timeline(a)); opened {
		t.Fatal("second route for a kind already in the column must not reopen it")
	}

	kinds, err := cols.DeleteColumn(0)
	if err != nil {
		t.Fatalf("DeleteColumn returned error: %v", err)
	}
	if diff := cmp.Diff([]timeline.Kind{a, b}, kinds); diff != "" {
		t.Fatalf("unexpected kinds (-want +got):\n%s", diff)
	}

	for _, k := range kinds {
		cache.Release(k)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected every timeline released exactly once, %d left", cache.Len())
	}
}

func TestDeleteColumn_NeverLeavesSetEmpty(t *testing.T) {
	cols, cache, _ := newFixture()
	cols.AddTimelineColumn(context.Background(), cache, nil, timeline.Universe())

	if _, err := cols.DeleteColumn(0); err != nil {
		t.Fatalf("DeleteColumn returned error: %v", err)
	}
	if cols.Len() != 1 {
		t.Fatalf("expected picker column, got %d columns", cols.Len())
	}
	if _, ok := cols.Column(0).Router().Top().(route.AddColumnRoute); !ok {
		t.Fatalf("expected add column route, got %T", cols.Column(0).Router().Top())
	}
}

func TestDeleteColumn_OutOfRange(t *testing.T) {
	cols, _, _ := newFixture()
	cols.NewColumnPicker()
	for _, idx := range []int{-1, 1, 5} {
		if _, err := cols.DeleteColumn(idx); !errors.Is(err, ErrColumnIndex) {
			t.Fatalf("expected ErrColumnIndex for %d, got %v", idx, err)
		}
	}
	if cols.Len() != 1 {
		t.Fatalf("failed delete must not change columns, got %d", cols.Len())
	}
}

func TestFirstRouter_CreatesPickerWhenEmpty(t *testing.T) {
	cols := New()
	r := cols.FirstRouter()
	if r == nil || r.Len() != 1 {
		t.Fatal("expected a valid router")
	}
	if _, ok := r.Top().(route.AddColumnRoute); !ok {
		t.Fatalf("expected picker, got %T", r.Top())
	}
	if cols.FirstRouter() != r || cols.Len() != 1 {
		t.Fatal("FirstRouter must not add a second picker")
	}
}

func TestMoveColumn_Swaps(t *testing.T) {
	cols, cache, _ := newFixture()
	ctx := context.Background()
	kinds := []timeline.Kind{timeline.Hashtag("0"), timeline.Hashtag("1"), timeline.Hashtag("2")}
	for _, k := range kinds {
		cols.AddTimelineColumn(ctx, cache, nil, k)
	}

	cols.MoveColumn(0, 2)
	cols.MoveColumn(1, 1)
	cols.MoveColumn(0, 3)
	cols.MoveColumn(-1, 0)

	var got []timeline.Kind
	for _, c := range cols.Columns() {
		got = append(got, c.Kinds()[0])
	}
	want := []timeline.Kind{kinds[2], kinds[1], kinds[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestSelection_Clamps(t *testing.T) {
	cols := New()
	for i := 0; i < 3; i++ {
		cols.NewColumnPicker()
	}

	cols.SelectLeft()
	if cols.SelectedIndex() != 0 {
		t.Fatalf("select left at 0 must stay, got %d", cols.SelectedIndex())
	}
	cols.SelectRight()
	cols.SelectRight()
	cols.SelectRight()
	if cols.SelectedIndex() != 2 {
		t.Fatalf("select right at end must stay at 2, got %d", cols.SelectedIndex())
	}
	cols.SelectUp()
	cols.SelectDown()
	if cols.SelectedIndex() != 2 {
		t.Fatalf("vertical selection must not move, got %d", cols.SelectedIndex())
	}
	if _, ok := cols.Selected(); !ok {
		t.Fatal("expected selected column")
	}

	if _, err := cols.DeleteColumn(2); err != nil {
		t.Fatalf("DeleteColumn returned error: %v", err)
	}
	if _, ok := cols.Selected(); ok {
		t.Fatal("selection past the end should report stale")
	}
}

func TestPopRoute_ReleasesOnlyLastReference(t *testing.T) {
	cols, cache, _ := newFixture()
	ctx := context.Background()
	root := timeline.Universe()
	profile := timeline.Hashtag("p")

	cols.AddTimelineColumn(ctx, cache, nil, root)
	cols.PushRoute(ctx, 0, cache, nil, route.Timeline(profile))
	cols.PushRoute(ctx, 0, cache, nil, route.AccountsRoute{})
	cols.PushRoute(ctx, 0, cache, nil, route.Timeline(profile))

	if _, ok := cols.PopRoute(0); ok {
		t.Fatal("profile still referenced lower in the stack")
	}
	if _, ok := cols.PopRoute(0); ok {
		t.Fatal("accounts route has no feed")
	}
	kind, ok := cols.PopRoute(0)
	if !ok || kind != profile {
		t.Fatalf("expected profile orphaned, got %v %v", kind, ok)
	}
	if _, ok := cols.PopRoute(0); ok {
		t.Fatal("root route cannot be popped")
	}
}

func TestReplaceTop_OpensNewAndOrphansOld(t *testing.T) {
	cols, cache, pool := newFixture()
	ctx := context.Background()
	cols.NewColumnPicker()

	if _, ok := cols.ReplaceTop(ctx, 0, cache, nil, route.Timeline(timeline.Universe())); ok {
		t.Fatal("picker has no feed to orphan")
	}
	if tl, ok := cache.Get(timeline.Universe()); !ok || tl.Refs() != 1 {
		t.Fatal("expected universe opened with one ref")
	}

	kind, ok := cols.ReplaceTop(ctx, 0, cache, nil, route.Timeline(timeline.Search("x")))
	if !ok || kind != timeline.Universe() {
		t.Fatalf("expected universe orphaned, got %v %v", kind, ok)
	}
	if pool.subscribes != 2 {
		t.Fatalf("expected two subscriptions, got %d", pool.subscribes)
	}
}

func TestInsertIntermediaryRoutes_BypassesRefcount(t *testing.T) {
	cols, cache, pool := newFixture()
	tl := timeline.NewTimeline(timeline.Universe())

	cols.InsertIntermediaryRoutes(cache, []IntermediaryRoute{
		IntermediaryTimeline(tl),
		IntermediaryPlain(route.AccountsRoute{}),
	})

	if cols.Len() != 1 || cols.Column(0).Router().Len() != 2 {
		t.Fatalf("expected one column with two routes")
	}
	got, ok := cache.Get(timeline.Universe())
	if !ok || got != tl {
		t.Fatal("expected timeline inserted into cache")
	}
	if got.Refs() != 0 || pool.subscribes != 0 {
		t.Fatalf("bulk insert must not count or subscribe: refs=%d subs=%d", got.Refs(), pool.subscribes)
	}

	cols.InsertIntermediaryRoutes(cache, nil)
	if cols.Len() != 1 {
		t.Fatal("empty import must not add a column")
	}

	refs := cols.ReferencedKinds()
	if diff := cmp.Diff(map[timeline.Kind]int{timeline.Universe(): 1}, refs); diff != "" {
		t.Fatalf("unexpected refs (-want +got):\n%s", diff)
	}
}
