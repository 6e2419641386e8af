// Package columns manages the ordered set of deck columns. Each column owns
// a route.Router; Columns keeps the timeline cache's reference counts in
// step with which columns show which feeds.
package columns

import (
	"context"
	"errors"
	"fmt"

	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/route"
	"github.com/glabrego/deck-cli/internal/timeline"
)

var ErrColumnIndex = errors.New("column index out of range")

type Column struct {
	router *route.Router
}

func NewColumn(routes ...route.Route) *Column {
	return &Column{router: route.NewRouter(routes...)}
}

func (c *Column) Router() *route.Router { return c.router }

// Kinds lists the distinct feeds referenced anywhere in the column's stack,
// in stack order.
func (c *Column) Kinds() []timeline.Kind {
	var out []timeline.Kind
	seen := make(map[timeline.Kind]struct{})
	for _, r := range c.router.Routes() {
		kind, ok := route.KindOf(r)
		if !ok {
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	return out
}

func (c *Column) references(kind timeline.Kind) bool {
	for _, r := range c.router.Routes() {
		if k, ok := route.KindOf(r); ok && k == kind {
			return true
		}
	}
	return false
}

// IntermediaryRoute is one entry of a bulk import: either a materialized
// timeline or a plain route.
type IntermediaryRoute struct {
	Timeline *timeline.Timeline
	Route    route.Route
}

func IntermediaryTimeline(tl *timeline.Timeline) IntermediaryRoute {
	return IntermediaryRoute{Timeline: tl}
}

func IntermediaryPlain(r route.Route) IntermediaryRoute {
	return IntermediaryRoute{Route: r}
}

// Columns is not safe for concurrent use; the UI loop owns it.
type Columns struct {
	columns []*Column

	// selected is the column focused for keyboard navigation. Removing
	// columns does not adjust it, see Selected.
	selected int
}

func New() *Columns { return &Columns{} }

// AddTimelineColumn appends a column showing kind and opens kind in cache.
// The result tells whether a new subscription was made.
func (cs *Columns) AddTimelineColumn(ctx context.Context, cache *timeline.Cache, reader timeline.NoteReader, kind timeline.Kind) timeline.OpenResult {
	cs.columns = append(cs.columns, NewColumn(route.Timeline(kind)))
	return cache.Open(ctx, reader, kind)
}

func (cs *Columns) NewColumnPicker() {
	cs.AddColumn(NewColumn(route.AddColumnRoute{}))
}

func (cs *Columns) AddColumn(c *Column) {
	cs.columns = append(cs.columns, c)
}

// InsertIntermediaryRoutes appends one column built from routes. Embedded
// timelines go straight into the cache without reference counting; the
// caller reconciles counts afterwards.
func (cs *Columns) InsertIntermediaryRoutes(cache *timeline.Cache, routes []IntermediaryRoute) {
	built := make([]route.Route, 0, len(routes))
	for _, ir := range routes {
		if ir.Timeline != nil {
			cache.Insert(ir.Timeline)
			built = append(built, route.Timeline(ir.Timeline.Kind))
			continue
		}
		if ir.Route != nil {
			built = append(built, ir.Route)
		}
	}
	if len(built) == 0 {
		return
	}
	cs.columns = append(cs.columns, NewColumn(built...))
}

// DeleteColumn removes the column at index and returns the distinct feeds
// it referenced. The caller must Release each of them in the timeline
// cache. A column picker is added if no column is left.
func (cs *Columns) DeleteColumn(index int) ([]timeline.Kind, error) {
	if index < 0 || index >= len(cs.columns) {
		return nil, fmt.Errorf("delete column %d of %d: %w", index, len(cs.columns), ErrColumnIndex)
	}
	kinds := cs.columns[index].Kinds()

	cs.columns = append(cs.columns[:index], cs.columns[index+1:]...)
	if len(cs.columns) == 0 {
		cs.NewColumnPicker()
	}
	return kinds, nil
}

// MoveColumn swaps the columns at from and to.
func (cs *Columns) MoveColumn(from, to int) {
	if from == to || from < 0 || to < 0 || from >= len(cs.columns) || to >= len(cs.columns) {
		return
	}
	cs.columns[from], cs.columns[to] = cs.columns[to], cs.columns[from]
}

// PushRoute navigates column index to r. A feed route opens its kind in
// cache only when the column does not already reference it.
func (cs *Columns) PushRoute(ctx context.Context, index int, cache *timeline.Cache, reader timeline.NoteReader, r route.Route) (timeline.OpenResult, bool) {
	col := cs.columns[index]
	result, opened := cs.openFor(ctx, col, cache, reader, r)
	col.router.Push(r)
	return result, opened
}

// PopRoute navigates column index back. When the popped route was the
// column's last reference to a feed, that kind is returned for the caller
// to Release.
func (cs *Columns) PopRoute(index int) (timeline.Kind, bool) {
	col := cs.columns[index]
	popped, ok := col.router.Pop()
	if !ok {
		return timeline.Kind{}, false
	}
	return orphanOf(col, popped)
}

// ReplaceTop swaps the top route of column index for r, opening r's feed if
// needed. The old top's feed is returned when nothing else in the column
// references it.
func (cs *Columns) ReplaceTop(ctx context.Context, index int, cache *timeline.Cache, reader timeline.NoteReader, r route.Route) (timeline.Kind, bool) {
	col := cs.columns[index]
	cs.openFor(ctx, col, cache, reader, r)
	old := col.router.Replace(r)
	return orphanOf(col, old)
}

func (cs *Columns) openFor(ctx context.Context, col *Column, cache *timeline.Cache, reader timeline.NoteReader, r route.Route) (timeline.OpenResult, bool) {
	kind, ok := route.KindOf(r)
	if !ok || col.references(kind) {
		return 0, false
	}
	return cache.Open(ctx, reader, kind), true
}

func orphanOf(col *Column, removed route.Route) (timeline.Kind, bool) {
	kind, ok := route.KindOf(removed)
	if !ok || col.references(kind) {
		return timeline.Kind{}, false
	}
	return kind, true
}

// ReferencedKinds counts, per feed, how many columns reference it.
func (cs *Columns) ReferencedKinds() map[timeline.Kind]int {
	refs := make(map[timeline.Kind]int)
	for _, col := range cs.columns {
		for _, kind := range col.Kinds() {
			refs[kind]++
		}
	}
	return refs
}

// FirstRouter returns the first column's router, adding a column picker
// when there are no columns.
func (cs *Columns) FirstRouter() *route.Router {
	if len(cs.columns) == 0 {
		cs.NewColumnPicker()
	}
	return cs.columns[0].router
}

func (cs *Columns) Len() int { return len(cs.columns) }

func (cs *Columns) Column(index int) *Column { return cs.columns[index] }

func (cs *Columns) Columns() []*Column { return cs.columns }

func (cs *Columns) SelectedIndex() int { return cs.selected }

// Selected returns the focused column. ok is false when the selection went
// stale after columns were removed.
func (cs *Columns) Selected() (*Column, bool) {
	if cs.selected < 0 || cs.selected >= len(cs.columns) {
		return nil, false
	}
	return cs.columns[cs.selected], true
}

func (cs *Columns) SelectLeft() {
	if cs.selected-1 < 0 {
		return
	}
	cs.selected--
}

func (cs *Columns) SelectRight() {
	if cs.selected+1 >= len(cs.columns) {
		return
	}
	cs.selected++
}

// SelectUp and SelectDown are reserved for a grid layout. Columns are a
// single row, so they do nothing.
func (cs *Columns) SelectUp() {
	logs.Info.Printf("columns: vertical selection is not supported")
}

func (cs *Columns) SelectDown() {
	logs.Info.Printf("columns: vertical selection is not supported")
}
