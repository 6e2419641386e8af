// Package route defines the destinations a column can navigate to and the
// per-column back-stack that holds them.
package route

import (
	"encoding/json"
	"fmt"

	"github.com/glabrego/deck-cli/internal/timeline"
)

// Route is a closed set of destinations. The unexported method keeps
// other packages from adding variants, so type switches over Route can
// stay exhaustive.
type Route interface {
	isRoute()
}

// TimelineRoute shows the feed for Kind.
type TimelineRoute struct {
	Kind timeline.Kind
}

// AddColumnRoute is the column picker.
type AddColumnRoute struct{}

type AccountsRoute struct{}

type SettingsRoute struct{}

func (TimelineRoute) isRoute()  {}
func (AddColumnRoute) isRoute() {}
func (AccountsRoute) isRoute()  {}
func (SettingsRoute) isRoute()  {}

func Timeline(kind timeline.Kind) Route { return TimelineRoute{Kind: kind} }

// Title is the header shown above a column whose top route is r.
func Title(r Route) string {
	switch r := r.(type) {
	case TimelineRoute:
		return r.Kind.String()
	case AddColumnRoute:
		return "add column"
	case AccountsRoute:
		return "accounts"
	case SettingsRoute:
		return "settings"
	default:
		panic(fmt.Sprintf("route: unhandled variant %T", r))
	}
}

// KindOf returns the feed a route shows, if any.
func KindOf(r Route) (timeline.Kind, bool) {
	if tr, ok := r.(TimelineRoute); ok {
		return tr.Kind, true
	}
	return timeline.Kind{}, false
}

type routeJSON struct {
	Type string         `json:"type"`
	Kind *timeline.Kind `json:"kind,omitempty"`
}

func MarshalRoutes(routes []Route) ([]byte, error) {
	out := make([]routeJSON, 0, len(routes))
	for _, r := range routes {
		switch r := r.(type) {
		case TimelineRoute:
			kind := r.Kind
			out = append(out, routeJSON{Type: "timeline", Kind: &kind})
		case AddColumnRoute:
			out = append(out, routeJSON{Type: "add_column"})
		case AccountsRoute:
			out = append(out, routeJSON{Type: "accounts"})
		case SettingsRoute:
			out = append(out, routeJSON{Type: "settings"})
		default:
			return nil, fmt.Errorf("marshal route: unhandled variant %T", r)
		}
	}
	return json.Marshal(out)
}

func UnmarshalRoutes(b []byte) ([]Route, error) {
	var in []routeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	routes := make([]Route, 0, len(in))
	for _, r := range in {
		switch r.Type {
		case "timeline":
			if r.Kind == nil {
				return nil, fmt.Errorf("decode routes: timeline route without kind")
			}
			routes = append(routes, TimelineRoute{Kind: *r.Kind})
		case "add_column":
			routes = append(routes, AddColumnRoute{})
		case "accounts":
			routes = append(routes, AccountsRoute{})
		case "settings":
			routes = append(routes, SettingsRoute{})
		default:
			return nil, fmt.Errorf("decode routes: unknown route type %q", r.Type)
		}
	}
	return routes, nil
}
