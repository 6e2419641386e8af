package route

// Router is one column's back-stack. The last route is the visible one and
// the stack is never empty.
type Router struct {
	routes []Route
}

// NewRouter panics when given no routes: an empty stack has nothing to show.
func NewRouter(routes ...Route) *Router {
	if len(routes) == 0 {
		panic("route: NewRouter needs at least one route")
	}
	return &Router{routes: append([]Route(nil), routes...)}
}

func (r *Router) Routes() []Route { return r.routes }

func (r *Router) Len() int { return len(r.routes) }

func (r *Router) Top() Route { return r.routes[len(r.routes)-1] }

func (r *Router) Push(route Route) { r.routes = append(r.routes, route) }

// Pop removes the top route. The root route stays; ok is false then.
func (r *Router) Pop() (Route, bool) {
	if len(r.routes) <= 1 {
		return nil, false
	}
	top := r.routes[len(r.routes)-1]
	r.routes = r.routes[:len(r.routes)-1]
	return top, true
}

// Replace swaps the top route for route and returns the old one.
func (r *Router) Replace(route Route) Route {
	old := r.routes[len(r.routes)-1]
	r.routes[len(r.routes)-1] = route
	return old
}
