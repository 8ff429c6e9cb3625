package dvr

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// RouteTable is an in-memory routing table keyed by destination. It is
// goroutine safe; a single mutex serializes every operation, reads included.
// The zero value is not usable, create tables with NewRouteTable.
type RouteTable struct {
	mu     sync.Mutex
	routes map[string]Route

	logger logrus.FieldLogger
}

// NewRouteTable returns an empty table. Added and deleted routes are
// reported to logger. If logger is nil, nothing is logged.
func NewRouteTable(logger logrus.FieldLogger) *RouteTable {
	if logger == nil {
		logger = discardLogger()
	}

	return &RouteTable{
		routes: make(map[string]Route),
		logger: logger,
	}
}

// AddRoute inserts the route for destination, replacing any existing route
// for the same destination.
func (t *RouteTable) AddRoute(destination, nextHop string, metric int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.routes[destination] = Route{
		Destination: destination,
		NextHop:     nextHop,
		Metric:      metric,
	}
	tmetrics.adds.Add(1)
	tmetrics.size.Set(float64(len(t.routes)))

	t.logger.WithFields(logrus.Fields{
		"destination": destination,
		"next_hop":    nextHop,
	}).Infoln("Added route")
}

// DeleteRoute removes the route for destination. Deleting a destination
// without a route is a no-op.
func (t *RouteTable) DeleteRoute(destination string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.routes, destination)
	tmetrics.deletes.Add(1)
	tmetrics.size.Set(float64(len(t.routes)))

	t.logger.WithField("destination", destination).Infoln("Deleted route")
}

// GetRoute returns the route for destination, or NotFound.
func (t *RouteTable) GetRoute(destination string) Route {
	if route, ok := t.Lookup(destination); ok {
		return route
	}

	return NotFound
}

// Lookup returns the route for destination and whether it exists.
func (t *RouteTable) Lookup(destination string) (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	route, ok := t.routes[destination]

	if ok {
		tmetrics.lookups.With("result", "hit").Add(1)
	} else {
		tmetrics.lookups.With("result", "miss").Add(1)
	}

	return route, ok
}

// GetAllRoutes returns a copy of the table. The copy is not affected by later
// changes to the table, and changing it does not affect the table.
func (t *RouteTable) GetAllRoutes() map[string]Route {
	t.mu.Lock()
	defer t.mu.Unlock()

	routes := make(map[string]Route, len(t.routes))
	for destination, route := range t.routes {
		routes[destination] = route
	}

	return routes
}

// Len returns the number of routes in the table.
func (t *RouteTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.routes)
}

// replace swaps the table contents for routes. Used when restoring from a
// snapshot; routes must not be used by the caller afterwards.
func (t *RouteTable) replace(routes map[string]Route) {
	if routes == nil {
		routes = make(map[string]Route)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.routes = routes
	tmetrics.size.Set(float64(len(t.routes)))

	t.logger.WithField("routes", len(routes)).Infoln("Replaced route table")
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}
