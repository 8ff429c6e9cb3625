package dvr

import "fmt"

// Route maps a destination to the next hop traffic should be forwarded to.
// Destination duplicates the key it is stored under in a RouteTable.
type Route struct {
	Destination string `json:"destination"`
	NextHop     string `json:"next_hop"`
	Metric      int    `json:"metric"`
}

// NotFound is returned by RouteTable.GetRoute when no route exists for the
// destination. Note that a stored route with an empty destination, an empty
// next hop and metric -1 is indistinguishable from NotFound; use
// RouteTable.Lookup when that matters.
var NotFound = Route{Destination: "", NextHop: "", Metric: -1}

// IsNotFound reports whether r is the NotFound sentinel.
func IsNotFound(r Route) bool {
	return r == NotFound
}

func (r Route) String() string {
	return fmt.Sprintf("%s -> %s (%d)", r.Destination, r.NextHop, r.Metric)
}
