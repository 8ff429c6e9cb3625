package dvr

import (
	"fmt"
	"sort"

	memdb "github.com/hashicorp/go-memdb"
)

// Index is a secondary view of the route table, allowing routes to be found
// by next hop. Reads run against an immutable snapshot and never block
// writers.
type Index struct {
	db *memdb.MemDB
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(fmt.Sprintf("invalid index schema: %v", err))
	}
	return &Index{db: db}
}

// Put inserts route, replacing any route with the same destination.
func (i *Index) Put(route Route) {
	txn := i.db.Txn(true)
	insertRoute(txn, route)
	txn.Commit()
}

// Delete removes the route for destination, if any.
func (i *Index) Delete(destination string) {
	txn := i.db.Txn(true)
	if _, err := txn.DeleteAll(RouteStore, Identifier, destination); err != nil {
		txn.Abort()
		panic(fmt.Sprintf("tried to delete route '%v': %v", destination, err))
	}
	txn.Commit()
}

// Reset replaces the contents of the index with routes.
func (i *Index) Reset(routes map[string]Route) {
	txn := i.db.Txn(true)
	if _, err := txn.DeleteAll(RouteStore, Identifier); err != nil {
		txn.Abort()
		panic(fmt.Sprintf("tried to clear routes: %v", err))
	}
	for _, route := range routes {
		insertRoute(txn, route)
	}
	txn.Commit()
}

// Via returns all routes forwarding to nextHop, sorted by destination.
func (i *Index) Via(nextHop string) []Route {
	txn := i.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(RouteStore, NextHop, nextHop)
	if err != nil {
		panic(fmt.Sprintf("tried to lookup next hop '%v': %v", nextHop, err))
	}

	var routes []Route
	for raw := it.Next(); raw != nil; raw = it.Next() {
		routes = append(routes, *raw.(*Route))
	}

	sort.Slice(routes, func(a, b int) bool {
		return routes[a].Destination < routes[b].Destination
	})

	return routes
}

func insertRoute(txn *memdb.Txn, route Route) {
	r := route
	if err := txn.Insert(RouteStore, &r); err != nil {
		txn.Abort()
		panic(fmt.Sprintf("tried to insert route %+v: %v", route, err))
	}
}
