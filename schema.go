package dvr

import (
	"fmt"
	"reflect"

	memdb "github.com/hashicorp/go-memdb"
)

// StringIndex is used to extract a string field from an object using
// reflection and builds an index on that field. Unlike
// memdb.StringFieldIndex it also indexes the empty string, which is a valid
// destination and next hop.
type StringIndex struct {
	Field string
}

// FromObject implements the memdb.SingleIndexer interface.
func (s *StringIndex) FromObject(obj interface{}) (bool, []byte, error) {
	v := reflect.ValueOf(obj)
	v = reflect.Indirect(v) // Dereference the pointer if any
	fv := v.FieldByName(s.Field)
	if !fv.IsValid() || fv.Kind() != reflect.String {
		return false, nil,
			fmt.Errorf("field '%s' for %#v is invalid", s.Field, obj)
	}
	return true, []byte(fv.String() + "\x00"), nil
}

// FromArgs implements the memdb.Indexer interface.
func (s *StringIndex) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("argument must be a string: %#v", args[0])
	}
	return []byte(arg + "\x00"), nil
}

// Schema constants.
const (
	RouteStore = "routes"

	Identifier = "id"
	NextHop    = "nexthop"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		RouteStore: {
			Name: RouteStore,
			Indexes: map[string]*memdb.IndexSchema{
				Identifier: {
					Name:   Identifier,
					Unique: true,
					Indexer: &StringIndex{
						Field: "Destination",
					},
				},
				NextHop: {
					Name: NextHop,
					Indexer: &StringIndex{
						Field: "NextHop",
					},
				},
			},
		},
	},
}
