package dvr

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-kit/kit/metrics"
	"github.com/hashicorp/raft"
	"github.com/sirupsen/logrus"
)

// FSM is an implementation of raft.FSM. It applies committed route commands
// to a RouteTable and keeps the next hop index in sync with it.
type FSM struct {
	table  *RouteTable
	index  *Index
	logger logrus.FieldLogger
}

// NewFSM initializes and returns a *FSM with an empty route table.
func NewFSM(logger logrus.FieldLogger) *FSM {
	if logger == nil {
		logger = discardLogger()
	}

	return &FSM{
		table:  NewRouteTable(logger.WithField("component", "table")),
		index:  NewIndex(),
		logger: logger,
	}
}

// Table returns the route table maintained by the FSM. Mutating it directly
// bypasses replication and the next hop index.
func (f *FSM) Table() *RouteTable {
	return f.table
}

// Index returns the next hop index maintained by the FSM.
func (f *FSM) Index() *Index {
	return f.index
}

// Apply implements raft.FSM. Malformed commands are not applied; the error is
// returned as the response to the proposer.
func (f *FSM) Apply(entry *raft.Log) interface{} {
	timer := metrics.NewTimer(tmetrics.apply)
	defer timer.ObserveDuration()

	switch entry.Type {
	case raft.LogCommand:
		cmd, err := ParseCmd(entry.Data)

		if err != nil {
			f.logger.WithFields(logrus.Fields{
				"index": entry.Index,
				"term":  entry.Term,
			}).WithError(err).Warnln("Ignoring command")
			return fmt.Errorf("failed to apply entry %d: %v", entry.Index, err)
		}

		f.applyCmd(cmd)
		return nil
	}

	panic(fmt.Sprintf("no case for logtype: %v", entry.Type))
}

func (f *FSM) applyCmd(cmd Cmd) {
	switch cmd.Type {
	case CmdAdd:
		f.table.AddRoute(cmd.Key, cmd.Value.NextHop, cmd.Value.Metric)
		f.index.Put(cmd.Value)
	case CmdDelete:
		f.table.DeleteRoute(cmd.Key)
		f.index.Delete(cmd.Key)
	}
}

// Snapshot implements raft.FSM.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &snapshot{routes: f.table.GetAllRoutes()}, nil
}

// Restore implements raft.FSM. The table and index are replaced by the
// contents of the snapshot.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	routes := make(map[string]Route)
	if err := json.NewDecoder(rc).Decode(&routes); err != nil {
		return fmt.Errorf("failed to decode snapshot: %v", err)
	}

	// A snapshot body of null decodes to a nil map.
	if routes == nil {
		routes = make(map[string]Route)
	}

	for destination, route := range routes {
		route.Destination = destination
		routes[destination] = route
	}

	f.index.Reset(routes)
	f.table.replace(routes)

	return nil
}

type snapshot struct {
	routes map[string]Route
}

// Persist implements raft.FSMSnapshot.
func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.routes); err != nil {
		sink.Cancel()
		return err
	}

	return sink.Close()
}

// Release implements raft.FSMSnapshot.
func (s *snapshot) Release() {}
