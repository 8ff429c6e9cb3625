package dvr

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/raft"
	"github.com/sirupsen/logrus"
)

// ErrNotLeader is returned by Store when a method is invoked requiring the
// server to be the leader, and it's not. A hint about the actual leader is
// provided; both fields are empty if the leader is unknown.
type ErrNotLeader struct {
	LeaderID   string
	LeaderAddr string
}

func (e ErrNotLeader) Error() string {
	if e.LeaderID == "" {
		return "not leader, leader unknown"
	}
	return fmt.Sprintf("not leader, %s is", e.LeaderID)
}

// Raft is the part of *raft.Raft used by Store.
type Raft interface {
	Apply(cmd []byte, timeout time.Duration) raft.ApplyFuture
	VerifyLeader() raft.Future
	State() raft.RaftState
	LeaderWithID() (raft.ServerAddress, raft.ServerID)
	Stats() map[string]string
}

// Status describes a node's view of the cluster.
type Status struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	LeaderID   string `json:"leader_id"`
	LeaderAddr string `json:"leader_addr"`
}

// Store is a route table replicated with Raft. Writes are proposed to the
// cluster and applied by the FSM once committed; reads are served from the
// local FSM, optionally after confirming leadership.
type Store struct {
	id     string
	raft   Raft
	fsm    *FSM
	logger logrus.FieldLogger
}

// NewStore returns a Store for the node id, proposing commands to r. fsm must
// be the state machine r applies committed entries to.
func NewStore(id string, r Raft, fsm *FSM, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = discardLogger()
	}

	return &Store{
		id:     id,
		raft:   r,
		fsm:    fsm,
		logger: logger,
	}
}

// AddRoute replicates a route for destination, replacing any existing route.
// If an error is returned, the client should retry the same request.
func (s *Store) AddRoute(ctx context.Context, destination, nextHop string, metric int) error {
	return s.propose(ctx, NewCmdAdd(destination, nextHop, metric))
}

// DeleteRoute replicates the removal of the route for destination. Deleting
// an absent route is not an error.
func (s *Store) DeleteRoute(ctx context.Context, destination string) error {
	return s.propose(ctx, NewCmdDelete(destination))
}

// Lookup returns the route for destination and whether it exists. Unless
// allowStale is set, the node must confirm that it is still the leader.
func (s *Store) Lookup(ctx context.Context, destination string, allowStale bool) (Route, bool, error) {
	if err := s.read(ctx, allowStale); err != nil {
		return Route{}, false, err
	}

	route, ok := s.fsm.Table().Lookup(destination)
	return route, ok, nil
}

// GetRoute is like Lookup but returns NotFound if there is no route.
func (s *Store) GetRoute(ctx context.Context, destination string, allowStale bool) (Route, error) {
	route, ok, err := s.Lookup(ctx, destination, allowStale)

	if err != nil {
		return NotFound, err
	}

	if !ok {
		return NotFound, nil
	}

	return route, nil
}

// GetAllRoutes returns a copy of the route table.
func (s *Store) GetAllRoutes(ctx context.Context, allowStale bool) (map[string]Route, error) {
	if err := s.read(ctx, allowStale); err != nil {
		return nil, err
	}

	return s.fsm.Table().GetAllRoutes(), nil
}

// RoutesVia returns the routes forwarding to nextHop, sorted by destination.
func (s *Store) RoutesVia(ctx context.Context, nextHop string, allowStale bool) ([]Route, error) {
	if err := s.read(ctx, allowStale); err != nil {
		return nil, err
	}

	return s.fsm.Index().Via(nextHop), nil
}

// IsLeader reports whether this node currently believes it is the leader.
func (s *Store) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// Status returns this node's view of the cluster.
func (s *Store) Status() Status {
	addr, id := s.raft.LeaderWithID()

	return Status{
		ID:         s.id,
		State:      s.raft.State().String(),
		LeaderID:   string(id),
		LeaderAddr: string(addr),
	}
}

// Stats returns Raft's internal statistics.
func (s *Store) Stats() map[string]string {
	return s.raft.Stats()
}

func (s *Store) propose(ctx context.Context, cmd Cmd) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := cmd.Marshal()

	if err != nil {
		return err
	}

	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	future := s.raft.Apply(b, timeout)

	if err := s.wait(ctx, future); err != nil {
		s.logger.WithField("cmd", cmd).WithError(err).Debugln("Proposal failed")
		return err
	}

	if err, ok := future.Response().(error); ok {
		return err
	}

	return nil
}

func (s *Store) read(ctx context.Context, allowStale bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if allowStale {
		return nil
	}

	return s.wait(ctx, s.raft.VerifyLeader())
}

func (s *Store) wait(ctx context.Context, future raft.Future) error {
	done := make(chan error, 1)

	go func() {
		done <- future.Error()
	}()

	select {
	case err := <-done:
		return s.raftError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) raftError(err error) error {
	switch err {
	case nil:
		return nil
	case raft.ErrNotLeader, raft.ErrLeadershipLost:
		addr, id := s.raft.LeaderWithID()
		return ErrNotLeader{
			LeaderID:   string(id),
			LeaderAddr: string(addr),
		}
	default:
		return err
	}
}
