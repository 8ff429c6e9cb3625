package dvr

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/hashicorp/raft"
)

// newTestStore returns a Store backed by a single node in-memory Raft cluster
// which has elected itself leader.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	fsm := NewFSM(nil)

	cfg := raft.DefaultConfig()
	cfg.LocalID = "node1"
	cfg.HeartbeatTimeout = 50 * time.Millisecond
	cfg.ElectionTimeout = 50 * time.Millisecond
	cfg.LeaderLeaseTimeout = 50 * time.Millisecond
	cfg.CommitTimeout = 5 * time.Millisecond
	cfg.LogOutput = io.Discard

	addr, trans := raft.NewInmemTransport("")
	logs := raft.NewInmemStore()
	snaps := raft.NewInmemSnapshotStore()

	node, err := raft.NewRaft(cfg, fsm, logs, logs, snaps, trans)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		node.Shutdown().Error()
	})

	f := node.BootstrapCluster(raft.Configuration{
		Servers: []raft.Server{{
			Suffrage: raft.Voter,
			ID:       cfg.LocalID,
			Address:  addr,
		}},
	})
	if err := f.Error(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for node.State() != raft.Leader {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for leader election")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return NewStore(string(cfg.LocalID), node, fsm, nil)
}

type errFuture struct {
	err error
}

func (f errFuture) Error() error          { return f.err }
func (f errFuture) Index() uint64         { return 0 }
func (f errFuture) Response() interface{} { return nil }

// followerRaft is a Raft which is never the leader.
type followerRaft struct {
	leaderID   string
	leaderAddr string
}

func (r *followerRaft) Apply([]byte, time.Duration) raft.ApplyFuture {
	return errFuture{raft.ErrNotLeader}
}

func (r *followerRaft) VerifyLeader() raft.Future {
	return errFuture{raft.ErrNotLeader}
}

func (r *followerRaft) State() raft.RaftState {
	return raft.Follower
}

func (r *followerRaft) LeaderWithID() (raft.ServerAddress, raft.ServerID) {
	return raft.ServerAddress(r.leaderAddr), raft.ServerID(r.leaderID)
}

func (r *followerRaft) Stats() map[string]string {
	return map[string]string{"state": raft.Follower.String()}
}

func newFollowerStore(leaderID, leaderAddr string) *Store {
	return NewStore("node2", &followerRaft{leaderID, leaderAddr}, NewFSM(nil), nil)
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	route, err := store.GetRoute(ctx, "10.0.0.0/8", false)
	if err != nil {
		t.Fatal(err)
	}
	if route != NotFound {
		t.Errorf("got %+v, want NotFound", route)
	}

	if err := store.AddRoute(ctx, "10.0.0.0/8", "gw1", 5); err != nil {
		t.Fatal(err)
	}
	if err := store.AddRoute(ctx, "10.0.0.0/8", "gw2", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.AddRoute(ctx, "192.168.0.0/16", "gw2", 3); err != nil {
		t.Fatal(err)
	}

	route, err = store.GetRoute(ctx, "10.0.0.0/8", false)
	if err != nil {
		t.Fatal(err)
	}
	if want := (Route{"10.0.0.0/8", "gw2", 1}); route != want {
		t.Errorf("got %+v, want %+v", route, want)
	}

	via, err := store.RoutesVia(ctx, "gw2", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(via) != 2 {
		t.Errorf("got %v, want two routes via gw2", via)
	}

	if err := store.DeleteRoute(ctx, "10.0.0.0/8"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRoute(ctx, "10.0.0.0/8"); err != nil {
		t.Errorf("deleting absent route: %v", err)
	}

	route, ok, err := store.Lookup(ctx, "10.0.0.0/8", true)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("got %+v after delete", route)
	}

	routes, err := store.GetAllRoutes(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Route{"192.168.0.0/16": {"192.168.0.0/16", "gw2", 3}}
	if !reflect.DeepEqual(routes, want) {
		t.Errorf("got %v, want %v", routes, want)
	}
}

func TestStoreStatus(t *testing.T) {
	store := newTestStore(t)

	if !store.IsLeader() {
		t.Error("single node is not leader")
	}

	status := store.Status()
	if status.ID != "node1" || status.LeaderID != "node1" || status.State != raft.Leader.String() {
		t.Errorf("got %+v", status)
	}

	if _, ok := store.Stats()["last_log_index"]; !ok {
		t.Errorf("got stats %v without last_log_index", store.Stats())
	}
}

func TestStoreCanceled(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.AddRoute(ctx, "a", "gw1", 1); err != context.Canceled {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
	if _, err := store.GetAllRoutes(ctx, true); err != context.Canceled {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
	if route, err := store.GetRoute(ctx, "a", false); err != context.Canceled || route != NotFound {
		t.Errorf("got %+v, %v, want NotFound, %v", route, err, context.Canceled)
	}
}

func TestStoreNotLeader(t *testing.T) {
	store := newFollowerStore("node1", "127.0.0.1:9101")
	ctx := context.Background()
	want := ErrNotLeader{LeaderID: "node1", LeaderAddr: "127.0.0.1:9101"}

	if err := store.AddRoute(ctx, "a", "gw1", 1); err != want {
		t.Errorf("AddRoute: got %v, want %v", err, want)
	}
	if err := store.DeleteRoute(ctx, "a"); err != want {
		t.Errorf("DeleteRoute: got %v, want %v", err, want)
	}
	if _, _, err := store.Lookup(ctx, "a", false); err != want {
		t.Errorf("Lookup: got %v, want %v", err, want)
	}
	if _, err := store.RoutesVia(ctx, "gw1", false); err != want {
		t.Errorf("RoutesVia: got %v, want %v", err, want)
	}

	// Stale reads are served locally.
	if _, err := store.GetAllRoutes(ctx, true); err != nil {
		t.Errorf("stale read: %v", err)
	}

	if store.IsLeader() {
		t.Error("follower claims to be leader")
	}
}

func TestErrNotLeader(t *testing.T) {
	if got, want := (ErrNotLeader{LeaderID: "node3"}).Error(), "not leader, node3 is"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := (ErrNotLeader{}).Error(), "not leader, leader unknown"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
