package main

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	hraft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"github.com/relab/dvr"
)

// startNode runs a single node Raft over the given storage. A fresh node
// bootstraps itself.
func startNode(t *testing.T, logs *raftboltdb.BoltStore, snaps hraft.SnapshotStore) (*hraft.Raft, *dvr.FSM) {
	t.Helper()

	cfg := hraft.DefaultConfig()
	cfg.LocalID = "1"
	cfg.HeartbeatTimeout = 50 * time.Millisecond
	cfg.ElectionTimeout = 50 * time.Millisecond
	cfg.LeaderLeaseTimeout = 50 * time.Millisecond
	cfg.CommitTimeout = 5 * time.Millisecond
	cfg.SnapshotThreshold = 1 << 20
	cfg.TrailingLogs = 5
	cfg.LogOutput = io.Discard

	fsm := dvr.NewFSM(nil)
	addr, trans := hraft.NewInmemTransport("")

	existing, err := hraft.HasExistingState(logs, logs, snaps)
	if err != nil {
		t.Fatal(err)
	}

	node, err := hraft.NewRaft(cfg, fsm, logs, logs, snaps, trans)
	if err != nil {
		t.Fatal(err)
	}

	if !existing {
		f := node.BootstrapCluster(hraft.Configuration{
			Servers: []hraft.Server{{Suffrage: hraft.Voter, ID: cfg.LocalID, Address: addr}},
		})
		if err := f.Error(); err != nil {
			t.Fatal(err)
		}
	}

	return node, fsm
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStorageRecoverAfterCompaction(t *testing.T) {
	dir := t.TempDir()
	const n = 50

	logs, snaps, err := openStorage(dir, 1, false, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	node, _ := startNode(t, logs, snaps)
	waitFor(t, "leader election", func() bool { return node.State() == hraft.Leader })

	for i := 0; i < n; i++ {
		b, err := dvr.NewCmdAdd("10.0."+strconv.Itoa(i)+".0/24", "gw1", i).Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if err := node.Apply(b, time.Second).Error(); err != nil {
			t.Fatal(err)
		}
	}

	if err := node.Snapshot().Error(); err != nil {
		t.Fatal(err)
	}

	first, err := logs.FirstIndex()
	if err != nil {
		t.Fatal(err)
	}
	if first <= 1 {
		t.Fatalf("log was not compacted, first index %d", first)
	}

	if err := node.Shutdown().Error(); err != nil {
		t.Fatal(err)
	}
	if err := logs.Close(); err != nil {
		t.Fatal(err)
	}

	logs, snaps, err = openStorage(dir, 1, true, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer logs.Close()

	node, fsm := startNode(t, logs, snaps)
	defer node.Shutdown()

	waitFor(t, "restored routes", func() bool { return fsm.Table().Len() == n })

	want := dvr.Route{Destination: "10.0.7.0/24", NextHop: "gw1", Metric: 7}
	if got := fsm.Table().GetRoute(want.Destination); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := fsm.Index().Via("gw1"); len(got) != n {
		t.Errorf("got %d routes via gw1, want %d", len(got), n)
	}
}

func TestStorageWipe(t *testing.T) {
	dir := t.TempDir()

	logs, snaps, err := openStorage(dir, 2, false, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	node, _ := startNode(t, logs, snaps)
	waitFor(t, "leader election", func() bool { return node.State() == hraft.Leader })

	b, err := dvr.NewCmdAdd("10.0.0.0/8", "gw1", 1).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err := node.Apply(b, time.Second).Error(); err != nil {
		t.Fatal(err)
	}
	if err := node.Snapshot().Error(); err != nil {
		t.Fatal(err)
	}
	if err := node.Shutdown().Error(); err != nil {
		t.Fatal(err)
	}
	if err := logs.Close(); err != nil {
		t.Fatal(err)
	}

	logs, snaps, err = openStorage(dir, 2, false, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer logs.Close()

	existing, err := hraft.HasExistingState(logs, logs, snaps)
	if err != nil {
		t.Fatal(err)
	}
	if existing {
		t.Error("state survived opening without keep")
	}

	boltPath, snapDir := storagePaths(dir, 2)
	if _, err := os.Stat(boltPath); err != nil {
		t.Errorf("bolt file: %v", err)
	}
	if list, err := snaps.List(); err != nil || len(list) != 0 {
		t.Errorf("snapshots in %s: %v, %v", snapDir, list, err)
	}
}

func TestStoragePaths(t *testing.T) {
	boltPath, snapDir := storagePaths("data", 3)

	if boltPath != filepath.Join("data", "dvr03.bolt") || snapDir != filepath.Join("data", "dvr03.snapshots") {
		t.Errorf("got %q, %q", boltPath, snapDir)
	}
}
