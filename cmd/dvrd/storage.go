package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	hraft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

// Snapshots kept on disk per node.
const retainSnapshots = 2

// storagePaths returns the bolt file and snapshot directory of node id.
func storagePaths(dir string, id uint64) (string, string) {
	return filepath.Join(dir, fmt.Sprintf("dvr%.2d.bolt", id)),
		filepath.Join(dir, fmt.Sprintf("dvr%.2d.snapshots", id))
}

// openStorage opens the Raft log, stable store and snapshot store of node id
// under dir. The log and its snapshots are one unit: unless keep is set both
// are removed before opening, so a node never starts from a compacted log
// without the snapshot that precedes it.
func openStorage(dir string, id uint64, keep bool, logOutput io.Writer) (*raftboltdb.BoltStore, hraft.SnapshotStore, error) {
	boltPath, snapDir := storagePaths(dir, id)

	if !keep {
		if err := os.Remove(boltPath); err != nil && !os.IsNotExist(err) {
			return nil, nil, err
		}
		if err := os.RemoveAll(snapDir); err != nil {
			return nil, nil, err
		}
	}

	logs, err := raftboltdb.NewBoltStore(boltPath)

	if err != nil {
		return nil, nil, err
	}

	snaps, err := hraft.NewFileSnapshotStore(snapDir, retainSnapshots, logOutput)

	if err != nil {
		logs.Close()
		return nil, nil, err
	}

	return logs, snaps, nil
}
