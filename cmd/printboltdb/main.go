package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"github.com/relab/dvr"
)

func main() {
	var path = flag.String("path", "", "path to bolt storage")
	flag.Parse()

	if len(*path) == 0 {
		fmt.Print("-path argument is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(*path); err != nil {
		log.Fatal(err)
	}

	storage, err := raftboltdb.New(raftboltdb.Options{Path: *path, NoSync: true})

	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	first, err := storage.FirstIndex()

	if err != nil {
		log.Fatal(err)
	}

	last, err := storage.LastIndex()

	if err != nil {
		log.Fatal(err)
	}

	if last == 0 {
		fmt.Println("Found: 0 entries.")
		return
	}

	fmt.Printf("Found: %d entries.\n", last-first+1)

	for i := first; i <= last; i++ {
		var entry raft.Log

		if err := storage.GetLog(i, &entry); err != nil {
			log.Fatal(err)
		}

		fmt.Println(describe(&entry))
	}
}

func describe(entry *raft.Log) string {
	prefix := fmt.Sprintf("%d/%d %s", entry.Term, entry.Index, entry.Type)

	if entry.Type != raft.LogCommand {
		return prefix
	}

	cmd, err := dvr.ParseCmd(entry.Data)

	if err != nil {
		return fmt.Sprintf("%s <%v>", prefix, err)
	}

	return fmt.Sprintf("%s %s", prefix, cmd)
}
