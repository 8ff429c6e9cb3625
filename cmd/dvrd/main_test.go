package main

import (
	"reflect"
	"testing"
)

func TestParseCluster(t *testing.T) {
	for _, test := range []struct {
		cluster string
		n       int
		want    []uint64
		err     bool
	}{
		{"1,2,3", 3, []uint64{1, 2, 3}, false},
		{"2", 5, []uint64{2}, false},
		{"1,x", 3, nil, true},
		{"0", 3, nil, true},
		{"4", 3, nil, true},
		{"1,2,3,1", 3, nil, true},
		{"", 3, nil, true},
	} {
		got, err := parseCluster(test.cluster, test.n)

		if (err != nil) != test.err {
			t.Errorf("parseCluster(%q, %d): got error %v", test.cluster, test.n, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("parseCluster(%q, %d) = %v, want %v", test.cluster, test.n, got, test.want)
		}
	}
}

func TestRaftAddr(t *testing.T) {
	for _, test := range []struct {
		addr string
		want string
	}{
		{":9201", "127.0.0.1:9101"},
		{"10.0.0.5:9202", "10.0.0.5:9102"},
	} {
		got, err := raftAddr(test.addr)

		if err != nil {
			t.Fatal(err)
		}
		if got != test.want {
			t.Errorf("raftAddr(%q) = %q, want %q", test.addr, got, test.want)
		}
	}

	if _, err := raftAddr("nope"); err == nil {
		t.Error("expected error for address without port")
	}

	if !inCluster(2, []uint64{1, 2, 3}) || inCluster(4, []uint64{1, 2, 3}) {
		t.Error("inCluster is wrong")
	}
}
