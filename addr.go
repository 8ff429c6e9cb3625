package dvr

import (
	"net"
	"strconv"
)

// Port offsets relative to a node's gRPC address. The Raft transport of a
// node listens at the gRPC port minus 100, its HTTP API at the gRPC port
// plus 100.
const (
	RaftPortOffset = -100
	HTTPPortOffset = 100
)

// OffsetPort returns addr with delta added to its port. An empty host is
// kept empty.
func OffsetPort(addr string, delta int) (string, error) {
	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return "", err
	}

	p, err := strconv.Atoi(port)

	if err != nil {
		return "", err
	}

	return net.JoinHostPort(host, strconv.Itoa(p+delta)), nil
}
