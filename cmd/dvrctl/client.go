package main

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/relab/dvr"
)

type controller struct {
	leader  int32
	servers []string
	conns   []dvr.RouteTableClient
	wait    time.Duration
}

func newController(servers []string, wait time.Duration) (*controller, error) {
	conns := make([]dvr.RouteTableClient, len(servers))

	for i, server := range servers {
		cc, err := grpc.NewClient(
			server,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)

		if err != nil {
			return nil, err
		}

		conns[i] = dvr.NewRouteTableClient(cc)
	}

	return &controller{
		servers: servers,
		conns:   conns,
		wait:    wait,
	}, nil
}

type request func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error)

// do sends req to the current leader. On failure the leader hint in the
// error is followed if there is one, otherwise the next server is tried.
func (c *controller) do(ctx context.Context, req request, maxRetry int) (interface{}, error) {
	for i := 0; ; i++ {
		current := atomic.LoadInt32(&c.leader)
		res, err := req(ctx, c.conns[current])

		if err == nil {
			return res, nil
		}

		if i >= maxRetry || ctx.Err() != nil {
			return nil, err
		}

		next := (current + 1) % int32(len(c.conns))

		if addr, ok := dvr.LeaderHint(err); ok {
			if j := c.lookup(addr); j >= 0 {
				next = int32(j)
			}
		}

		if atomic.CompareAndSwapInt32(&c.leader, current, next) {
			logrus.WithField("leader", c.servers[next]).Debugln("Changed leader")
		}

		select {
		case <-time.After(c.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// lookup returns the index of the server with address addr, or -1. Servers
// given without a host match any host with the same port.
func (c *controller) lookup(addr string) int {
	_, port, err := net.SplitHostPort(addr)

	if err != nil {
		return -1
	}

	for i, server := range c.servers {
		if server == addr {
			return i
		}

		host, p, err := net.SplitHostPort(server)

		if err == nil && host == "" && p == port {
			return i
		}
	}

	return -1
}
