package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/raft"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/grpclog"

	"github.com/relab/dvr"
)

func main() {
	var (
		cluster = flag.String("cluster", ":9201,:9202,:9203", "comma separated cluster servers")
		timeout = flag.Duration("timeout", 100*time.Millisecond, "how long to wait for each server")
	)
	flag.Parse()

	grpclog.SetLoggerV2(grpclog.NewLoggerV2(io.Discard, io.Discard, io.Discard))

	servers := strings.Split(*cluster, ",")

	var wg sync.WaitGroup
	wg.Add(len(servers))
	result := make(chan int, len(servers))

	for i, server := range servers {
		go func(id int, server string) {
			defer wg.Done()

			if isLeader(server, *timeout) {
				result <- id
			}
		}(i+1, server)
	}

	wg.Wait()
	close(result)

	if id, ok := <-result; ok {
		fmt.Println(id)
	} else {
		fmt.Println("no leader")
	}
}

func isLeader(server string, timeout time.Duration) bool {
	cc, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))

	if err != nil {
		return false
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := dvr.NewRouteTableClient(cc).Status(ctx, &dvr.StatusRequest{})

	return err == nil && st.State == raft.Leader.String()
}
