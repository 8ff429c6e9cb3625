package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v3"
	"github.com/sirupsen/logrus"

	"github.com/relab/dvr"
)

var (
	cluster   = flag.String("cluster", ":9201,:9202,:9203", "comma separated cluster servers")
	timeout   = flag.Duration("timeout", 10*time.Second, "per request timeout")
	retryWait = flag.Duration("retrywait", 200*time.Millisecond, "how long to wait before retrying a failed request")
	stale     = flag.Bool("stale", false, "allow stale reads from followers")
	color     = flag.Bool("color", true, "colorize output")
	verbose   = flag.Bool("v", false, "log leader changes")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Commands:
  add <destination> <next_hop> <metric>
  del <destination>
  get <destination>
  list [next_hop]
  status
  bench [bench flags]

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	servers := strings.Split(*cluster, ",")

	if len(servers) == 0 || servers[0] == "" {
		fmt.Print("-cluster argument is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	c, err := newController(servers, *retryWait)

	if err != nil {
		logrus.Fatal(err)
	}

	au := aurora.NewAurora(*color)
	maxRetry := 2 * len(servers)
	args := flag.Args()[1:]

	switch cmd := flag.Arg(0); cmd {
	case "add":
		if len(args) != 3 {
			fatalUsage("add takes <destination> <next_hop> <metric>")
		}

		metric, err := strconv.Atoi(args[2])

		if err != nil {
			fatalUsage("metric must be an integer")
		}

		route := dvr.Route{Destination: args[0], NextHop: args[1], Metric: metric}

		_, err = c.do(context.Background(), func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, *timeout)
			defer cancel()
			return client.AddRoute(ctx, &dvr.AddRouteRequest{Route: route})
		}, maxRetry)

		if err != nil {
			logrus.Fatal(err)
		}

		fmt.Println(au.Green("added"), formatRoute(au, route))
	case "del":
		if len(args) != 1 {
			fatalUsage("del takes <destination>")
		}

		_, err := c.do(context.Background(), func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, *timeout)
			defer cancel()
			return client.DeleteRoute(ctx, &dvr.DeleteRouteRequest{Destination: args[0]})
		}, maxRetry)

		if err != nil {
			logrus.Fatal(err)
		}

		fmt.Println(au.Red("deleted"), au.Cyan(args[0]))
	case "get":
		if len(args) != 1 {
			fatalUsage("get takes <destination>")
		}

		res, err := c.do(context.Background(), func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, *timeout)
			defer cancel()
			return client.GetRoute(ctx, &dvr.GetRouteRequest{Destination: args[0], AllowStale: *stale})
		}, maxRetry)

		if err != nil {
			logrus.Fatal(err)
		}

		if resp := res.(*dvr.GetRouteResponse); resp.Found {
			fmt.Println(formatRoute(au, resp.Route))
		} else {
			fmt.Println(au.Yellow("no route to"), au.Cyan(args[0]))
			os.Exit(2)
		}
	case "list":
		if len(args) > 1 {
			fatalUsage("list takes [next_hop]")
		}

		req := &dvr.GetAllRoutesRequest{AllowStale: *stale}

		if len(args) == 1 {
			req.NextHop = &args[0]
		}

		res, err := c.do(context.Background(), func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, *timeout)
			defer cancel()
			return client.GetAllRoutes(ctx, req)
		}, maxRetry)

		if err != nil {
			logrus.Fatal(err)
		}

		for _, route := range sortRoutes(res.(*dvr.GetAllRoutesResponse).Routes) {
			fmt.Println(formatRoute(au, route))
		}
	case "status":
		for i, server := range servers {
			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			st, err := c.conns[i].Status(ctx, &dvr.StatusRequest{})
			cancel()

			if err != nil {
				fmt.Println(au.Bold(server), au.Red(err))
				continue
			}

			state := au.Yellow(st.State)
			if st.State == "Leader" {
				state = au.Green(st.State)
			}

			fmt.Println(au.Bold(server), "id="+st.ID, state, "leader="+st.LeaderID)
		}
	case "bench":
		if err := runBench(c, args, maxRetry, au); err != nil {
			logrus.Fatal(err)
		}
	default:
		fatalUsage(fmt.Sprintf("unknown command %q", cmd))
	}
}

func fatalUsage(msg string) {
	fmt.Printf("%s\n\n", msg)
	flag.Usage()
	os.Exit(1)
}

func formatRoute(au aurora.Aurora, route dvr.Route) string {
	return fmt.Sprintf("%s via %s metric %s",
		au.Cyan(route.Destination).String(),
		au.Magenta(route.NextHop).String(),
		au.Bold(route.Metric).String(),
	)
}

func sortRoutes(routes map[string]dvr.Route) []dvr.Route {
	sorted := make([]dvr.Route, 0, len(routes))

	for _, route := range routes {
		sorted = append(sorted, route)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Destination < sorted[j].Destination
	})

	return sorted
}
