package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logrusorgru/aurora/v3"
	"github.com/montanaflynn/stats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/relab/dvr"
)

type zipf struct {
	sync.Mutex
	zf *rand.Zipf
}

func (z *zipf) Uint64() uint64 {
	z.Lock()
	defer z.Unlock()
	return z.zf.Uint64()
}

// destination maps a zipf sample onto a /24 prefix in 10.0.0.0/8.
func destination(k uint64) string {
	return fmt.Sprintf("10.%d.%d.0/24", (k>>8)&0xff, k&0xff)
}

func nextHop(k uint64) string {
	return "192.168.0." + strconv.FormatUint(k%254+1, 10)
}

// recorder collects request latencies in milliseconds.
type recorder struct {
	mu     sync.Mutex
	reads  []float64
	writes []float64
}

func (r *recorder) add(write bool, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()

	if write {
		r.writes = append(r.writes, ms)
	} else {
		r.reads = append(r.reads, ms)
	}
}

type summary struct {
	N                        int
	Mean, Median, P99, Stdev float64
}

func summarize(data []float64) (summary, error) {
	if len(data) == 0 {
		return summary{}, nil
	}

	var (
		sum summary
		err error
	)

	sum.N = len(data)

	if sum.Mean, err = stats.Mean(data); err != nil {
		return sum, err
	}
	if sum.Median, err = stats.Median(data); err != nil {
		return sum, err
	}
	if sum.P99, err = stats.Percentile(data, 99); err != nil {
		return sum, err
	}
	if sum.Stdev, err = stats.StandardDeviation(data); err != nil {
		return sum, err
	}

	return sum, nil
}

func runBench(c *controller, args []string, maxRetry int, au aurora.Aurora) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)

	var (
		rwratio    = fs.Float64("rwratio", 0.2, "read-write ratio")
		clients    = fs.Int("clients", 4, "number of clients")
		throughput = fs.Int("throughput", 500, "requests per second per client")
		duration   = fs.Duration("duration", 10*time.Second, "how long to run")
		keys       = fs.Uint64("keys", 10000, "number of distinct destinations")
		metricsAt  = fs.String("metrics", "", "serve client metrics at this address")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *throughput < 1 || *clients < 1 || *keys < 2 {
		return fmt.Errorf("-throughput, -clients must be atleast 1 and -keys atleast 2")
	}

	if *metricsAt != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logrus.Warn(http.ListenAndServe(*metricsAt, mux))
		}()
	}

	z := &zipf{
		zf: rand.NewZipf(rand.New(rand.NewSource(99)), 1.1, 4, *keys-1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sleep := time.Second / time.Duration(*throughput)
	rec := &recorder{}

	var (
		wg       sync.WaitGroup
		reqs     uint64
		failures uint64
	)

	send := func(write bool) {
		defer wg.Done()

		k := z.Uint64()
		var req request

		if write {
			route := dvr.Route{Destination: destination(k), NextHop: nextHop(z.Uint64()), Metric: int(k % 16)}
			req = func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
				ctx, cancel := context.WithTimeout(ctx, *timeout)
				defer cancel()
				return client.AddRoute(ctx, &dvr.AddRouteRequest{Route: route})
			}
		} else {
			req = func(ctx context.Context, client dvr.RouteTableClient) (interface{}, error) {
				ctx, cancel := context.WithTimeout(ctx, *timeout)
				defer cancel()
				return client.GetRoute(ctx, &dvr.GetRouteRequest{Destination: destination(k), AllowStale: *stale})
			}
		}

		start := time.Now()
		_, err := c.do(context.Background(), req, maxRetry)
		elapsed := time.Since(start)
		observe(write, elapsed, err)

		if err != nil {
			if atomic.AddUint64(&failures, 1) == 1 {
				logrus.WithError(err).Warnln("Request failed")
			}
			return
		}

		atomic.AddUint64(&reqs, 1)
		rec.add(write, elapsed)
	}

	start := time.Now()

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()

			rnd := rand.New(rand.NewSource(seed))
			tick := time.NewTicker(sleep)
			defer tick.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
				}

				wg.Add(1)
				go send(rnd.Float64() >= *rwratio)
			}
		}(time.Now().UnixNano() + int64(i))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}

			logrus.WithField("throughput", atomic.LoadUint64(&reqs)/uint64(time.Since(start).Seconds())).Infoln("Avg throughput")
		}
	}()

	wg.Wait()
	elapsed := time.Since(start)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fmt.Println(au.Bold("requests:"), reqs, au.Bold("failures:"), failures, au.Bold("elapsed:"), elapsed.Round(time.Millisecond))
	fmt.Println(au.Bold("throughput:"), fmt.Sprintf("%.1f req/s", float64(reqs)/elapsed.Seconds()))

	for _, kind := range []struct {
		name string
		data []float64
	}{
		{"reads", rec.reads},
		{"writes", rec.writes},
	} {
		sum, err := summarize(kind.data)

		if err != nil {
			return err
		}

		fmt.Printf("%s n=%d mean=%.2fms median=%.2fms p99=%.2fms stdev=%.2fms\n",
			au.Cyan(kind.name).String(), sum.N, sum.Mean, sum.Median, sum.P99, sum.Stdev)
	}

	return nil
}
