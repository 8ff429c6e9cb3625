package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	hraft "github.com/hashicorp/raft"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/grpclog"

	"github.com/relab/dvr"
)

var (
	quiet             = flag.Bool("quiet", false, "Silence log output")
	recoverState      = flag.Bool("recover", false, "Recover from the log and snapshots in -datadir")
	dataDir           = flag.String("datadir", ".", "Directory holding the Raft log and snapshots")
	serverMetrics     = flag.Bool("servermetrics", true, "enable server-side metrics")
	electionTimeout   = flag.Duration("election", time.Second, "How long servers wait before starting an election")
	heartbeatTimeout  = flag.Duration("heartbeat", time.Second, "How long a follower waits for the leader before starting an election")
	commitTimeout     = flag.Duration("commit", 20*time.Millisecond, "How often the leader sends heartbeats when idle")
	maxAppendEntries  = flag.Int("maxappend", 64, "Max entries per AppendEntries message")
	snapshotThreshold = flag.Uint64("snapshotthreshold", 8192, "Committed entries between snapshots")
)

func main() {
	var (
		id        = flag.Uint64("id", 0, "server ID")
		fileLevel = flag.String("filelevel", "debug", "minimum level written to the log file")
		servers   = flag.String("servers", ":9201,:9202,:9203", "comma separated list of server addresses")
		cluster   = flag.String("cluster", "1,2,3", "comma separated list of server ids to form cluster with, [1 >= id <= len(servers)]")
	)

	flag.Parse()

	if *id == 0 {
		fmt.Print("-id argument is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	nodes := strings.Split(*servers, ",")

	if len(nodes) == 0 || nodes[0] == "" {
		fmt.Print("-servers argument is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if *id > uint64(len(nodes)) {
		fmt.Print("-id must be a position in -servers\n\n")
		flag.Usage()
		os.Exit(1)
	}

	ids, err := parseCluster(*cluster, len(nodes))

	if err != nil {
		fmt.Printf("%v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if *maxAppendEntries < 1 {
		fmt.Print("-maxappend must be atleast 1\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if *heartbeatTimeout > *electionTimeout {
		fmt.Print("-heartbeat must not exceed -election\n\n")
		flag.Usage()
		os.Exit(1)
	}

	level, err := logrus.ParseLevel(*fileLevel)

	if err != nil {
		fmt.Printf("%v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	logFile, err := os.OpenFile(
		fmt.Sprintf("%s%sdvr%.2d.log", os.TempDir(), string(filepath.Separator), *id),
		os.O_CREATE|os.O_TRUNC|os.O_APPEND|os.O_WRONLY, 0600,
	)

	if err != nil {
		logger.Fatal(err)
	}

	logger.Hooks.Add(newFileHook(logFile, level))

	if *quiet {
		logger.Out = io.Discard
	}

	grpclog.SetLoggerV2(grpclog.NewLoggerV2(
		io.Discard,
		logger.WriterLevel(logrus.WarnLevel),
		logger.WriterLevel(logrus.ErrorLevel),
	))

	raftServers := make([]hraft.Server, len(ids))

	for i, sid := range ids {
		addr, err := raftAddr(nodes[sid-1])

		if err != nil {
			logger.Fatal(err)
		}

		raftServers[i] = hraft.Server{
			Suffrage: hraft.Voter,
			ID:       hraft.ServerID(strconv.FormatUint(sid, 10)),
			Address:  hraft.ServerAddress(addr),
		}
	}

	selfGRPC := nodes[*id-1]
	selfRaft, err := raftAddr(selfGRPC)

	if err != nil {
		logger.Fatal(err)
	}

	selfHTTP, err := dvr.OffsetPort(selfGRPC, dvr.HTTPPortOffset)

	if err != nil {
		logger.Fatal(err)
	}

	raftLog := logger.WithField("component", "raft").WriterLevel(logrus.DebugLevel)

	addr, err := net.ResolveTCPAddr("tcp", selfRaft)

	if err != nil {
		logger.Fatal(err)
	}

	trans, err := hraft.NewTCPTransport(selfRaft, addr, len(nodes), 10*time.Second, raftLog)

	if err != nil {
		logger.Fatal(err)
	}

	logs, snaps, err := openStorage(*dataDir, *id, *recoverState, raftLog)

	if err != nil {
		logger.Fatal(err)
	}

	cfg := hraft.DefaultConfig()
	cfg.LocalID = hraft.ServerID(strconv.FormatUint(*id, 10))
	cfg.HeartbeatTimeout = *heartbeatTimeout
	cfg.ElectionTimeout = *electionTimeout
	cfg.CommitTimeout = *commitTimeout
	cfg.LeaderLeaseTimeout = *heartbeatTimeout / 2
	cfg.MaxAppendEntries = *maxAppendEntries
	cfg.SnapshotThreshold = *snapshotThreshold
	cfg.ShutdownOnRemove = true
	cfg.LogOutput = raftLog

	fsm := dvr.NewFSM(logger.WithField("component", "fsm"))

	node, err := hraft.NewRaft(cfg, fsm, logs, logs, snaps, trans)

	if err != nil {
		logger.Fatal(err)
	}

	existing, err := hraft.HasExistingState(logs, logs, snaps)

	if err != nil {
		logger.Fatal(err)
	}

	if !existing && inCluster(*id, ids) {
		f := node.BootstrapCluster(hraft.Configuration{Servers: raftServers})
		if err := f.Error(); err != nil {
			logger.WithError(err).Warnln("Bootstrap failed")
		}
	}

	go watchLeadership(logger, node)

	store := dvr.NewStore(string(cfg.LocalID), node, fsm, logger.WithField("component", "store"))

	grpcServer := grpc.NewServer()
	dvr.RegisterRouteTableServer(grpcServer, dvr.NewGRPCService(store, logger.WithField("component", "grpc")))

	mux := http.NewServeMux()
	mux.Handle("/", dvr.NewService(store, logger.WithField("component", "http")))

	if *serverMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	go func() {
		logger.WithField("addr", selfHTTP).Infoln("HTTP API listening")
		logger.Fatal(http.ListenAndServe(selfHTTP, mux))
	}()

	lis, err := net.Listen("tcp", selfGRPC)

	if err != nil {
		logger.Fatal(err)
	}

	logger.WithFields(logrus.Fields{
		"id":   *id,
		"grpc": selfGRPC,
		"raft": selfRaft,
	}).Infoln("Starting node")

	logger.Fatal(grpcServer.Serve(lis))
}

func parseCluster(cluster string, n int) ([]uint64, error) {
	var ids []uint64

	for _, sid := range strings.Split(cluster, ",") {
		id, err := strconv.ParseUint(sid, 10, 64)

		if err != nil {
			return nil, fmt.Errorf("could not parse -cluster argument")
		}

		if id <= 0 || id > uint64(n) {
			return nil, fmt.Errorf("invalid -cluster argument")
		}

		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("-cluster argument is required")
	}

	if len(ids) > n {
		return nil, fmt.Errorf("-cluster specifies too many servers")
	}

	return ids, nil
}

func inCluster(id uint64, ids []uint64) bool {
	for _, sid := range ids {
		if sid == id {
			return true
		}
	}
	return false
}

// raftAddr returns the Raft address for a node's gRPC address. Raft must
// advertise a routable address, so an empty host becomes the loopback.
func raftAddr(grpcAddr string) (string, error) {
	addr, err := dvr.OffsetPort(grpcAddr, dvr.RaftPortOffset)

	if err != nil {
		return "", err
	}

	host, port, _ := net.SplitHostPort(addr)

	if host == "" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port), nil
}

func watchLeadership(logger logrus.FieldLogger, node *hraft.Raft) {
	for leader := range node.LeaderCh() {
		if leader {
			logger.Warnln("Became leader")
			continue
		}

		addr, id := node.LeaderWithID()
		logger.WithFields(logrus.Fields{
			"leader": id,
			"addr":   addr,
		}).Warnln("Lost leadership")
	}
}
