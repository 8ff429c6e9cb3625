package dvr

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NotLeaderPrefix starts the message of errors returned by GRPCService when
// the node is not the leader. If the leader is known, the message ends with
// NotLeaderHint followed by the leader's gRPC address.
const (
	NotLeaderPrefix = "not leader"
	NotLeaderHint   = "leader is "
)

// GRPCService exposes a Store as a gRPC service.
type GRPCService struct {
	store  *Store
	logger logrus.FieldLogger
}

// NewGRPCService initializes and returns a new GRPCService.
func NewGRPCService(store *Store, logger logrus.FieldLogger) *GRPCService {
	if logger == nil {
		logger = discardLogger()
	}

	return &GRPCService{
		store:  store,
		logger: logger,
	}
}

// AddRoute implements RouteTableServer.
func (s *GRPCService) AddRoute(ctx context.Context, req *AddRouteRequest) (*AddRouteResponse, error) {
	route := req.Route

	if err := s.store.AddRoute(ctx, route.Destination, route.NextHop, route.Metric); err != nil {
		return nil, s.grpcError(err)
	}

	return &AddRouteResponse{}, nil
}

// DeleteRoute implements RouteTableServer.
func (s *GRPCService) DeleteRoute(ctx context.Context, req *DeleteRouteRequest) (*DeleteRouteResponse, error) {
	if err := s.store.DeleteRoute(ctx, req.Destination); err != nil {
		return nil, s.grpcError(err)
	}

	return &DeleteRouteResponse{}, nil
}

// GetRoute implements RouteTableServer.
func (s *GRPCService) GetRoute(ctx context.Context, req *GetRouteRequest) (*GetRouteResponse, error) {
	route, ok, err := s.store.Lookup(ctx, req.Destination, req.AllowStale)

	if err != nil {
		return nil, s.grpcError(err)
	}

	if !ok {
		return &GetRouteResponse{Route: NotFound}, nil
	}

	return &GetRouteResponse{Route: route, Found: true}, nil
}

// GetAllRoutes implements RouteTableServer.
func (s *GRPCService) GetAllRoutes(ctx context.Context, req *GetAllRoutesRequest) (*GetAllRoutesResponse, error) {
	if req.NextHop == nil {
		routes, err := s.store.GetAllRoutes(ctx, req.AllowStale)

		if err != nil {
			return nil, s.grpcError(err)
		}

		return &GetAllRoutesResponse{Routes: routes}, nil
	}

	via, err := s.store.RoutesVia(ctx, *req.NextHop, req.AllowStale)

	if err != nil {
		return nil, s.grpcError(err)
	}

	routes := make(map[string]Route, len(via))
	for _, route := range via {
		routes[route.Destination] = route
	}

	return &GetAllRoutesResponse{Routes: routes}, nil
}

// Status implements RouteTableServer.
func (s *GRPCService) Status(ctx context.Context, req *StatusRequest) (*Status, error) {
	st := s.store.Status()
	return &st, nil
}

func (s *GRPCService) grpcError(err error) error {
	switch err := err.(type) {
	case ErrNotLeader:
		if err.LeaderAddr == "" {
			return status.Error(codes.Unavailable, NotLeaderPrefix)
		}

		addr, perr := OffsetPort(err.LeaderAddr, -RaftPortOffset)

		if perr != nil {
			s.logger.WithError(perr).WithField("leader", err.LeaderAddr).Warnln("Invalid leader address")
			return status.Error(codes.Unavailable, NotLeaderPrefix)
		}

		return status.Errorf(codes.Unavailable, "%s, %s%s", NotLeaderPrefix, NotLeaderHint, addr)
	}

	if st := status.FromContextError(err); st.Code() != codes.Unknown {
		return st.Err()
	}

	s.logger.WithError(err).Warnln("Request failed")
	return status.Error(codes.Unavailable, err.Error())
}

// LeaderHint extracts the leader's gRPC address from an error returned by
// GRPCService. It returns false if err is not a not leader error or the
// leader is unknown.
func LeaderHint(err error) (string, bool) {
	st, ok := status.FromError(err)

	if !ok || st.Code() != codes.Unavailable || !strings.HasPrefix(st.Message(), NotLeaderPrefix) {
		return "", false
	}

	i := strings.Index(st.Message(), NotLeaderHint)

	if i < 0 {
		return "", false
	}

	return st.Message()[i+len(NotLeaderHint):], true
}
