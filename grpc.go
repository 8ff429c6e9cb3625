package dvr

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Codec is the name of the gRPC codec used by the RouteTable service. Clients
// must select it, e.g., with grpc.CallContentSubtype(Codec).
const Codec = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return Codec
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// AddRouteRequest is the request message of RouteTable.AddRoute.
type AddRouteRequest struct {
	Route Route `json:"route"`
}

// AddRouteResponse is the response message of RouteTable.AddRoute.
type AddRouteResponse struct{}

// DeleteRouteRequest is the request message of RouteTable.DeleteRoute.
type DeleteRouteRequest struct {
	Destination string `json:"destination"`
}

// DeleteRouteResponse is the response message of RouteTable.DeleteRoute.
type DeleteRouteResponse struct{}

// GetRouteRequest is the request message of RouteTable.GetRoute.
type GetRouteRequest struct {
	Destination string `json:"destination"`
	AllowStale  bool   `json:"allow_stale"`
}

// GetRouteResponse is the response message of RouteTable.GetRoute. If Found
// is false, Route is NotFound.
type GetRouteResponse struct {
	Route Route `json:"route"`
	Found bool  `json:"found"`
}

// GetAllRoutesRequest is the request message of RouteTable.GetAllRoutes. If
// NextHop is set, only routes forwarding to it are returned.
type GetAllRoutesRequest struct {
	AllowStale bool    `json:"allow_stale"`
	NextHop    *string `json:"next_hop,omitempty"`
}

// GetAllRoutesResponse is the response message of RouteTable.GetAllRoutes.
type GetAllRoutesResponse struct {
	Routes map[string]Route `json:"routes"`
}

// StatusRequest is the request message of RouteTable.Status.
type StatusRequest struct{}

// RouteTableServer is the server API for the RouteTable service.
type RouteTableServer interface {
	AddRoute(context.Context, *AddRouteRequest) (*AddRouteResponse, error)
	DeleteRoute(context.Context, *DeleteRouteRequest) (*DeleteRouteResponse, error)
	GetRoute(context.Context, *GetRouteRequest) (*GetRouteResponse, error)
	GetAllRoutes(context.Context, *GetAllRoutesRequest) (*GetAllRoutesResponse, error)
	Status(context.Context, *StatusRequest) (*Status, error)
}

// RegisterRouteTableServer registers srv with s.
func RegisterRouteTableServer(s *grpc.Server, srv RouteTableServer) {
	s.RegisterService(&routeTableServiceDesc, srv)
}

const serviceName = "dvr.RouteTable"

var routeTableServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RouteTableServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddRoute",
			Handler:    addRouteHandler,
		},
		{
			MethodName: "DeleteRoute",
			Handler:    deleteRouteHandler,
		},
		{
			MethodName: "GetRoute",
			Handler:    getRouteHandler,
		},
		{
			MethodName: "GetAllRoutes",
			Handler:    getAllRoutesHandler,
		},
		{
			MethodName: "Status",
			Handler:    statusHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dvr.proto",
}

func addRouteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddRouteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteTableServer).AddRoute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/AddRoute",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteTableServer).AddRoute(ctx, req.(*AddRouteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteRouteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteRouteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteTableServer).DeleteRoute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/DeleteRoute",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteTableServer).DeleteRoute(ctx, req.(*DeleteRouteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRouteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRouteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteTableServer).GetRoute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetRoute",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteTableServer).GetRoute(ctx, req.(*GetRouteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAllRoutesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAllRoutesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteTableServer).GetAllRoutes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetAllRoutes",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteTableServer).GetAllRoutes(ctx, req.(*GetAllRoutesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouteTableServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/Status",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouteTableServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RouteTableClient is the client API for the RouteTable service.
type RouteTableClient interface {
	AddRoute(ctx context.Context, in *AddRouteRequest, opts ...grpc.CallOption) (*AddRouteResponse, error)
	DeleteRoute(ctx context.Context, in *DeleteRouteRequest, opts ...grpc.CallOption) (*DeleteRouteResponse, error)
	GetRoute(ctx context.Context, in *GetRouteRequest, opts ...grpc.CallOption) (*GetRouteResponse, error)
	GetAllRoutes(ctx context.Context, in *GetAllRoutesRequest, opts ...grpc.CallOption) (*GetAllRoutesResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*Status, error)
}

type routeTableClient struct {
	cc grpc.ClientConnInterface
}

// NewRouteTableClient returns a RouteTable client using cc. Calls select the
// JSON codec.
func NewRouteTableClient(cc grpc.ClientConnInterface) RouteTableClient {
	return &routeTableClient{cc}
}

func (c *routeTableClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(Codec)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *routeTableClient) AddRoute(ctx context.Context, in *AddRouteRequest, opts ...grpc.CallOption) (*AddRouteResponse, error) {
	out := new(AddRouteResponse)
	if err := c.invoke(ctx, "AddRoute", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeTableClient) DeleteRoute(ctx context.Context, in *DeleteRouteRequest, opts ...grpc.CallOption) (*DeleteRouteResponse, error) {
	out := new(DeleteRouteResponse)
	if err := c.invoke(ctx, "DeleteRoute", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeTableClient) GetRoute(ctx context.Context, in *GetRouteRequest, opts ...grpc.CallOption) (*GetRouteResponse, error) {
	out := new(GetRouteResponse)
	if err := c.invoke(ctx, "GetRoute", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeTableClient) GetAllRoutes(ctx context.Context, in *GetAllRoutesRequest, opts ...grpc.CallOption) (*GetAllRoutesResponse, error) {
	out := new(GetAllRoutesResponse)
	if err := c.invoke(ctx, "GetAllRoutes", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routeTableClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*Status, error) {
	out := new(Status)
	if err := c.invoke(ctx, "Status", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
