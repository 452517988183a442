package marketpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "filetrade.market.Market"

const (
	Market_Ping_FullMethodName                 = "/filetrade.market.Market/Ping"
	Market_Register_FullMethodName             = "/filetrade.market.Market/Register"
	Market_Login_FullMethodName                = "/filetrade.market.Market/Login"
	Market_RefreshToken_FullMethodName         = "/filetrade.market.Market/RefreshToken"
	Market_Info_FullMethodName                 = "/filetrade.market.Market/Info"
	Market_Balance_FullMethodName              = "/filetrade.market.Market/Balance"
	Market_Fund_FullMethodName                 = "/filetrade.market.Market/Fund"
	Market_CreateOffering_FullMethodName       = "/filetrade.market.Market/CreateOffering"
	Market_RemoveOffering_FullMethodName       = "/filetrade.market.Market/RemoveOffering"
	Market_RequestFile_FullMethodName          = "/filetrade.market.Market/RequestFile"
	Market_GetOffering_FullMethodName          = "/filetrade.market.Market/GetOffering"
	Market_GetActiveOfferingIds_FullMethodName = "/filetrade.market.Market/GetActiveOfferingIds"
	Market_GetRequestIds_FullMethodName        = "/filetrade.market.Market/GetRequestIds"
	Market_GetRequest_FullMethodName           = "/filetrade.market.Market/GetRequest"
	Market_ListEvents_FullMethodName           = "/filetrade.market.Market/ListEvents"
	Market_SubscribeEvents_FullMethodName      = "/filetrade.market.Market/SubscribeEvents"
)

// MarketServer is the server API for the Market service.
type MarketServer interface {
	Ping(context.Context, *emptypb.Empty) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Info(context.Context, *InfoRequest) (*InfoResponse, error)
	Balance(context.Context, *BalanceRequest) (*BalanceResponse, error)
	Fund(context.Context, *FundRequest) (*FundResponse, error)
	CreateOffering(context.Context, *CreateOfferingRequest) (*CreateOfferingResponse, error)
	RemoveOffering(context.Context, *RemoveOfferingRequest) (*RemoveOfferingResponse, error)
	RequestFile(context.Context, *RequestFileRequest) (*RequestFileResponse, error)
	GetOffering(context.Context, *GetOfferingRequest) (*Offering, error)
	GetActiveOfferingIds(context.Context, *GetActiveOfferingIdsRequest) (*IdList, error)
	GetRequestIds(context.Context, *GetRequestIdsRequest) (*IdList, error)
	GetRequest(context.Context, *GetRequestRequest) (*FileRequest, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	SubscribeEvents(*SubscribeEventsRequest, grpc.ServerStreamingServer[Event]) error
}

// UnimplementedMarketServer must be embedded by implementations so that
// adding methods does not break them.
type UnimplementedMarketServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedMarketServer) Ping(context.Context, *emptypb.Empty) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedMarketServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedMarketServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedMarketServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedMarketServer) Info(context.Context, *InfoRequest) (*InfoResponse, error) {
	return nil, unimplemented("Info")
}
func (UnimplementedMarketServer) Balance(context.Context, *BalanceRequest) (*BalanceResponse, error) {
	return nil, unimplemented("Balance")
}
func (UnimplementedMarketServer) Fund(context.Context, *FundRequest) (*FundResponse, error) {
	return nil, unimplemented("Fund")
}
func (UnimplementedMarketServer) CreateOffering(context.Context, *CreateOfferingRequest) (*CreateOfferingResponse, error) {
	return nil, unimplemented("CreateOffering")
}
func (UnimplementedMarketServer) RemoveOffering(context.Context, *RemoveOfferingRequest) (*RemoveOfferingResponse, error) {
	return nil, unimplemented("RemoveOffering")
}
func (UnimplementedMarketServer) RequestFile(context.Context, *RequestFileRequest) (*RequestFileResponse, error) {
	return nil, unimplemented("RequestFile")
}
func (UnimplementedMarketServer) GetOffering(context.Context, *GetOfferingRequest) (*Offering, error) {
	return nil, unimplemented("GetOffering")
}
func (UnimplementedMarketServer) GetActiveOfferingIds(context.Context, *GetActiveOfferingIdsRequest) (*IdList, error) {
	return nil, unimplemented("GetActiveOfferingIds")
}
func (UnimplementedMarketServer) GetRequestIds(context.Context, *GetRequestIdsRequest) (*IdList, error) {
	return nil, unimplemented("GetRequestIds")
}
func (UnimplementedMarketServer) GetRequest(context.Context, *GetRequestRequest) (*FileRequest, error) {
	return nil, unimplemented("GetRequest")
}
func (UnimplementedMarketServer) ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error) {
	return nil, unimplemented("ListEvents")
}
func (UnimplementedMarketServer) SubscribeEvents(*SubscribeEventsRequest, grpc.ServerStreamingServer[Event]) error {
	return unimplemented("SubscribeEvents")
}

func RegisterMarketServer(s grpc.ServiceRegistrar, srv MarketServer) {
	s.RegisterService(&Market_ServiceDesc, srv)
}

// unary adapts a typed MarketServer method to a grpc.MethodDesc handler.
func unary[Req, Res any](fullMethod string, call func(MarketServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MarketServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MarketServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeEventsHandler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeEventsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MarketServer).SubscribeEvents(m, &grpc.GenericServerStream[SubscribeEventsRequest, Event]{ServerStream: stream})
}

// Market_ServiceDesc is the grpc.ServiceDesc for the Market service.
var Market_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(Market_Ping_FullMethodName, MarketServer.Ping)},
		{MethodName: "Register", Handler: unary(Market_Register_FullMethodName, MarketServer.Register)},
		{MethodName: "Login", Handler: unary(Market_Login_FullMethodName, MarketServer.Login)},
		{MethodName: "RefreshToken", Handler: unary(Market_RefreshToken_FullMethodName, MarketServer.RefreshToken)},
		{MethodName: "Info", Handler: unary(Market_Info_FullMethodName, MarketServer.Info)},
		{MethodName: "Balance", Handler: unary(Market_Balance_FullMethodName, MarketServer.Balance)},
		{MethodName: "Fund", Handler: unary(Market_Fund_FullMethodName, MarketServer.Fund)},
		{MethodName: "CreateOffering", Handler: unary(Market_CreateOffering_FullMethodName, MarketServer.CreateOffering)},
		{MethodName: "RemoveOffering", Handler: unary(Market_RemoveOffering_FullMethodName, MarketServer.RemoveOffering)},
		{MethodName: "RequestFile", Handler: unary(Market_RequestFile_FullMethodName, MarketServer.RequestFile)},
		{MethodName: "GetOffering", Handler: unary(Market_GetOffering_FullMethodName, MarketServer.GetOffering)},
		{MethodName: "GetActiveOfferingIds", Handler: unary(Market_GetActiveOfferingIds_FullMethodName, MarketServer.GetActiveOfferingIds)},
		{MethodName: "GetRequestIds", Handler: unary(Market_GetRequestIds_FullMethodName, MarketServer.GetRequestIds)},
		{MethodName: "GetRequest", Handler: unary(Market_GetRequest_FullMethodName, MarketServer.GetRequest)},
		{MethodName: "ListEvents", Handler: unary(Market_ListEvents_FullMethodName, MarketServer.ListEvents)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeEvents",
			Handler:       subscribeEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "filetrade/market.proto",
}

// MarketClient is the client API for the Market service. Every call uses
// the JSON codec.
type MarketClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PingResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error)
	Balance(ctx context.Context, in *BalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error)
	Fund(ctx context.Context, in *FundRequest, opts ...grpc.CallOption) (*FundResponse, error)
	CreateOffering(ctx context.Context, in *CreateOfferingRequest, opts ...grpc.CallOption) (*CreateOfferingResponse, error)
	RemoveOffering(ctx context.Context, in *RemoveOfferingRequest, opts ...grpc.CallOption) (*RemoveOfferingResponse, error)
	RequestFile(ctx context.Context, in *RequestFileRequest, opts ...grpc.CallOption) (*RequestFileResponse, error)
	GetOffering(ctx context.Context, in *GetOfferingRequest, opts ...grpc.CallOption) (*Offering, error)
	GetActiveOfferingIds(ctx context.Context, in *GetActiveOfferingIdsRequest, opts ...grpc.CallOption) (*IdList, error)
	GetRequestIds(ctx context.Context, in *GetRequestIdsRequest, opts ...grpc.CallOption) (*IdList, error)
	GetRequest(ctx context.Context, in *GetRequestRequest, opts ...grpc.CallOption) (*FileRequest, error)
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
	SubscribeEvents(ctx context.Context, in *SubscribeEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
}

type marketClient struct {
	cc grpc.ClientConnInterface
}

func NewMarketClient(cc grpc.ClientConnInterface) MarketClient {
	return &marketClient{cc}
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(Name)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *marketClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, Market_Ping_FullMethodName, in, opts)
}

func (c *marketClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, Market_Register_FullMethodName, in, opts)
}

func (c *marketClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, Market_Login_FullMethodName, in, opts)
}

func (c *marketClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, Market_RefreshToken_FullMethodName, in, opts)
}

func (c *marketClient) Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error) {
	return invoke[InfoResponse](ctx, c.cc, Market_Info_FullMethodName, in, opts)
}

func (c *marketClient) Balance(ctx context.Context, in *BalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c.cc, Market_Balance_FullMethodName, in, opts)
}

func (c *marketClient) Fund(ctx context.Context, in *FundRequest, opts ...grpc.CallOption) (*FundResponse, error) {
	return invoke[FundResponse](ctx, c.cc, Market_Fund_FullMethodName, in, opts)
}

func (c *marketClient) CreateOffering(ctx context.Context, in *CreateOfferingRequest, opts ...grpc.CallOption) (*CreateOfferingResponse, error) {
	return invoke[CreateOfferingResponse](ctx, c.cc, Market_CreateOffering_FullMethodName, in, opts)
}

func (c *marketClient) RemoveOffering(ctx context.Context, in *RemoveOfferingRequest, opts ...grpc.CallOption) (*RemoveOfferingResponse, error) {
	return invoke[RemoveOfferingResponse](ctx, c.cc, Market_RemoveOffering_FullMethodName, in, opts)
}

func (c *marketClient) RequestFile(ctx context.Context, in *RequestFileRequest, opts ...grpc.CallOption) (*RequestFileResponse, error) {
	return invoke[RequestFileResponse](ctx, c.cc, Market_RequestFile_FullMethodName, in, opts)
}

func (c *marketClient) GetOffering(ctx context.Context, in *GetOfferingRequest, opts ...grpc.CallOption) (*Offering, error) {
	return invoke[Offering](ctx, c.cc, Market_GetOffering_FullMethodName, in, opts)
}

func (c *marketClient) GetActiveOfferingIds(ctx context.Context, in *GetActiveOfferingIdsRequest, opts ...grpc.CallOption) (*IdList, error) {
	return invoke[IdList](ctx, c.cc, Market_GetActiveOfferingIds_FullMethodName, in, opts)
}

func (c *marketClient) GetRequestIds(ctx context.Context, in *GetRequestIdsRequest, opts ...grpc.CallOption) (*IdList, error) {
	return invoke[IdList](ctx, c.cc, Market_GetRequestIds_FullMethodName, in, opts)
}

func (c *marketClient) GetRequest(ctx context.Context, in *GetRequestRequest, opts ...grpc.CallOption) (*FileRequest, error) {
	return invoke[FileRequest](ctx, c.cc, Market_GetRequest_FullMethodName, in, opts)
}

func (c *marketClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, Market_ListEvents_FullMethodName, in, opts)
}

func (c *marketClient) SubscribeEvents(ctx context.Context, in *SubscribeEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(Name)}, opts...)
	stream, err := c.cc.NewStream(ctx, &Market_ServiceDesc.Streams[0], Market_SubscribeEvents_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeEventsRequest, Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
