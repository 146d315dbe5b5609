package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	ChatServiceName        = "replichat.ChatService"
	ReplicationServiceName = "replichat.ReplicationService"
	HealthServiceName      = "replichat.Health"
)

const (
	ChatService_CheckVersion_FullMethodName = "/" + ChatServiceName + "/CheckVersion"
	ChatService_Subscribe_FullMethodName    = "/" + ChatServiceName + "/Subscribe"
)

func fullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// unary builds a MethodDesc that decodes Req and dispatches to call on the
// registered server, going through the server interceptor chain when one is
// installed.
func unary[Req, Resp, S any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	name := fullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- ChatService ----

// ChatServiceServer is the client-facing API of a node.
type ChatServiceServer interface {
	CheckVersion(context.Context, *VersionRequest) (*VersionResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ListUsers(context.Context, *emptypb.Empty) (*ListUsersResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	DeleteUnreadMessage(context.Context, *DeleteUnreadMessageRequest) (*DeleteUnreadMessageResponse, error)
	ReceiveMessages(context.Context, *ReceiveMessagesRequest) (*ReceiveMessagesResponse, error)
	DeleteAccount(context.Context, *DeleteAccountRequest) (*DeleteAccountResponse, error)
	GetLeaderInfo(context.Context, *emptypb.Empty) (*GetLeaderInfoResponse, error)
	LoadActiveUsersAndSubscribersFromPersistent(context.Context, *emptypb.Empty) (*RehydrateResponse, error)
	Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Message]) error
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatServiceName, "CheckVersion", ChatServiceServer.CheckVersion),
		unary(ChatServiceName, "Register", ChatServiceServer.Register),
		unary(ChatServiceName, "Login", ChatServiceServer.Login),
		unary(ChatServiceName, "Logout", ChatServiceServer.Logout),
		unary(ChatServiceName, "ListUsers", ChatServiceServer.ListUsers),
		unary(ChatServiceName, "SendMessage", ChatServiceServer.SendMessage),
		unary(ChatServiceName, "MarkRead", ChatServiceServer.MarkRead),
		unary(ChatServiceName, "DeleteUnreadMessage", ChatServiceServer.DeleteUnreadMessage),
		unary(ChatServiceName, "ReceiveMessages", ChatServiceServer.ReceiveMessages),
		unary(ChatServiceName, "DeleteAccount", ChatServiceServer.DeleteAccount),
		unary(ChatServiceName, "GetLeaderInfo", ChatServiceServer.GetLeaderInfo),
		unary(ChatServiceName, "LoadActiveUsersAndSubscribersFromPersistent", ChatServiceServer.LoadActiveUsersAndSubscribersFromPersistent),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(SubscribeRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ChatServiceServer).Subscribe(in, &grpc.GenericServerStream[SubscribeRequest, Message]{ServerStream: stream})
			},
		},
	},
	Metadata: "replichat/chat",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// ChatServiceClient is the client API for ChatService.
type ChatServiceClient interface {
	CheckVersion(ctx context.Context, in *VersionRequest, opts ...grpc.CallOption) (*VersionResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	ListUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListUsersResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	DeleteUnreadMessage(ctx context.Context, in *DeleteUnreadMessageRequest, opts ...grpc.CallOption) (*DeleteUnreadMessageResponse, error)
	ReceiveMessages(ctx context.Context, in *ReceiveMessagesRequest, opts ...grpc.CallOption) (*ReceiveMessagesResponse, error)
	DeleteAccount(ctx context.Context, in *DeleteAccountRequest, opts ...grpc.CallOption) (*DeleteAccountResponse, error)
	GetLeaderInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*GetLeaderInfoResponse, error)
	LoadActiveUsersAndSubscribersFromPersistent(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*RehydrateResponse, error)
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc}
}

func (c *chatServiceClient) CheckVersion(ctx context.Context, in *VersionRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	return invoke[VersionResponse](ctx, c.cc, ChatService_CheckVersion_FullMethodName, in, opts)
}

func (c *chatServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, fullMethod(ChatServiceName, "Register"), in, opts)
}

func (c *chatServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, fullMethod(ChatServiceName, "Login"), in, opts)
}

func (c *chatServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, fullMethod(ChatServiceName, "Logout"), in, opts)
}

func (c *chatServiceClient) ListUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c.cc, fullMethod(ChatServiceName, "ListUsers"), in, opts)
}

func (c *chatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, fullMethod(ChatServiceName, "SendMessage"), in, opts)
}

func (c *chatServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, fullMethod(ChatServiceName, "MarkRead"), in, opts)
}

func (c *chatServiceClient) DeleteUnreadMessage(ctx context.Context, in *DeleteUnreadMessageRequest, opts ...grpc.CallOption) (*DeleteUnreadMessageResponse, error) {
	return invoke[DeleteUnreadMessageResponse](ctx, c.cc, fullMethod(ChatServiceName, "DeleteUnreadMessage"), in, opts)
}

func (c *chatServiceClient) ReceiveMessages(ctx context.Context, in *ReceiveMessagesRequest, opts ...grpc.CallOption) (*ReceiveMessagesResponse, error) {
	return invoke[ReceiveMessagesResponse](ctx, c.cc, fullMethod(ChatServiceName, "ReceiveMessages"), in, opts)
}

func (c *chatServiceClient) DeleteAccount(ctx context.Context, in *DeleteAccountRequest, opts ...grpc.CallOption) (*DeleteAccountResponse, error) {
	return invoke[DeleteAccountResponse](ctx, c.cc, fullMethod(ChatServiceName, "DeleteAccount"), in, opts)
}

func (c *chatServiceClient) GetLeaderInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*GetLeaderInfoResponse, error) {
	return invoke[GetLeaderInfoResponse](ctx, c.cc, fullMethod(ChatServiceName, "GetLeaderInfo"), in, opts)
}

func (c *chatServiceClient) LoadActiveUsersAndSubscribersFromPersistent(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*RehydrateResponse, error) {
	return invoke[RehydrateResponse](ctx, c.cc, fullMethod(ChatServiceName, "LoadActiveUsersAndSubscribersFromPersistent"), in, opts)
}

func (c *chatServiceClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error) {
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Subscribe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeRequest, Message]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ---- ReplicationService ----

// ReplicationServiceServer receives mutations the leader already committed.
type ReplicationServiceServer interface {
	ReplicateRegister(context.Context, *ReplicateRegisterRequest) (*ReplicateResponse, error)
	ReplicateLogin(context.Context, *ReplicateUserRequest) (*ReplicateResponse, error)
	ReplicateLogout(context.Context, *ReplicateUserRequest) (*ReplicateResponse, error)
	ReplicateMessage(context.Context, *ReplicateMessageRequest) (*ReplicateResponse, error)
	ReplicateMarkRead(context.Context, *ReplicateMarkReadRequest) (*ReplicateResponse, error)
	ReplicateDeleteMessage(context.Context, *ReplicateDeleteMessageRequest) (*ReplicateResponse, error)
	ReplicateDeleteAccount(context.Context, *ReplicateUserRequest) (*ReplicateResponse, error)
	ReplicateSubscribe(context.Context, *ReplicateUserRequest) (*ReplicateResponse, error)
}

var ReplicationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ReplicationServiceName,
	HandlerType: (*ReplicationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ReplicationServiceName, "ReplicateRegister", ReplicationServiceServer.ReplicateRegister),
		unary(ReplicationServiceName, "ReplicateLogin", ReplicationServiceServer.ReplicateLogin),
		unary(ReplicationServiceName, "ReplicateLogout", ReplicationServiceServer.ReplicateLogout),
		unary(ReplicationServiceName, "ReplicateMessage", ReplicationServiceServer.ReplicateMessage),
		unary(ReplicationServiceName, "ReplicateMarkRead", ReplicationServiceServer.ReplicateMarkRead),
		unary(ReplicationServiceName, "ReplicateDeleteMessage", ReplicationServiceServer.ReplicateDeleteMessage),
		unary(ReplicationServiceName, "ReplicateDeleteAccount", ReplicationServiceServer.ReplicateDeleteAccount),
		unary(ReplicationServiceName, "ReplicateSubscribe", ReplicationServiceServer.ReplicateSubscribe),
	},
	Metadata: "replichat/replication",
}

func RegisterReplicationServiceServer(s grpc.ServiceRegistrar, srv ReplicationServiceServer) {
	s.RegisterService(&ReplicationService_ServiceDesc, srv)
}

type ReplicationServiceClient interface {
	ReplicateRegister(ctx context.Context, in *ReplicateRegisterRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateLogin(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateLogout(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateMessage(ctx context.Context, in *ReplicateMessageRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateMarkRead(ctx context.Context, in *ReplicateMarkReadRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateDeleteMessage(ctx context.Context, in *ReplicateDeleteMessageRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateDeleteAccount(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
	ReplicateSubscribe(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error)
}

type replicationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReplicationServiceClient(cc grpc.ClientConnInterface) ReplicationServiceClient {
	return &replicationServiceClient{cc}
}

func (c *replicationServiceClient) ReplicateRegister(ctx context.Context, in *ReplicateRegisterRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateRegister"), in, opts)
}

func (c *replicationServiceClient) ReplicateLogin(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateLogin"), in, opts)
}

func (c *replicationServiceClient) ReplicateLogout(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateLogout"), in, opts)
}

func (c *replicationServiceClient) ReplicateMessage(ctx context.Context, in *ReplicateMessageRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateMessage"), in, opts)
}

func (c *replicationServiceClient) ReplicateMarkRead(ctx context.Context, in *ReplicateMarkReadRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateMarkRead"), in, opts)
}

func (c *replicationServiceClient) ReplicateDeleteMessage(ctx context.Context, in *ReplicateDeleteMessageRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateDeleteMessage"), in, opts)
}

func (c *replicationServiceClient) ReplicateDeleteAccount(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateDeleteAccount"), in, opts)
}

func (c *replicationServiceClient) ReplicateSubscribe(ctx context.Context, in *ReplicateUserRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	return invoke[ReplicateResponse](ctx, c.cc, fullMethod(ReplicationServiceName, "ReplicateSubscribe"), in, opts)
}

// ---- Health ----

type HealthServer interface {
	Ping(context.Context, *emptypb.Empty) (*PingResponse, error)
}

var Health_ServiceDesc = grpc.ServiceDesc{
	ServiceName: HealthServiceName,
	HandlerType: (*HealthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(HealthServiceName, "Ping", HealthServer.Ping),
	},
	Metadata: "replichat/health",
}

func RegisterHealthServer(s grpc.ServiceRegistrar, srv HealthServer) {
	s.RegisterService(&Health_ServiceDesc, srv)
}

type HealthClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PingResponse, error)
}

type healthClient struct {
	cc grpc.ClientConnInterface
}

func NewHealthClient(cc grpc.ClientConnInterface) HealthClient {
	return &healthClient{cc}
}

func (c *healthClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, fullMethod(HealthServiceName, "Ping"), in, opts)
}
