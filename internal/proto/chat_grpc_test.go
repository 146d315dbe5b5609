package proto

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestCodec_StructAndProto(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	b, err := c.Marshal(&SendMessageRequest{Sender: "bob", Recipient: "alice", Message: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sender":"bob","recipient":"alice","message":"hi"}`, string(b))

	var got SendMessageRequest
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, "alice", got.Recipient)

	b, err = c.Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	require.NoError(t, c.Unmarshal(b, &emptypb.Empty{}))

	require.Error(t, c.Unmarshal([]byte("{"), &got))
}

// echoChat implements just enough of ChatServiceServer for a transport test.
type echoChat struct {
	ChatServiceServer
}

func (echoChat) SendMessage(_ context.Context, in *SendMessageRequest) (*SendMessageResponse, error) {
	return &SendMessageResponse{Status: "success", MessageId: in.Sender + "->" + in.Recipient}, nil
}

func (echoChat) GetLeaderInfo(context.Context, *emptypb.Empty) (*GetLeaderInfoResponse, error) {
	return &GetLeaderInfoResponse{Status: "success", Info: "localhost:8001"}, nil
}

func (echoChat) Subscribe(in *SubscribeRequest, stream grpc.ServerStreamingServer[Message]) error {
	for _, id := range []string{"1", "2"} {
		if err := stream.Send(&Message{Id: id, Sender: "bob", Message: "for " + in.Username, Status: "unread"}); err != nil {
			return err
		}
	}
	return nil
}

func dialBuf(t *testing.T, register func(*grpc.Server), opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		CallOption(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestChatService_UnaryAndStream(t *testing.T) {
	var seen []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	conn := dialBuf(t, func(s *grpc.Server) { RegisterChatServiceServer(s, echoChat{}) }, grpc.UnaryInterceptor(interceptor))
	c := NewChatServiceClient(conn)
	ctx := context.Background()

	resp, err := c.SendMessage(ctx, &SendMessageRequest{Sender: "bob", Recipient: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "bob->alice", resp.MessageId)

	info, err := c.GetLeaderInfo(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "localhost:8001", info.Info)
	assert.Equal(t, []string{"/replichat.ChatService/SendMessage", "/replichat.ChatService/GetLeaderInfo"}, seen)

	stream, err := c.Subscribe(ctx, &SubscribeRequest{Username: "alice"})
	require.NoError(t, err)
	var ids []string
	for {
		m, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "for alice", m.Message)
		ids = append(ids, m.Id)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

type okHealth struct{}

func (okHealth) Ping(context.Context, *emptypb.Empty) (*PingResponse, error) {
	return &PingResponse{Alive: true, NodeId: 3}, nil
}

func TestHealth_Ping(t *testing.T) {
	conn := dialBuf(t, func(s *grpc.Server) { RegisterHealthServer(s, okHealth{}) })
	resp, err := NewHealthClient(conn).Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.True(t, resp.Alive)
	assert.EqualValues(t, 3, resp.NodeId)
}
