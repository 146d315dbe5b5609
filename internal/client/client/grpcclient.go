package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/common"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// GRPCClient is a Client bound to one node.
type GRPCClient struct {
	address string
	opts    []grpc.DialOption
	conn    *grpc.ClientConn
	client  pb.ChatServiceClient
}

func withVersion(ctx context.Context) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.VersionHeaderName, common.ProtocolVersion)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) versionInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withVersion(ctx), method, req, reply, cc, opts...)
}

func (s *GRPCClient) versionStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withVersion(ctx), desc, cc, method, opts...)
}

// NewGRPCClient prepares a client for address. No connection is made until
// the first call. Extra dial options (a bufconn dialer in tests) are appended.
func NewGRPCClient(address string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{address: address, opts: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.versionInterceptor),
		grpc.WithStreamInterceptor(s.versionStreamInterceptor),
		pb.CallOption(),
	}, s.opts...)

	conn, err := grpc.NewClient("passthrough:///"+s.address, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewChatServiceClient(conn)
	return nil
}

func (s *GRPCClient) Address() string {
	return s.address
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) CheckVersion(ctx context.Context) error {
	resp, err := s.client.CheckVersion(ctx, &pb.VersionRequest{Version: common.ProtocolVersion})
	if err != nil {
		return s.mapError(err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", common.ErrVersionMismatch, resp.Message)
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, username, passwordHash string) error {
	resp, err := s.client.Register(ctx, &pb.RegisterRequest{Username: username, Password: passwordHash})
	if err != nil {
		return s.mapError(err)
	}
	return common.ErrorOf(resp.Status, resp.Message)
}

// Login returns the number of unread messages waiting for the user.
func (s *GRPCClient) Login(ctx context.Context, username, passwordHash string) (int, error) {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{Username: username, Password: passwordHash})
	if err != nil {
		return 0, s.mapError(err)
	}
	if err := common.ErrorOf(resp.Status, resp.Message); err != nil {
		return 0, err
	}
	return int(resp.UnreadMessages), nil
}

func (s *GRPCClient) Logout(ctx context.Context, username string) error {
	resp, err := s.client.Logout(ctx, &pb.LogoutRequest{Username: username})
	if err != nil {
		return s.mapError(err)
	}
	return common.ErrorOf(resp.Status, resp.Message)
}

func (s *GRPCClient) ListUsers(ctx context.Context) ([]string, error) {
	resp, err := s.client.ListUsers(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := common.ErrorOf(resp.Status, ""); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// SendMessage returns the id the leader assigned. On a replication shortfall
// the id is returned together with the error: the leader kept the message.
func (s *GRPCClient) SendMessage(ctx context.Context, sender, recipient, body string) (string, error) {
	resp, err := s.client.SendMessage(ctx, &pb.SendMessageRequest{Sender: sender, Recipient: recipient, Message: body})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.MessageId, common.ErrorOf(resp.Status, resp.Message)
}

func (s *GRPCClient) MarkRead(ctx context.Context, username, contact string, batch int) (int, error) {
	resp, err := s.client.MarkRead(ctx, &pb.MarkReadRequest{Username: username, Contact: contact, BatchNum: int32(batch)})
	if err != nil {
		return 0, s.mapError(err)
	}
	return int(resp.Count), common.ErrorOf(resp.Status, resp.Message)
}

func (s *GRPCClient) DeleteUnreadMessage(ctx context.Context, sender, recipient, id string) error {
	resp, err := s.client.DeleteUnreadMessage(ctx, &pb.DeleteUnreadMessageRequest{Sender: sender, Recipient: recipient, MessageId: id})
	if err != nil {
		return s.mapError(err)
	}
	return common.ErrorOf(resp.Status, resp.Message)
}

func (s *GRPCClient) ReceiveMessages(ctx context.Context, username string) ([]models.Message, error) {
	resp, err := s.client.ReceiveMessages(ctx, &pb.ReceiveMessagesRequest{Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := common.ErrorOf(resp.Status, resp.Message); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, fromPB(m))
	}
	return out, nil
}

func (s *GRPCClient) DeleteAccount(ctx context.Context, username string) error {
	resp, err := s.client.DeleteAccount(ctx, &pb.DeleteAccountRequest{Username: username})
	if err != nil {
		return s.mapError(err)
	}
	return common.ErrorOf(resp.Status, resp.Message)
}

// LeaderInfo asks the node which address it believes leads the cluster.
func (s *GRPCClient) LeaderInfo(ctx context.Context) (string, error) {
	resp, err := s.client.GetLeaderInfo(ctx, &emptypb.Empty{})
	if err != nil {
		return "", s.mapError(err)
	}
	if err := common.ErrorOf(resp.Status, resp.Info); err != nil {
		return "", err
	}
	return resp.Info, nil
}

func (s *GRPCClient) Rehydrate(ctx context.Context) error {
	resp, err := s.client.LoadActiveUsersAndSubscribersFromPersistent(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	return common.ErrorOf(resp.Status, "")
}

// Subscribe opens the push stream. Errors the server reports when accepting
// the subscription surface on the first Recv.
func (s *GRPCClient) Subscribe(ctx context.Context, username string) (Stream, error) {
	st, err := s.client.Subscribe(ctx, &pb.SubscribeRequest{Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &grpcStream{stream: st, mapError: s.mapError}, nil
}

type grpcStream struct {
	stream   grpc.ServerStreamingClient[pb.Message]
	mapError func(error) error
}

// Recv returns io.EOF when the server closes the stream cleanly.
func (g *grpcStream) Recv() (models.Message, error) {
	m, err := g.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Message{}, io.EOF
		}
		return models.Message{}, g.mapError(err)
	}
	return fromPB(m), nil
}

func fromPB(m *pb.Message) models.Message {
	return models.Message{ID: m.Id, From: m.Sender, Body: m.Message, Status: m.Status}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.FailedPrecondition:
		if strings.Contains(st.Message(), common.ErrVersionMismatch.Error()) {
			return fmt.Errorf("%w: %s", common.ErrVersionMismatch, st.Message())
		}
		return fmt.Errorf("%w: %s", common.ErrNotLeader, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, st.Message())
	case codes.Unavailable:
		if strings.Contains(st.Message(), common.ErrReplicationFailed.Error()) {
			return fmt.Errorf("%w: %s", common.ErrReplicationFailed, st.Message())
		}
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Aborted:
		return fmt.Errorf("%w: %s", ErrSuperseded, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
