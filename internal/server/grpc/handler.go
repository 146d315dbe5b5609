package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/replichat/internal/common"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"github.com/dmitrijs2005/replichat/internal/server/hub"
	"github.com/dmitrijs2005/replichat/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// reply turns a service result into the status and message carried by every
// unary response.
func (s *GRPCServer) reply(ctx context.Context, op string, err error, ok string) (string, string) {
	if err == nil {
		return common.StatusSuccess, ok
	}
	code := common.StatusOf(err)
	if code == common.StatusInternal {
		s.logger.Error(ctx, "Call failed", "op", op, "error", err)
	} else {
		s.logger.Info(ctx, "Call refused", "op", op, "status", code, "error", err)
	}
	return code, err.Error()
}

func toPB(m models.Message) *pb.Message {
	return &pb.Message{Id: m.ID, Sender: m.Sender, Message: m.Body, Status: string(m.Status)}
}

func (s *GRPCServer) CheckVersion(ctx context.Context, req *pb.VersionRequest) (*pb.VersionResponse, error) {
	if req.Version != common.ProtocolVersion {
		return &pb.VersionResponse{
			Success: false,
			Message: "version mismatch: server runs " + common.ProtocolVersion,
		}, nil
	}
	return &pb.VersionResponse{Success: true, Message: "version ok"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	st, msg := s.reply(ctx, "register", s.chat.Register(ctx, req.Username, req.Password), "registered")
	return &pb.RegisterResponse{Status: st, Message: msg}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {
	unread, err := s.chat.Login(ctx, req.Username, req.Password)
	st, msg := s.reply(ctx, "login", err, "logged in")
	return &pb.LoginResponse{Status: st, Message: msg, UnreadMessages: int32(unread)}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.LogoutRequest) (*pb.LogoutResponse, error) {
	st, msg := s.reply(ctx, "logout", s.chat.Logout(ctx, req.Username), "logged out")
	return &pb.LogoutResponse{Status: st, Message: msg}, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, _ *emptypb.Empty) (*pb.ListUsersResponse, error) {
	return &pb.ListUsersResponse{Status: common.StatusSuccess, Users: s.chat.ListUsers()}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req *pb.SendMessageRequest) (*pb.SendMessageResponse, error) {
	id, err := s.chat.SendMessage(ctx, req.Sender, req.Recipient, req.Message)
	st, msg := s.reply(ctx, "send", err, "message sent")
	return &pb.SendMessageResponse{Status: st, Message: msg, MessageId: id}, nil
}

func (s *GRPCServer) MarkRead(ctx context.Context, req *pb.MarkReadRequest) (*pb.MarkReadResponse, error) {
	n, err := s.chat.MarkRead(ctx, req.Username, req.Contact, int(req.BatchNum))
	st, msg := s.reply(ctx, "mark_read", err, "messages marked read")
	return &pb.MarkReadResponse{Status: st, Message: msg, Count: int32(n)}, nil
}

func (s *GRPCServer) DeleteUnreadMessage(ctx context.Context, req *pb.DeleteUnreadMessageRequest) (*pb.DeleteUnreadMessageResponse, error) {
	err := s.chat.DeleteUnreadMessage(ctx, req.Sender, req.Recipient, req.MessageId)
	st, msg := s.reply(ctx, "delete_message", err, "message deleted")
	return &pb.DeleteUnreadMessageResponse{Status: st, Message: msg}, nil
}

func (s *GRPCServer) ReceiveMessages(ctx context.Context, req *pb.ReceiveMessagesRequest) (*pb.ReceiveMessagesResponse, error) {
	msgs, err := s.chat.ReceiveMessages(req.Username)
	st, text := s.reply(ctx, "receive", err, "")

	out := make([]*pb.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toPB(m))
	}
	return &pb.ReceiveMessagesResponse{Status: st, Message: text, Messages: out}, nil
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, req *pb.DeleteAccountRequest) (*pb.DeleteAccountResponse, error) {
	st, msg := s.reply(ctx, "delete_account", s.chat.DeleteAccount(ctx, req.Username), "account deleted")
	return &pb.DeleteAccountResponse{Status: st, Message: msg}, nil
}

func (s *GRPCServer) GetLeaderInfo(ctx context.Context, _ *emptypb.Empty) (*pb.GetLeaderInfoResponse, error) {
	addr, err := s.chat.LeaderAddress()
	if err != nil {
		return &pb.GetLeaderInfoResponse{Status: common.StatusOf(err)}, nil
	}
	return &pb.GetLeaderInfoResponse{Status: common.StatusSuccess, Info: addr}, nil
}

func (s *GRPCServer) LoadActiveUsersAndSubscribersFromPersistent(ctx context.Context, _ *emptypb.Empty) (*pb.RehydrateResponse, error) {
	active, subs, err := s.chat.Rehydrate(ctx)
	st, _ := s.reply(ctx, "rehydrate", err, "")
	return &pb.RehydrateResponse{Status: st, ActiveUsers: int32(active), Subscribers: int32(subs)}, nil
}

// streamError maps a service error onto the gRPC status ending a stream.
func streamError(err error) error {
	var c codes.Code
	switch {
	case errors.Is(err, common.ErrNotLeader):
		c = codes.FailedPrecondition
	case errors.Is(err, common.ErrorNotFound):
		c = codes.NotFound
	case errors.Is(err, common.ErrReplicationFailed):
		c = codes.Unavailable
	case errors.Is(err, common.ErrInvalidArgument):
		c = codes.InvalidArgument
	case errors.Is(err, hub.ErrReplaced):
		c = codes.Aborted
	case errors.Is(err, hub.ErrClosed):
		c = codes.Canceled
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

// Subscribe holds the stream open and forwards every message queued for the
// user until the client goes away or the subscription is replaced.
func (s *GRPCServer) Subscribe(req *pb.SubscribeRequest, stream grpc.ServerStreamingServer[pb.Message]) error {
	ctx := stream.Context()

	sub, err := s.chat.Subscribe(ctx, req.Username)
	if err != nil {
		s.logger.Info(ctx, "Subscribe refused", "username", req.Username, "error", err)
		return streamError(err)
	}
	defer sub.Close()

	for {
		m, err := sub.Next(ctx)
		if err != nil {
			s.logger.Info(ctx, "Stream ended", "username", req.Username, "reason", err)
			return streamError(err)
		}
		if err := stream.Send(toPB(m)); err != nil {
			s.logger.Warn(ctx, "Stream broken", "username", req.Username, "error", err)
			return err
		}
	}
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*pb.PingResponse, error) {
	return &pb.PingResponse{Alive: true, NodeId: int32(s.nodeID)}, nil
}
