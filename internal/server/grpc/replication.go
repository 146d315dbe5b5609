package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"github.com/dmitrijs2005/replichat/internal/server/models"
)

func (s *GRPCServer) ack(ctx context.Context, op string, err error) (*pb.ReplicateResponse, error) {
	if err != nil {
		s.logger.Warn(ctx, "Replication not applied", "op", op, "error", err)
		return &pb.ReplicateResponse{Success: false, Message: err.Error()}, nil
	}
	return &pb.ReplicateResponse{Success: true}, nil
}

func (s *GRPCServer) ReplicateRegister(ctx context.Context, req *pb.ReplicateRegisterRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "register", s.applier.Register(ctx, req.Username, req.Password))
}

func (s *GRPCServer) ReplicateLogin(ctx context.Context, req *pb.ReplicateUserRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "login", s.applier.Login(ctx, req.Username))
}

func (s *GRPCServer) ReplicateLogout(ctx context.Context, req *pb.ReplicateUserRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "logout", s.applier.Logout(ctx, req.Username))
}

func (s *GRPCServer) ReplicateMessage(ctx context.Context, req *pb.ReplicateMessageRequest) (*pb.ReplicateResponse, error) {
	msg := models.Message{
		ID:     req.MessageId,
		Sender: req.Sender,
		Body:   req.Message,
		Status: models.MessageStatus(req.Status),
	}
	return s.ack(ctx, "message", s.applier.Message(ctx, req.Recipient, msg))
}

func (s *GRPCServer) ReplicateMarkRead(ctx context.Context, req *pb.ReplicateMarkReadRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "mark_read", s.applier.MarkRead(ctx, req.Username, req.Contact, int(req.BatchNum), req.MessageIds))
}

func (s *GRPCServer) ReplicateDeleteMessage(ctx context.Context, req *pb.ReplicateDeleteMessageRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "delete_message", s.applier.DeleteMessage(ctx, req.Sender, req.Recipient, req.MessageId))
}

func (s *GRPCServer) ReplicateDeleteAccount(ctx context.Context, req *pb.ReplicateUserRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "delete_account", s.applier.DeleteAccount(ctx, req.Username))
}

func (s *GRPCServer) ReplicateSubscribe(ctx context.Context, req *pb.ReplicateUserRequest) (*pb.ReplicateResponse, error) {
	return s.ack(ctx, "subscribe", s.applier.Subscribe(ctx, req.Username))
}
