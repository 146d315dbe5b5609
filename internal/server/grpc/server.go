package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/replichat/internal/logging"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"github.com/dmitrijs2005/replichat/internal/server/hub"
	"github.com/dmitrijs2005/replichat/internal/server/models"
	"google.golang.org/grpc"
)

const stopTimeout = 2 * time.Second

// chatService is the leader path used by the client-facing handlers.
type chatService interface {
	Register(ctx context.Context, username, passwordHash string) error
	Login(ctx context.Context, username, passwordHash string) (int, error)
	Logout(ctx context.Context, username string) error
	SendMessage(ctx context.Context, sender, recipient, body string) (string, error)
	MarkRead(ctx context.Context, username, contact string, batch int) (int, error)
	DeleteUnreadMessage(ctx context.Context, sender, recipient, id string) error
	DeleteAccount(ctx context.Context, username string) error
	Subscribe(ctx context.Context, username string) (*hub.Subscription, error)
	ListUsers() []string
	ReceiveMessages(username string) ([]models.Message, error)
	LeaderAddress() (string, error)
	Rehydrate(ctx context.Context) (int, int, error)
}

// applier is the follower path used by the replication handlers.
type applier interface {
	Register(ctx context.Context, username, passwordHash string) error
	Login(ctx context.Context, username string) error
	Logout(ctx context.Context, username string) error
	Message(ctx context.Context, recipient string, msg models.Message) error
	MarkRead(ctx context.Context, username, contact string, batch int, ids []string) error
	DeleteMessage(ctx context.Context, sender, recipient, id string) error
	DeleteAccount(ctx context.Context, username string) error
	Subscribe(ctx context.Context, username string) error
}

// GRPCServer serves the chat, replication and health services of one node.
type GRPCServer struct {
	address  string
	nodeID   int
	chat     chatService
	applier  applier
	logger   logging.Logger
	listener net.Listener
}

func NewGRPCServer(a string, nodeID int, l logging.Logger, cs chatService, ap applier) *GRPCServer {
	return &GRPCServer{
		address: a,
		nodeID:  nodeID,
		chat:    cs,
		applier: ap,
		logger:  l.With("module", "grpc_server"),
	}
}

// WithListener makes Run serve on lis instead of listening on the address.
func (s *GRPCServer) WithListener(lis net.Listener) *GRPCServer {
	s.listener = lis
	return s
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen := s.listener
	if listen == nil {
		var err error
		// announces address
		listen, err = net.Listen("tcp", s.address)
		if err != nil {
			return err
		}
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.versionUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.versionStreamInterceptor),
	)

	pb.RegisterChatServiceServer(srv, s)
	pb.RegisterReplicationServiceServer(srv, s)
	pb.RegisterHealthServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")

		// Subscribe streams never finish on their own.
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(stopTimeout):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
