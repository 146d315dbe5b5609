package client

import (
	"context"

	"github.com/dmitrijs2005/replichat/internal/client/models"
)

// Stream delivers pushed messages until the server ends it or ctx is cancelled.
type Stream interface {
	Recv() (models.Message, error)
}

type Client interface {
	Close() error
	Address() string
	CheckVersion(ctx context.Context) error
	Register(ctx context.Context, username, passwordHash string) error
	Login(ctx context.Context, username, passwordHash string) (int, error)
	Logout(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]string, error)
	SendMessage(ctx context.Context, sender, recipient, body string) (string, error)
	MarkRead(ctx context.Context, username, contact string, batch int) (int, error)
	DeleteUnreadMessage(ctx context.Context, sender, recipient, id string) error
	ReceiveMessages(ctx context.Context, username string) ([]models.Message, error)
	DeleteAccount(ctx context.Context, username string) error
	Subscribe(ctx context.Context, username string) (Stream, error)
	LeaderInfo(ctx context.Context) (string, error)
	Rehydrate(ctx context.Context) error
}
