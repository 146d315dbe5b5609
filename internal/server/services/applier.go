package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/dmitrijs2005/replichat/internal/server/hub"
	"github.com/dmitrijs2005/replichat/internal/server/models"
	"github.com/dmitrijs2005/replichat/internal/server/store"
)

// Applier applies replicated mutations to the local store whatever this
// node's role. Each method succeeds, without a second effect, when the
// mutation is already in place.
type Applier struct {
	store  *store.Store
	hub    *hub.Hub
	logger logging.Logger
}

func NewApplier(st *store.Store, h *hub.Hub, l logging.Logger) *Applier {
	return &Applier{store: st, hub: h, logger: l.With("module", "applier")}
}

// settled treats the listed sentinels as an already-applied mutation.
func settled(err error, already ...error) error {
	for _, a := range already {
		if errors.Is(err, a) {
			return nil
		}
	}
	return err
}

func (a *Applier) Register(ctx context.Context, username, passwordHash string) error {
	a.logger.Debug(ctx, "Apply register", "username", username)
	return settled(a.store.Register(username, passwordHash), common.ErrAlreadyExists)
}

func (a *Applier) Login(ctx context.Context, username string) error {
	return settled(a.store.AddActiveUser(username), common.ErrAlreadyLoggedIn)
}

func (a *Applier) Logout(ctx context.Context, username string) error {
	if err := settled(a.store.EndSession(username), common.ErrNotLoggedIn); err != nil {
		return err
	}
	a.hub.Remove(username)
	return nil
}

// Message stores msg under recipient. A message id already present is ignored.
func (a *Applier) Message(ctx context.Context, recipient string, msg models.Message) error {
	if msg.Status == "" {
		msg.Status = models.StatusUnread
	}
	ok, err := a.store.AppendMessage(recipient, msg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("recipient %q: %w", recipient, common.ErrorNotFound)
	}
	a.logger.Debug(ctx, "Apply message", "to", recipient, "id", msg.ID)
	return nil
}

// MarkRead applies the leader's list of read ids. Without ids it falls back
// to repeating the batch selection locally.
func (a *Applier) MarkRead(ctx context.Context, username, contact string, batch int, ids []string) error {
	if len(ids) > 0 {
		_, err := a.store.MarkReadIDs(username, ids)
		return err
	}
	_, err := a.store.MarkRead(username, contact, batch)
	return err
}

func (a *Applier) DeleteMessage(ctx context.Context, sender, recipient, id string) error {
	_, err := a.store.DeleteMessage(sender, recipient, id, false)
	return settled(err, common.ErrAlreadyDeleted)
}

func (a *Applier) DeleteAccount(ctx context.Context, username string) error {
	if err := settled(a.store.DeleteAccount(username), common.ErrAlreadyDeleted); err != nil {
		return err
	}
	a.hub.Remove(username)
	return nil
}

func (a *Applier) Subscribe(ctx context.Context, username string) error {
	return a.store.SetSubscribed(username, true)
}
