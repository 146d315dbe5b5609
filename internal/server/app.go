// Package server wires one replichat node together: durable store, elector,
// replication coordinator, subscription hub, gRPC endpoint and the optional
// metrics endpoint. It also handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/dmitrijs2005/replichat/internal/server/cluster"
	"github.com/dmitrijs2005/replichat/internal/server/config"
	"github.com/dmitrijs2005/replichat/internal/server/election"
	"github.com/dmitrijs2005/replichat/internal/server/health"
	"github.com/dmitrijs2005/replichat/internal/server/hub"
	"github.com/dmitrijs2005/replichat/internal/server/metrics"
	"github.com/dmitrijs2005/replichat/internal/server/replication"
	"github.com/dmitrijs2005/replichat/internal/server/services"
	"github.com/dmitrijs2005/replichat/internal/server/store"
	"google.golang.org/grpc"

	gs "github.com/dmitrijs2005/replichat/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	members *cluster.Membership
	pool    *cluster.Pool
	store   *store.Store
	hub     *hub.Hub
	elector *election.Elector
	chat    *services.ChatService
	applier *services.Applier
	metrics *metrics.Metrics

	listener        net.Listener
	metricsListener net.Listener
	signals         bool
}

type options struct {
	logger          logging.Logger
	listener        net.Listener
	metricsListener net.Listener
	dialOptions     []grpc.DialOption
	noSignals       bool
}

// Option customises NewApp, mostly for in-process clusters in tests.
type Option func(*options)

// WithLogger replaces the default JSON logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithListener serves gRPC on lis instead of listening on the configured address.
func WithListener(lis net.Listener) Option {
	return func(o *options) { o.listener = lis }
}

// WithMetricsListener serves metrics on lis instead of the configured address.
func WithMetricsListener(lis net.Listener) Option {
	return func(o *options) { o.metricsListener = lis }
}

// WithDialOptions adds options to every peer connection.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// WithoutSignalHandler leaves SIGINT/SIGTERM alone.
func WithoutSignalHandler() Option {
	return func(o *options) { o.noSignals = true }
}

func NewApp(c *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewJSONLogger(slog.LevelInfo)
	}
	logger := o.logger.With("node", c.NodeID)

	members, err := cluster.NewMembership(c.NodeID, c.Peers)
	if err != nil {
		return nil, fmt.Errorf("membership: %w", err)
	}

	st, err := store.Open(filepath.Join(c.DataDir, store.FileName(c.NodeID)))
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	m := metrics.New()
	h := hub.New()
	pool := cluster.NewPool(o.dialOptions...)
	peers := cluster.NewPeerTable(members.Peers())

	el := election.New(members, peers, health.NewProber(pool, c.ProbeTimeout), c.ElectionInterval, logger)
	coord := replication.NewCoordinator(members, peers, pool, c.ReplicationTimeout, m, logger)
	chat := services.NewChatService(st, el, coord, h, m, logger)
	ap := services.NewApplier(st, h, logger)

	el.OnPromote(func(ctx context.Context) {
		if _, _, err := chat.Rehydrate(ctx); err != nil {
			logger.Error(ctx, "Rehydration after promotion failed", "error", err)
		}
	})
	el.OnChange(func(role election.Role, leaderID int) {
		m.SetLeader(role == election.RoleLeader)
		m.SetPeersReachable(len(peers.Reachable()))
	})

	return &App{
		config:          c,
		logger:          logger,
		members:         members,
		pool:            pool,
		store:           st,
		hub:             h,
		elector:         el,
		chat:            chat,
		applier:         ap,
		metrics:         m,
		listener:        o.listener,
		metricsListener: o.metricsListener,
		signals:         !o.noSignals,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.Address, app.config.NodeID, app.logger, app.chat, app.applier)
	if app.listener != nil {
		s.WithListener(app.listener)
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context) {
	lis := app.metricsListener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", app.config.MetricsAddr)
		if err != nil {
			app.logger.Error(ctx, "Metrics endpoint disabled", "error", err)
			return
		}
	}
	if err := app.metrics.Serve(ctx, lis, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting node...", "address", app.config.Address, "cluster_size", app.members.Size())

	if app.signals {
		app.initSignalHandler(cancelFunc)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.elector.Run(ctx)
	}()

	if app.config.MetricsAddr != "" || app.metricsListener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	wg.Wait()

	if err := app.pool.Close(); err != nil {
		app.logger.Warn(ctx, "Closing peer connections", "error", err)
	}
	app.logger.Info(ctx, "Node stopped")
}
