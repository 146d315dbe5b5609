// Package metrics exposes node counters and gauges over HTTP.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replichat"

// Replication call results.
const (
	ResultAck   = "ack"
	ResultNack  = "nack"
	ResultError = "error"
)

// Metrics owns a private registry so several nodes can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	ReplicationCalls *prometheus.CounterVec
	Mutations        *prometheus.CounterVec
	IsLeader         prometheus.Gauge
	PeersReachable   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReplicationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replication_calls_total",
			Help:      "Replication calls sent to peers, by operation and result.",
		}, []string{"op", "result"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Client mutations handled by the leader, by operation and status.",
		}, []string{"op", "status"}),
		IsLeader: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "is_leader",
			Help:      "1 while this node believes it is the leader.",
		}),
		PeersReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_reachable",
			Help:      "Peers currently targeted by replication.",
		}),
	}
	m.Registry.MustRegister(m.ReplicationCalls, m.Mutations, m.IsLeader, m.PeersReachable)
	return m
}

// ObserveReplication counts one replication call.
func (m *Metrics) ObserveReplication(op, result string) {
	if m == nil {
		return
	}
	m.ReplicationCalls.WithLabelValues(op, result).Inc()
}

// ObserveMutation counts one client mutation.
func (m *Metrics) ObserveMutation(op, status string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op, status).Inc()
}

// SetLeader flips the leader gauge.
func (m *Metrics) SetLeader(leader bool) {
	if m == nil {
		return
	}
	if leader {
		m.IsLeader.Set(1)
	} else {
		m.IsLeader.Set(0)
	}
}

// SetPeersReachable records the size of the replication target set.
func (m *Metrics) SetPeersReachable(n int) {
	if m == nil {
		return
	}
	m.PeersReachable.Set(float64(n))
}

// Router serves /metrics and /healthz.
func (m *Metrics) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// Serve runs the HTTP endpoint on lis until ctx is done.
func (m *Metrics) Serve(ctx context.Context, lis net.Listener, l logging.Logger) error {
	srv := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.Info(ctx, "Metrics endpoint listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
