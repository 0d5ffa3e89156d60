// Package metricsexporter serves the most recent per-path measurements
// and collection counters over a Prometheus /metrics endpoint.
package metricsexporter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netmond/internal/netperf"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

// Config controls the exporter endpoint.
type Config struct {
	Enabled bool
	Addr    string // default ":9435"
}

// Exporter owns its own registry and HTTP server so the daemon's other
// surfaces stay untouched.
type Exporter struct {
	reg *prometheus.Registry
	srv *http.Server
	log logx.Logger

	pingAvg     *prometheus.GaugeVec
	pingJitter  *prometheus.GaugeVec
	packetLoss  *prometheus.GaugeVec
	throughput  *prometheus.GaugeVec
	tcpRetrans  *prometheus.GaugeVec
	pathStatus  *prometheus.GaugeVec
	collections *prometheus.CounterVec

	egressDown prometheus.Gauge
	egressUp   prometheus.Gauge
}

func New(cfg Config, log logx.Logger) *Exporter {
	addr := cfg.Addr
	if addr == "" {
		addr = ":9435"
	}

	pathLabels := []string{"source", "dest", "path_type"}
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		log: log,
		pingAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_ping_avg_ms",
			Help: "Most recent average round-trip latency per path.",
		}, pathLabels),
		pingJitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_ping_mdev_ms",
			Help: "Most recent round-trip jitter (mdev) per path.",
		}, pathLabels),
		packetLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_packet_loss_pct",
			Help: "Most recent packet loss percentage per path.",
		}, pathLabels),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_throughput_mbps",
			Help: "Most recent representative throughput per path.",
		}, pathLabels),
		tcpRetrans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_tcp_retransmits",
			Help: "TCP retransmits observed during the last benchmark per path.",
		}, pathLabels),
		pathStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmond_path_healthy",
			Help: "1 healthy, 0.5 degraded, 0 error.",
		}, pathLabels),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netmond_collections_total",
			Help: "Collection passes per path by resulting status.",
		}, []string{"source", "dest", "status"}),
	}

	e.egressDown = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmond_egress_download_mbps",
		Help: "Most recent WAN egress download speed.",
	})
	e.egressUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmond_egress_upload_mbps",
		Help: "Most recent WAN egress upload speed.",
	})

	e.reg.MustRegister(e.pingAvg, e.pingJitter, e.packetLoss, e.throughput,
		e.tcpRetrans, e.pathStatus, e.collections, e.egressDown, e.egressUp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{}))
	e.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return e
}

// Start serves /metrics until Stop is called.
func (e *Exporter) Start() {
	go func() {
		e.log.Info("metrics endpoint listening", logx.String("addr", e.srv.Addr))
		if err := e.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server failed", logx.Err(err))
		}
	}()
}

func (e *Exporter) Stop(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}

// ObserveRecord publishes one collected record.
func (e *Exporter) ObserveRecord(rec netperf.Record) {
	labels := prometheus.Labels{
		"source":    rec.SourceHost,
		"dest":      rec.DestHost,
		"path_type": string(rec.PathType),
	}
	e.pingAvg.With(labels).Set(rec.Ping.AvgMS)
	e.pingJitter.With(labels).Set(rec.Ping.MdevMS)
	e.packetLoss.With(labels).Set(rec.Ping.LossPct)
	if tp := rec.BestThroughput(); tp != nil {
		e.throughput.With(labels).Set(tp.RateMbps)
		e.tcpRetrans.With(labels).Set(float64(tp.TCPRetrans))
	}
	e.pathStatus.With(labels).Set(statusValue(rec.Status))
	e.collections.WithLabelValues(rec.SourceHost, rec.DestHost, string(rec.Status)).Inc()
}

// ObserveEgress publishes one WAN egress measurement.
func (e *Exporter) ObserveEgress(row storage.EgressRow) {
	e.egressDown.Set(row.DownloadMbps)
	e.egressUp.Set(row.UploadMbps)
}

func statusValue(s netperf.Status) float64 {
	switch s {
	case netperf.StatusHealthy:
		return 1
	case netperf.StatusDegraded:
		return 0.5
	default:
		return 0
	}
}
