package sockinfo

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Exporter periodically queries a *net.TCPConn's TCP_INFO and publishes
// it as Prometheus gauges and counters, reusing the same descriptor
// Transport.GetReadFds exposes for readiness polling.
type Exporter struct {
	rtt         prometheus.Gauge
	retransmits prometheus.Counter
	cwnd        prometheus.Gauge

	registry *prometheus.Registry

	mu               sync.Mutex
	lastTotalRetrans uint32
	haveLastRetrans  bool
}

// NewExporter constructs an Exporter with its own registry, so
// embedding it in a CLI process never collides with default-registry
// metrics from other packages.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		rtt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdp_transport_rtt_seconds",
			Help: "Smoothed round-trip time of the transport's active TCP connection.",
		}),
		retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rdp_transport_retransmits_total",
			Help: "Cumulative TCP retransmits observed on the transport's connection.",
		}),
		cwnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdp_transport_send_cwnd_segments",
			Help: "Current TCP send congestion window, in segments.",
		}),
		registry: reg,
	}
	reg.MustRegister(e.rtt, e.retransmits, e.cwnd)
	return e
}

// Sample queries conn's TCP_INFO once and updates the gauges. Errors
// (e.g. platform unsupported, or conn already closed) are logged and
// otherwise ignored — diagnostics must never disrupt the transport.
//
// snap.TotalRetransmits is the kernel's cumulative counter for the
// connection's whole lifetime, so it is converted to a per-sample
// delta before being added to the Prometheus counter; adding the raw
// cumulative value on every tick would inflate the exported total by
// the full lifetime count each time.
func (e *Exporter) Sample(logger *zap.Logger, conn *net.TCPConn) {
	snap, err := Query(conn)
	if err != nil {
		if logger != nil {
			logger.Debug("tcp_info query failed", zap.Error(err))
		}
		return
	}
	e.rtt.Set(snap.RTT.Seconds())
	e.cwnd.Set(float64(snap.SendCwnd))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.haveLastRetrans {
		if delta := snap.TotalRetransmits - e.lastTotalRetrans; delta > 0 {
			e.retransmits.Add(float64(delta))
		}
	}
	e.lastTotalRetrans = snap.TotalRetransmits
	e.haveLastRetrans = true
}

// Run starts a blocking HTTP server exposing /metrics on addr, sampling
// conn every interval until ctx-like stop is closed.
func (e *Exporter) Run(addr string, conn *net.TCPConn, interval time.Duration, logger *zap.Logger, stop <-chan struct{}) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				_ = srv.Close()
				return
			case <-ticker.C:
				e.Sample(logger, conn)
			}
		}
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
