package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures the outcome counters of a fleetconf run.
//
// Commands run once and exit, so the Prometheus implementation is meant to be
// flushed into a node_exporter textfile at the end of the run.
type Collector interface {
	ObserveOverrides(target string, applied, changed, missing int)
	IncPeerList(role string, ok bool)
	IncKeyExport(ok bool)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveOverrides(string, int, int, int) {}
func (noopCollector) IncPeerList(string, bool)               {}
func (noopCollector) IncKeyExport(bool)                      {}

// PrometheusCollector exposes run counters via Prometheus.
type PrometheusCollector struct {
	gatherer   prometheus.Gatherer
	overrides  *prometheus.CounterVec
	peerLists  *prometheus.CounterVec
	keyExports *prometheus.CounterVec
}

// NewPrometheusCollector registers the counters with a fresh registry, or with
// reg when it is not nil. Counters that are already registered are reused.
func NewPrometheusCollector(reg *prometheus.Registry) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	overrides, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleetconf_overrides_total",
		Help: "Number of override keys processed per target file and result.",
	}, "target", "result")
	if err != nil {
		return nil, err
	}
	peerLists, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleetconf_peer_lists_total",
		Help: "Number of persistent peer lists written per node role and result.",
	}, "role", "result")
	if err != nil {
		return nil, err
	}
	keyExports, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleetconf_key_exports_total",
		Help: "Number of orchestrator key exports per result.",
	}, "result")
	if err != nil {
		return nil, err
	}
	return &PrometheusCollector{
		gatherer:   reg,
		overrides:  overrides,
		peerLists:  peerLists,
		keyExports: keyExports,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register %s: %w", opts.Name, err)
	}
	return counter, nil
}

// ObserveOverrides records how many keys of a target file were applied,
// changed and missing.
func (p *PrometheusCollector) ObserveOverrides(target string, applied, changed, missing int) {
	if p == nil || p.overrides == nil {
		return
	}
	p.overrides.WithLabelValues(target, "applied").Add(float64(applied))
	p.overrides.WithLabelValues(target, "changed").Add(float64(changed))
	p.overrides.WithLabelValues(target, "missing").Add(float64(missing))
}

// IncPeerList counts one peer list write attempt.
func (p *PrometheusCollector) IncPeerList(role string, ok bool) {
	if p == nil || p.peerLists == nil {
		return
	}
	p.peerLists.WithLabelValues(role, result(ok)).Inc()
}

// IncKeyExport counts one key export attempt.
func (p *PrometheusCollector) IncKeyExport(ok bool) {
	if p == nil || p.keyExports == nil {
		return
	}
	p.keyExports.WithLabelValues(result(ok)).Inc()
}

// WriteTextfile writes all gathered metrics in the text exposition format,
// for pickup by the node_exporter textfile collector.
func (p *PrometheusCollector) WriteTextfile(path string) error {
	if p == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
