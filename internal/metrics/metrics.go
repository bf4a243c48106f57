// Package metrics holds the pipeline's in-memory observability
// counters and, optionally, mirrors them onto Prometheus instruments
// for HTTP export (§4.9 of SPEC_FULL.md). The counters themselves are
// the source of truth; the Prometheus mirror is additive and never
// required for correctness.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/salesetl/pipeline/internal/model"
	"github.com/salesetl/pipeline/internal/pipelinelog"
)

// Counters is the fixed set of observability counters for one
// pipeline run, ported 1:1 from original_source/src/metrics_service.py.
type Counters struct {
	mu sync.Mutex

	RowsRead       int
	RowsCleaned    int
	RowsRejected   int
	RowsDuplicate  int
	ChunksWritten  int
	FilesAggregated int
	RejectReasons  map[model.RejectReason]int

	registry *prometheus.Registry
	promVecs *promVecs
}

type promVecs struct {
	rowsRead        prometheus.Counter
	rowsCleaned     prometheus.Counter
	rowsRejected    prometheus.Counter
	rowsDuplicate   prometheus.Counter
	chunksWritten   prometheus.Counter
	filesAggregated prometheus.Counter
	rejectReasons   *prometheus.CounterVec
}

// New constructs an empty Counters set. Pass registerPrometheus=true
// to additionally mirror every increment onto a private
// prometheus.Registry, retrievable via Registry() for HTTP export.
func New(registerPrometheus bool) *Counters {
	c := &Counters{RejectReasons: make(map[model.RejectReason]int)}
	if registerPrometheus {
		c.registry = prometheus.NewRegistry()
		c.promVecs = &promVecs{
			rowsRead:        prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_rows_read_total"}),
			rowsCleaned:     prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_rows_cleaned_total"}),
			rowsRejected:    prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_rows_rejected_total"}),
			rowsDuplicate:   prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_rows_duplicate_total"}),
			chunksWritten:   prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_chunks_written_total"}),
			filesAggregated: prometheus.NewCounter(prometheus.CounterOpts{Name: "salesetl_files_aggregated_total"}),
			rejectReasons:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "salesetl_reject_reasons_total"}, []string{"reason"}),
		}
		c.registry.MustRegister(
			c.promVecs.rowsRead, c.promVecs.rowsCleaned, c.promVecs.rowsRejected,
			c.promVecs.rowsDuplicate, c.promVecs.chunksWritten, c.promVecs.filesAggregated,
			c.promVecs.rejectReasons,
		)
	}
	return c
}

// Registry exposes the private Prometheus registry, or nil if the
// Prometheus mirror was not enabled.
func (c *Counters) Registry() *prometheus.Registry { return c.registry }

// Serve starts an HTTP server exposing the Prometheus registry at
// addr:"/metrics", blocking until the listener fails. Only called by
// the CLI when a -metrics-addr flag or a METRICS listen_addr is given
// (§4.9: off by default).
func (c *Counters) Serve(addr string) error {
	if c.registry == nil {
		pipelinelog.Warnf("metrics: Serve called without a Prometheus registry, ignoring")
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}

func (c *Counters) AddRowsRead(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RowsRead += n
	if c.promVecs != nil {
		c.promVecs.rowsRead.Add(float64(n))
	}
}

func (c *Counters) IncRowCleaned() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RowsCleaned++
	if c.promVecs != nil {
		c.promVecs.rowsCleaned.Inc()
	}
}

func (c *Counters) IncRowRejected(reason model.RejectReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RowsRejected++
	c.RejectReasons[reason]++
	if c.promVecs != nil {
		c.promVecs.rowsRejected.Inc()
		c.promVecs.rejectReasons.WithLabelValues(string(reason)).Inc()
	}
}

func (c *Counters) IncRowDuplicate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RowsDuplicate++
	if c.promVecs != nil {
		c.promVecs.rowsDuplicate.Inc()
	}
}

func (c *Counters) IncChunkWritten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ChunksWritten++
	if c.promVecs != nil {
		c.promVecs.chunksWritten.Inc()
	}
}

func (c *Counters) IncFileAggregated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FilesAggregated++
	if c.promVecs != nil {
		c.promVecs.filesAggregated.Inc()
	}
}

// Summary is a point-in-time snapshot suitable for end-of-run logging.
type Summary struct {
	RowsRead        int
	RowsCleaned     int
	RowsRejected    int
	RowsDuplicate   int
	ChunksWritten   int
	FilesAggregated int
	RejectReasons   map[model.RejectReason]int
}

func (c *Counters) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	reasons := make(map[model.RejectReason]int, len(c.RejectReasons))
	for k, v := range c.RejectReasons {
		reasons[k] = v
	}
	return Summary{
		RowsRead:        c.RowsRead,
		RowsCleaned:     c.RowsCleaned,
		RowsRejected:    c.RowsRejected,
		RowsDuplicate:   c.RowsDuplicate,
		ChunksWritten:   c.ChunksWritten,
		FilesAggregated: c.FilesAggregated,
		RejectReasons:   reasons,
	}
}
