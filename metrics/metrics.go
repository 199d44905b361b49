// Package metrics exposes the prometheus collectors fed by persisters and
// observed drivers.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syssam/relmap/dialect/sql"
)

var (
	// Statements counts the statements sent by persisters, by operation.
	Statements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relmap_statements_total",
			Help: "Total number of statements executed by persisters",
		},
		[]string{"op"},
	)

	// BatchSize tracks the number of rows of every flushed batch.
	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relmap_batch_size",
			Help:    "Number of rows per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"op"},
	)

	// StaleWrites counts the writes rejected by the row count check.
	StaleWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relmap_stale_writes_total",
			Help: "Total number of stale writes detected",
		},
		[]string{"table"},
	)

	// Blocks counts the blocks of chunked bulk operations.
	Blocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relmap_blocks_total",
			Help: "Total number of blocks of chunked bulk operations",
		},
		[]string{"op"},
	)

	// StatementLatency tracks the latency of observed statements.
	StatementLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relmap_statement_latency_seconds",
			Help:    "Statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "error"},
	)

	once sync.Once
)

// Init registers all metrics with Prometheus.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(Statements)
		prometheus.MustRegister(BatchSize)
		prometheus.MustRegister(StaleWrites)
		prometheus.MustRegister(Blocks)
		prometheus.MustRegister(StatementLatency)
	})
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observer returns a sql.Observer feeding StatementLatency. Install it with
// sql.Observe.
func Observer() sql.Observer {
	return func(_ context.Context, _ string, _ []any, took time.Duration, err error, isQuery bool) {
		kind := "exec"
		if isQuery {
			kind = "query"
		}
		failed := "false"
		if err != nil {
			failed = "true"
		}
		StatementLatency.WithLabelValues(kind, failed).Observe(took.Seconds())
	}
}

// Batch records one flushed batch of rows.
func Batch(op string, rows int) {
	Statements.WithLabelValues(op).Inc()
	BatchSize.WithLabelValues(op).Observe(float64(rows))
}

// Stale records a stale write on table.
func Stale(table string) {
	StaleWrites.WithLabelValues(table).Inc()
}

// Block records one executed block of a chunked operation.
func Block(op string) {
	Statements.WithLabelValues(op).Inc()
	Blocks.WithLabelValues(op).Inc()
}
