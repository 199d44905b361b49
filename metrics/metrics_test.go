package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Init(t *testing.T) {
	// Init should not panic when called multiple times
	Init()
	Init()
}

func TestMetrics_Handler(t *testing.T) {
	Init()
	Batch("insert", 3)
	Stale("users")
	Block("select")
	Observer()(context.Background(), "select 1", nil, time.Millisecond, nil, true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, metric := range []string{
		"relmap_statements_total",
		"relmap_batch_size",
		"relmap_stale_writes_total",
		"relmap_blocks_total",
		"relmap_statement_latency_seconds",
	} {
		assert.Contains(t, body, metric)
	}
	assert.Contains(t, body, `table="users"`)
}

func TestMetrics_Increment(t *testing.T) {
	before := testutil.ToFloat64(Statements.WithLabelValues("delete"))
	Batch("delete", 2)
	Block("delete")
	assert.Equal(t, before+2, testutil.ToFloat64(Statements.WithLabelValues("delete")))

	stale := testutil.ToFloat64(StaleWrites.WithLabelValues("posts"))
	Stale("posts")
	assert.Equal(t, stale+1, testutil.ToFloat64(StaleWrites.WithLabelValues("posts")))

	Observer()(context.Background(), "delete", nil, time.Millisecond, errors.New("boom"), false)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StatementLatency, "relmap_statement_latency_seconds"), 1)
}
