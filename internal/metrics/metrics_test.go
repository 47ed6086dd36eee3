package metrics

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort/internal/domain"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "not_found", Outcome(domain.NotFoundError{Kind: "award", ID: "x"}))
	assert.Equal(t, "aborted", Outcome(fmt.Errorf("%w: commit", domain.ErrTransactionAborted)))
	assert.Equal(t, "conflict", Outcome(&domain.AlreadyDeletedError{ID: "w1"}))
	assert.Equal(t, "error", Outcome(fmt.Errorf("boom")))
}

func TestObserveAndServe(t *testing.T) {
	m := New()
	m.Observe("collect", time.Now(), nil)
	m.Observe("collect", time.Now(), domain.ErrAlreadyConsumed)
	m.Observe("collect", time.Now(), domain.ErrAlreadyConsumed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `ecosort_ledger_operations_total{operation="collect",outcome="ok"} 1`))
	assert.True(t, strings.Contains(body, `ecosort_ledger_operations_total{operation="collect",outcome="already_consumed"} 2`))
	assert.True(t, strings.Contains(body, "ecosort_ledger_tx_duration_seconds_count"))

	var nilMetrics *Metrics
	nilMetrics.Observe("collect", time.Now(), nil)
}
