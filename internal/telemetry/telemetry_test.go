package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/trapbridge/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesBridgeMetrics(t *testing.T) {
	telemetry.ObserveCall("start", telemetry.OutcomeRejected)
	telemetry.ObserveRejection("not_configured")
	telemetry.ObserveDiscard("queueSize")
	telemetry.SetState("configured", "unconfigured", "configured", "running", "stopped")
	telemetry.ObserveQueueOverwrite()

	rec := httptest.NewRecorder()
	telemetry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `trapbridge_calls_total{method="start",outcome="rejected"}`)
	assert.Contains(t, body, `trapbridge_config_discards_total{field="queueSize"}`)
	assert.Contains(t, body, `trapbridge_facade_state{state="configured"} 1`)
	assert.Contains(t, body, `trapbridge_facade_state{state="running"} 0`)
	assert.Contains(t, body, "trapbridge_queue_overwritten_total")
}
