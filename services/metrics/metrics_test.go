package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineRuns.WithLabelValues("manual", OutcomeSuccess))
	ObserveRun("manual", OutcomeSuccess, time.Now().Add(-2*time.Second))
	after := testutil.ToFloat64(PipelineRuns.WithLabelValues("manual", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesCollectors(t *testing.T) {
	AttachmentTransfers.WithLabelValues(OutcomeFailure).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "case_attachment_transfers_total")
	assert.Contains(t, string(body), "case_pipeline_runs_total")
}
