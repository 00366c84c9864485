package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStateTransition(t *testing.T) {
	before := testutil.ToFloat64(StateTransitions.WithLabelValues("previewing", "submitting"))
	RecordStateTransition("previewing", "submitting")
	assert.Equal(t, before+1, testutil.ToFloat64(StateTransitions.WithLabelValues("previewing", "submitting")))
}

func TestSessionLifecycleGauge(t *testing.T) {
	before := testutil.ToFloat64(ActiveSessions)
	RecordSessionCreated()
	RecordSessionCreated()
	RecordSessionDeleted()
	assert.Equal(t, before+1, testutil.ToFloat64(ActiveSessions))
}

func TestRecordBackendRequestWithoutResponse(t *testing.T) {
	before := testutil.ToFloat64(BackendRequests.WithLabelValues("faces", "/search-face", "error"))
	RecordBackendRequest("faces", "/search-face", 0, 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(BackendRequests.WithLabelValues("faces", "/search-face", "error")))
}

func TestSetVideoJobs(t *testing.T) {
	SetVideoJobs("failed", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(VideoJobs.WithLabelValues("failed")))
	SetVideoJobs("failed", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(VideoJobs.WithLabelValues("failed")))
}
