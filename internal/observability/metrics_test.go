package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCopiesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/messages", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/messages", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/messages", "POST", "FORBIDDEN")
	m.RecordSync("provider.user.create", "done")
	m.RecordFrame("in", "text")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/messages|GET|200"])
	assert.Equal(t, int64(20), snap.AvgLatencyMillis["/api/messages|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/messages|POST|FORBIDDEN"])
	assert.Equal(t, int64(1), snap.SyncTasks["provider.user.create|done"])
	assert.Equal(t, int64(1), snap.RelayFrames["in|text"])

	m.RecordSync("provider.user.create", "done")
	assert.Equal(t, int64(1), snap.SyncTasks["provider.user.create|done"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordSync("k", "done")
	assert.Empty(t, m.Snapshot().Requests)
}
