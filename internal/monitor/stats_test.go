package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.RecordBatch(3)
	s.RecordBatch(2)
	s.RecordRejected()
	s.RecordIgnored(4)
	s.RecordIgnored(0)

	assert.Equal(t, uint64(5), s.Points())
	assert.Equal(t, uint64(2), s.Batches())
	assert.Equal(t, uint64(1), s.Rejected())
	assert.Equal(t, uint64(4), s.Ignored())

	s.ResetEpoch()
	assert.Zero(t, s.Points())
	assert.Equal(t, uint64(5), s.Lifetime())

	summary := s.Summary(7)
	assert.Contains(t, summary, "Samples:   5 (0 this epoch)")
	assert.Contains(t, summary, "Evicted:   7")
}
