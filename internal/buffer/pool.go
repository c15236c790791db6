package buffer

import (
	"sync"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// Pool recycles per-request sample batches to reduce GC pressure on the ingest path.
var Pool = &sync.Pool{
	New: func() interface{} {
		b := make([]sample.Sample, 0, 64)
		return &b
	},
}

// GetBatch retrieves an empty batch from the pool.
func GetBatch() *[]sample.Sample {
	b := Pool.Get().(*[]sample.Sample)
	*b = (*b)[:0]
	return b
}

// PutBatch returns a batch to the pool for reuse. Oversized batches are dropped.
func PutBatch(b *[]sample.Sample) {
	if cap(*b) > 4096 {
		return
	}
	Pool.Put(b)
}
