package cramberry

import "sync"

// writerPool pools *Writer instances to avoid a fresh op-vector allocation
// on every encode. Oversized op vectors are dropped rather than pooled,
// matching the size cutoff the teacher's raw-buffer pool used.
var writerPool = sync.Pool{
	New: func() any {
		return newWriter(defaultOpCapacity)
	},
}

// maxPooledOps bounds how large an op vector can be before PutWriter
// discards it instead of returning it to the pool. A writer that built a
// message this large is unlikely to be representative of typical traffic,
// and holding onto its backing array would bloat the pool.
const maxPooledOps = 4096

// GetWriter gets a Writer from the pool, ready to use. The Writer must be
// returned with PutWriter when the caller is done with it.
func GetWriter() *Writer {
	w := writerPool.Get().(*Writer)
	w.resetAll()
	return w
}

// PutWriter returns a Writer to the pool. The Writer must not be used
// afterward. Writers holding an oversized op vector are discarded instead
// of pooled.
func PutWriter(w *Writer) {
	if w == nil {
		return
	}
	if cap(w.ops) > maxPooledOps {
		return
	}
	w.resetAll()
	writerPool.Put(w)
}
