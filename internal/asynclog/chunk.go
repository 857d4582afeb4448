package asynclog

import "sync"

const (
	chunkInitialSize = 512
	// Buffers grown past this are left for the GC instead of pooled.
	chunkMaxPooled = 64 * 1024
)

// Chunk is one rendered piece of log output waiting to be written.
// Ownership moves from the producer to the queue to the flushing goroutine,
// which returns the chunk to the pool once it has been written.
type Chunk struct {
	buf []byte
}

// Bytes returns the chunk contents.
func (c *Chunk) Bytes() []byte { return c.buf }

// Len returns the number of bytes held.
func (c *Chunk) Len() int { return len(c.buf) }

var chunkPool = sync.Pool{
	New: func() any {
		return &Chunk{buf: make([]byte, 0, chunkInitialSize)}
	},
}

func getChunk() *Chunk {
	c := chunkPool.Get().(*Chunk)
	c.buf = c.buf[:0]
	return c
}

func putChunk(c *Chunk) {
	if cap(c.buf) > chunkMaxPooled {
		return
	}
	chunkPool.Put(c)
}
