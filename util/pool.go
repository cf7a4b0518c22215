package util

import "sync"

// BufPool provides reusable receive buffers so that the many short
// reads a scenario performs do not each allocate MaxReadSize bytes.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, MaxReadSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
