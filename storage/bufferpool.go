package storage

import (
	"bytes"
	"sync"
)

// bufPool reuses the buffers that encoded records are uploaded from.
var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns buf to the pool. Oversized buffers are dropped so one
// huge record does not pin its memory forever.
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1<<20 {
		return
	}
	bufPool.Put(buf)
}
