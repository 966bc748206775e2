package codec

import (
	"sync"

	"github.com/wippyai/amf/codec/internal/wire"
)

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 1 << 20
	poolInitCap = 256
)

// scratch writers for per-value encoding inside a packet
var writerPool = sync.Pool{
	New: func() any {
		return wire.NewWriter(poolInitCap)
	},
}

func getWriter() *wire.Writer {
	w := writerPool.Get().(*wire.Writer)
	w.Reset()
	return w
}

func putWriter(w *wire.Writer) {
	if w == nil || w.Cap() > poolMaxCap {
		return // reject oversized
	}
	writerPool.Put(w)
}
