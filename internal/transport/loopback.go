package transport

import (
	"context"

	"github.com/zakazai/hwdb-rtab/internal/codec"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// Handler answers one request with a table. The returned table is handed
// over and released once packed.
type Handler func(ctx context.Context, request []byte) *rtab.Table

// Loopback is an in-process Caller that answers through a Handler
type Loopback struct {
	Handler Handler
}

func (l *Loopback) Call(ctx context.Context, request []byte, response []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t := l.Handler(ctx, request)
	if t == nil {
		t = rtab.NewStatus(types.StatusError, "no result produced")
	}
	defer t.Release()
	return codec.Encode(t, response)
}

// StaticHandler answers every request with a copy of t
func StaticHandler(t *rtab.Table) Handler {
	return func(ctx context.Context, request []byte) *rtab.Table {
		return t.Clone()
	}
}
