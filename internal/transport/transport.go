// Package transport hands packed result tables to a request/response
// channel and unpacks the tables that come back.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zakazai/hwdb-rtab/internal/codec"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// DefaultBufferSize bounds packed tables when an Adapter has no size set
const DefaultBufferSize = 64 * 1024

// ErrChannel is returned when the underlying channel reports a failure
var ErrChannel = errors.New("transport: channel failure")

// Sender delivers one packed table
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Caller performs one blocking request/response exchange. The response is
// written into response and its length returned.
type Caller interface {
	Call(ctx context.Context, request []byte, response []byte) (int, error)
}

// Adapter packs tables for a channel and unpacks replies. The zero value is
// usable.
type Adapter struct {
	// BufferSize bounds both the scratch buffer for outgoing tables and the
	// response buffer for queries
	BufferSize int
	Logger     *types.Logger
}

// NewAdapter creates an adapter with the given buffer bound
func NewAdapter(bufferSize int, logger *types.Logger) *Adapter {
	return &Adapter{BufferSize: bufferSize, Logger: logger}
}

func (a *Adapter) bufferSize() int {
	if a.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return a.BufferSize
}

func (a *Adapter) logger() *types.Logger {
	return a.Logger.OrGlobal()
}

func observe(operation, outcome string, start time.Time) {
	ExchangesTotal.WithLabelValues(operation, outcome).Inc()
	ExchangeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Send packs t into a bounded scratch buffer and forwards it through ch. The
// caller keeps ownership of t.
func (a *Adapter) Send(ctx context.Context, t *rtab.Table, ch Sender) error {
	start := time.Now()
	id := uuid.NewString()

	buf := make([]byte, a.bufferSize())
	n, err := codec.Encode(t, buf)
	if err != nil {
		observe("send", outcomeEncodeError, start)
		a.logger().Warning("[%s] failed to pack table: %v", id, err)
		return fmt.Errorf("request %s: %w", id, err)
	}

	if err := ch.Send(ctx, buf[:n]); err != nil {
		observe("send", outcomeChannelError, start)
		a.logger().Error("[%s] failed to send %d bytes: %v", id, n, err)
		return fmt.Errorf("%w: request %s: %w", ErrChannel, id, err)
	}

	observe("send", outcomeOK, start)
	BytesTotal.WithLabelValues("out").Add(float64(n))
	a.logger().Debug("[%s] sent table with status %s (%d bytes)", id, t.Status, n)
	return nil
}

// Query sends req through c and decodes the reply. The returned table may
// carry a non-success status; a reply that cannot be decoded is an error.
func (a *Adapter) Query(ctx context.Context, c Caller, req Request) (*rtab.Table, error) {
	start := time.Now()
	id := uuid.NewString()

	resp := make([]byte, a.bufferSize())
	a.logger().Debug("[%s] query %q", id, req.String())
	n, err := c.Call(ctx, req.Bytes(), resp)
	if err != nil {
		observe("query", outcomeChannelError, start)
		a.logger().Error("[%s] call failed: %v", id, err)
		return nil, fmt.Errorf("%w: request %s: %w", ErrChannel, id, err)
	}
	if n < 0 || n > len(resp) {
		observe("query", outcomeChannelError, start)
		return nil, fmt.Errorf("%w: request %s: channel reported %d bytes for a %d byte buffer",
			ErrChannel, id, n, len(resp))
	}

	t, err := codec.Decode(resp[:n])
	if err != nil {
		observe("query", outcomeDecodeError, start)
		a.logger().Warning("[%s] failed to unpack %d byte reply: %v", id, n, err)
		return nil, fmt.Errorf("request %s: %w", id, err)
	}

	observe("query", outcomeOK, start)
	BytesTotal.WithLabelValues("in").Add(float64(n))
	if !t.IsSuccess() {
		a.logger().Info("[%s] query returned status %s: %s", id, t.Status, t.Message)
	} else {
		a.logger().Debug("[%s] query returned %d rows", id, t.NumRows())
	}
	return t, nil
}

// Respond reads one request from conn, answers it with h and sends the
// resulting table back
func (a *Adapter) Respond(ctx context.Context, conn *Conn, h Handler) error {
	req := make([]byte, a.bufferSize())
	n, err := conn.Receive(ctx, req)
	if err != nil {
		return err
	}
	t := h(ctx, req[:n])
	if t == nil {
		t = rtab.NewStatus(types.StatusError, "no result produced")
	}
	defer t.Release()
	return a.Send(ctx, t, conn)
}
