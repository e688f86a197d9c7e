package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// frameHeaderSize is the length prefix in front of every frame
const frameHeaderSize = 4

// ErrFrameTooLarge is returned when an incoming frame does not fit the buffer
// offered for it. The frame is consumed so the stream stays aligned.
var ErrFrameTooLarge = errors.New("transport: frame exceeds buffer")

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Conn frames payloads with a 4-byte big-endian length over an established
// stream. One exchange runs at a time. The context bounds an exchange only
// when the stream has SetDeadline (net.Conn does); on other streams a
// blocked read or write is not interrupted by cancellation.
type Conn struct {
	rw io.ReadWriter
	mu sync.Mutex
}

// NewConn wraps an already connected stream
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// watch applies the context deadline to the stream and expires the stream
// when the context is canceled. The returned func undoes both.
func (c *Conn) watch(ctx context.Context) (func(), error) {
	d, ok := c.rw.(deadliner)
	if !ok || ctx.Done() == nil {
		return func() {}, nil
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := d.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("transport: set deadline: %w", err)
		}
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		d.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		if !stop() {
			<-fired
		}
		d.SetDeadline(time.Time{})
	}, nil
}

// exchange runs fn under the lock with the context applied to the stream
func (c *Conn) exchange(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	done, err := c.watch(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := fn(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

func (c *Conn) writeFrame(payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("transport: frame of %d bytes", len(payload))
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)
	_, err := c.rw.Write(frame)
	return err
}

func (c *Conn) readFrame(buf []byte) (int, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return 0, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if uint64(size) > uint64(len(buf)) {
		if _, err := io.CopyN(io.Discard, c.rw, int64(size)); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %d bytes for a %d byte buffer", ErrFrameTooLarge, size, len(buf))
	}
	if _, err := io.ReadFull(c.rw, buf[:size]); err != nil {
		return 0, err
	}
	return int(size), nil
}

// Send writes payload as one frame
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	return c.exchange(ctx, func() error {
		return c.writeFrame(payload)
	})
}

// Receive reads one frame into buf
func (c *Conn) Receive(ctx context.Context, buf []byte) (int, error) {
	var n int
	err := c.exchange(ctx, func() error {
		var err error
		n, err = c.readFrame(buf)
		return err
	})
	return n, err
}

// Call writes request as one frame and reads the reply frame into response
func (c *Conn) Call(ctx context.Context, request []byte, response []byte) (int, error) {
	var n int
	err := c.exchange(ctx, func() error {
		if err := c.writeFrame(request); err != nil {
			return err
		}
		var err error
		n, err = c.readFrame(response)
		return err
	})
	return n, err
}
