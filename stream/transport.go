package stream

import (
	"fmt"
	"io"

	"github.com/arloliu/exi/errs"
)

// Transport moves bytes between a BitBuffer window and the outside world.
//
// Pull fills dst with up to len(dst) bytes and returns how many were copied;
// 0 with a nil error means the input is exhausted. Push hands src to the sink
// and returns how many bytes were accepted. Both calls are synchronous and may
// be issued several times per logical operation.
type Transport interface {
	Pull(dst []byte) (int, error)
	Push(src []byte) (int, error)
}

// IOFunc is the external read or write function of a CallbackTransport.
// It transfers up to len(buf) bytes and returns the number actually
// transferred; 0 signals end of input (read) or a full sink (write).
type IOFunc func(buf []byte, handle any) int

// CallbackTransport delegates to an external function and an opaque handle.
// The handle is borrowed: the caller keeps it alive and open while any
// BitBuffer uses the transport.
type CallbackTransport struct {
	fn     IOFunc
	handle any
}

var _ Transport = (*CallbackTransport)(nil)

// NewCallbackTransport creates a transport calling fn with handle.
func NewCallbackTransport(fn IOFunc, handle any) *CallbackTransport {
	return &CallbackTransport{fn: fn, handle: handle}
}

// NewReaderTransport adapts r into a pull transport. Each pull returns after
// one successful read, so a pipe or socket is never waited on for more than
// it has. Read errors other than io.EOF end the input just like io.EOF does.
func NewReaderTransport(r io.Reader) *CallbackTransport {
	return NewCallbackTransport(readFromReader, r)
}

// NewWriterTransport adapts w into a push transport. A write error makes the
// transport report fewer accepted bytes than requested.
func NewWriterTransport(w io.Writer) *CallbackTransport {
	return NewCallbackTransport(writeToWriter, w)
}

// Pull implements Transport.
func (c *CallbackTransport) Pull(dst []byte) (int, error) {
	return c.call(dst)
}

// Push implements Transport.
func (c *CallbackTransport) Push(src []byte) (int, error) {
	return c.call(src)
}

func (c *CallbackTransport) call(buf []byte) (int, error) {
	if c.fn == nil {
		return 0, errs.ErrNoTransport
	}

	n := c.fn(buf, c.handle)
	if n < 0 || n > len(buf) {
		return 0, fmt.Errorf("%w: callback transferred %d of %d bytes", errs.ErrInconsistentState, n, len(buf))
	}

	return n, nil
}

func readFromReader(buf []byte, handle any) int {
	r, ok := handle.(io.Reader)
	if !ok {
		return 0
	}
	for len(buf) > 0 {
		n, err := r.Read(buf)
		if n > 0 {
			return n
		}
		if err != nil {
			return 0
		}
	}

	return 0
}

func writeToWriter(buf []byte, handle any) int {
	w, ok := handle.(io.Writer)
	if !ok {
		return 0
	}
	n, _ := w.Write(buf)

	return n
}
