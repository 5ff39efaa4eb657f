package stream

import (
	"bytes"
	"errors"
	"io"
	"math/bits"
	"testing"
	"time"

	"github.com/arloliu/exi/errs"
	"github.com/stretchr/testify/require"
)

func TestFixedMemory(t *testing.T) {
	t.Run("pull", func(t *testing.T) {
		m := NewFixedMemoryReader([]byte{1, 2, 3, 4, 5})
		dst := make([]byte, 3)

		n, err := m.Pull(dst)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, []byte{1, 2, 3}, dst)

		n, err = m.Pull(dst)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		n, err = m.Pull(dst)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("push truncates", func(t *testing.T) {
		m := NewFixedMemoryWriter(make([]byte, 4))

		n, err := m.Push([]byte{1, 2, 3})
		require.NoError(t, err)
		require.Equal(t, 3, n)

		n, err = m.Push([]byte{4, 5, 6})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, []byte{1, 2, 3, 4}, m.Bytes())
		require.Equal(t, 4, m.Len())
	})
}

func TestGrowableMemory_PreservesContent(t *testing.T) {
	m := NewGrowableMemory(0)
	defer m.Release()

	var want []byte
	for i := range 300 {
		chunk := bytes.Repeat([]byte{byte(i)}, i+1)
		want = append(want, chunk...)

		n, err := m.Push(chunk)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
		require.Equal(t, want, m.Bytes())
	}

	require.Equal(t, len(want), m.Len())
	require.GreaterOrEqual(t, m.Cap(), len(want))
	require.Equal(t, 1, bits.OnesCount(uint(m.Cap())), "capacity %d is a power of two", m.Cap()) //nolint:gosec // positive

	back := make([]byte, len(want))
	n, err := m.Pull(back)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.Equal(t, want, back)
}

func TestGrowableMemory_Limit(t *testing.T) {
	m := NewGrowableMemory(100)
	defer m.Release()

	_, err := m.Push(make([]byte, 60))
	require.NoError(t, err)

	_, err = m.Push(make([]byte, 41))
	require.ErrorIs(t, err, errs.ErrOutOfMemory)
	require.Equal(t, 60, m.Len(), "failed push leaves content untouched")

	_, err = m.Push(make([]byte, 40))
	require.NoError(t, err)
}

func TestGrowableMemory_Release(t *testing.T) {
	m := NewGrowableMemory(0)
	m.Release()
	m.Release()

	_, err := m.Push([]byte{1})
	require.ErrorIs(t, err, errs.ErrSessionClosed)
	_, err = m.Pull(make([]byte, 1))
	require.ErrorIs(t, err, errs.ErrSessionClosed)
	require.Nil(t, m.Bytes())
}

func TestGrowableMemory_BitBufferLimit(t *testing.T) {
	m := NewGrowableMemory(32)
	defer m.Release()

	w, err := NewWriter(m, MinBufferSize)
	require.NoError(t, err)

	var writeErr error
	for range 40 {
		if writeErr = w.WriteBits(0xFF, 8); writeErr != nil {
			break
		}
	}
	if writeErr == nil {
		writeErr = w.Finish()
	}
	require.ErrorIs(t, writeErr, errs.ErrOutOfMemory)
}

func TestCallbackTransport(t *testing.T) {
	t.Run("nil function", func(t *testing.T) {
		c := NewCallbackTransport(nil, nil)
		_, err := c.Pull(make([]byte, 4))
		require.ErrorIs(t, err, errs.ErrNoTransport)
	})

	t.Run("over-report", func(t *testing.T) {
		c := NewCallbackTransport(func(buf []byte, _ any) int { return len(buf) + 1 }, nil)
		_, err := c.Push(make([]byte, 4))
		require.ErrorIs(t, err, errs.ErrInconsistentState)
	})

	t.Run("handle is passed through", func(t *testing.T) {
		var seen any
		c := NewCallbackTransport(func(buf []byte, handle any) int {
			seen = handle
			return len(buf)
		}, "handle")

		n, err := c.Push(make([]byte, 4))
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, "handle", seen)
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return len(p) / 2, errors.New("disk full")
}

func TestReaderWriterTransports(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(NewWriterTransport(&out), MinBufferSize)
	require.NoError(t, err)
	for i := range 100 {
		require.NoError(t, w.WriteBits(uint64(i), 7)) //nolint:gosec // < 100
	}
	require.NoError(t, w.Finish())

	r, err := NewReader(NewReaderTransport(bytes.NewReader(out.Bytes())), MinBufferSize)
	require.NoError(t, err)
	for i := range 100 {
		v, err := r.ReadBits(7)
		require.NoError(t, err)
		require.Equal(t, uint64(i), v) //nolint:gosec // < 100
	}

	bad, err := NewWriter(NewWriterTransport(failingWriter{}), MinBufferSize)
	require.NoError(t, err)
	require.NoError(t, bad.WriteBits(0xFFFF, 16))
	require.ErrorIs(t, bad.Finish(), errs.ErrInconsistentState)
}

func TestReaderTransport_PartialPipe(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	go func() {
		_, _ = pw.Write([]byte{0xAB, 0xCD})
	}()

	r, err := NewReader(NewReaderTransport(pr), 0)
	require.NoError(t, err)

	type result struct {
		v   uint64
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := r.ReadBits(16)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.Equal(t, uint64(0xABCD), res.v)
	case <-time.After(5 * time.Second):
		t.Fatal("read blocked although the pipe held enough bytes")
	}
}

func TestReaderTransport_ReadError(t *testing.T) {
	pr, pw := io.Pipe()
	_ = pw.CloseWithError(errors.New("connection reset"))

	r, err := NewReader(NewReaderTransport(pr), MinBufferSize)
	require.NoError(t, err)

	_, err = r.ReadBits(8)
	require.ErrorIs(t, err, errs.ErrEndOfStream)
}
