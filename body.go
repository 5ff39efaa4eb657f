package exi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arloliu/exi/compress"
	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/internal/pool"
	"github.com/arloliu/exi/stream"
)

// A compressed body is a sequence of blocks. Each block holds at most
// BlockSize bytes of the plain body, compressed on its own and framed by its
// compressed length as an EXI unsigned integer.

// deflate compresses plain block by block and writes the frames at the cursor.
func (e *Encoder) deflate(plain []byte) error {
	codec := e.cfg.blockCodec
	size := int(e.hdr.Options.BlockSize)
	blocks := 0
	for start := 0; start < len(plain); start += size {
		block, err := codec.Compress(plain[start:min(start+size, len(plain))])
		if err != nil {
			return fmt.Errorf("compress body block %d: %w", blocks, err)
		}
		if err := e.bb.WriteUnsignedInteger(uint64(len(block))); err != nil {
			return err
		}
		if err := e.bb.WriteBytes(block); err != nil {
			return err
		}
		blocks++
	}

	e.cfg.logger.Debug("EXI body compressed",
		slog.String("codec", e.cfg.codec.String()),
		slog.Int("plain_bytes", len(plain)),
		slog.Int("blocks", blocks))

	return e.bb.Finish()
}

// inflate replaces the rest of the stream with the decompressed body and
// rebinds the buffer to it.
func (d *Decoder) inflate(blockSize uint32) error {
	codec := d.cfg.blockCodec
	rest, err := d.bb.Drain()
	if err != nil {
		return err
	}

	body := pool.GetBody()
	defer pool.PutBody(body)

	frames := stream.NewBytesReader(rest)
	blocks := 0
	for consumed := 0; consumed < len(rest); consumed = int(frames.Position() / 8) {
		n, err := frames.ReadUnsignedInteger()
		if err != nil {
			return fmt.Errorf("read body block %d length: %w", blocks, err)
		}
		if left := uint64(len(rest)) - uint64(frames.Position()/8); n > left { //nolint:gosec // positions are non-negative
			return fmt.Errorf("%w: body block %d of %d bytes, %d left", errs.ErrEndOfStream, blocks, n, left)
		}

		block := make([]byte, n)
		if err := frames.ReadBytes(block); err != nil {
			return err
		}

		// The block may restore to no more than blockSize bytes nor past the
		// body limit, whichever is lower.
		limit, overBody := d.cfg.bodyLimit-body.Len(), true
		if uint64(blockSize) <= uint64(limit) { //nolint:gosec // limit is non-negative
			limit, overBody = int(blockSize), false
		}

		plain, err := codec.DecompressBounded(block, limit)
		switch {
		case errors.Is(err, compress.ErrBlockTooLarge) && overBody:
			return fmt.Errorf("%w: body exceeds %d bytes: %w", errs.ErrOutOfMemory, d.cfg.bodyLimit, err)
		case errors.Is(err, compress.ErrBlockTooLarge):
			return fmt.Errorf("%w: body block %d inflates past block size %d: %w",
				errs.ErrInvalidValue, blocks, blockSize, err)
		case err != nil:
			return fmt.Errorf("%w: body block %d: %w", errs.ErrInvalidValue, blocks, err)
		}
		_, _ = body.Write(plain)
		blocks++
	}

	out := make([]byte, body.Len())
	copy(out, body.Bytes())

	d.bb.Rebind(stream.NewFixedMemoryReader(out))
	d.bb.SetAlignment(format.ByteAligned)

	d.cfg.logger.Debug("EXI body inflated",
		slog.String("codec", d.cfg.codec.String()),
		slog.Int("compressed_bytes", len(rest)),
		slog.Int("plain_bytes", len(out)),
		slog.Int("blocks", blocks))

	return nil
}
