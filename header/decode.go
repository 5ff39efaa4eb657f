package header

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/exi/errs"
	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/internal/options"
	"github.com/arloliu/exi/stream"
)

// Bit patterns of the header prefix.
const (
	distinguishingBits = 0b10
	cookieBits         = 0b00
	versionGroupBits   = 4
	versionContinue    = 15
)

// cookie is "$EXI". The first two bits of '$' double as the cookie marker, so
// only its low six bits are read after them.
var cookie = [...]struct {
	value uint64
	bits  uint8
}{
	{'$' & 0x3F, 6},
	{'E', 8},
	{'X', 8},
	{'I', 8},
}

// Header is a decoded EXI stream header.
type Header struct {
	HasCookie bool
	// HasOptions reports whether the options were embedded in the header.
	HasOptions bool
	IsPreview  bool
	Version    uint32
	// Options are the options in effect for the body.
	Options Options
	// Warnings lists recoverable conditions met while decoding, such as
	// errs.ErrOutOfBandOptionsIgnored.
	Warnings []error
}

type codecConfig struct {
	logger *slog.Logger
}

// CodecOption configures Decode and Encode.
type CodecOption = options.Option[*codecConfig]

// WithLogger sets the logger receiving header warnings. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) CodecOption {
	return options.NoError(func(c *codecConfig) {
		if logger != nil {
			c.logger = logger
		}
	})
}

func newCodecConfig(opts []CodecOption) (*codecConfig, error) {
	cfg := &codecConfig{logger: slog.Default()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode reads a stream header from bb and leaves the cursor on the first bit
// of the body, with the alignment of bb set for the body.
//
// outOfBand holds the options agreed outside the stream, or nil. Options
// embedded in the header take precedence: outOfBand is then ignored and
// errs.ErrOutOfBandOptionsIgnored is reported in Header.Warnings.
//
// Returns:
//   - errs.ErrInvalidHeader if the distinguishing bits or the cookie do not match
//   - errs.ErrHeaderOptionsMismatch if no options are embedded and outOfBand is nil
//   - errs.ErrCorruptOptions if the options document is malformed
//   - errs.ErrInvalidConfig if the options in effect are inconsistent
func Decode(bb *stream.BitBuffer, outOfBand *Options, opts ...CodecOption) (Header, error) {
	cfg, err := newCodecConfig(opts)
	if err != nil {
		return Header{}, err
	}

	bb.SetAlignment(format.BitPacked)

	var h Header
	if h.HasCookie, err = readPrefix(bb); err != nil {
		return Header{}, err
	}

	if h.HasOptions, err = bb.ReadBit(); err != nil {
		return Header{}, fmt.Errorf("read options presence: %w", err)
	}
	if !h.HasOptions && outOfBand == nil {
		return Header{}, errs.ErrHeaderOptionsMismatch
	}

	if h.IsPreview, h.Version, err = readVersion(bb); err != nil {
		return Header{}, err
	}

	if h.HasOptions {
		if h.Options, err = decodeOptions(bb); err != nil {
			return Header{}, err
		}
		if outOfBand != nil {
			h.Warnings = append(h.Warnings, errs.ErrOutOfBandOptionsIgnored)
			cfg.logger.Warn("out-of-band EXI options ignored, using options embedded in the header",
				slog.Uint64("version", uint64(h.Version)))
		}
	} else {
		h.Options = outOfBand.Clone()
	}

	align := h.Options.BodyAlignment()
	if align != format.BitPacked {
		bb.Align()
	}
	bb.SetAlignment(align)

	if err := h.Options.Validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}

// readPrefix reads the distinguishing bits and the optional cookie.
func readPrefix(bb *stream.BitBuffer) (bool, error) {
	bits, err := bb.ReadBits(2)
	if err != nil {
		return false, fmt.Errorf("read distinguishing bits: %w", err)
	}

	switch bits {
	case distinguishingBits:
		return false, nil
	case cookieBits:
	default:
		return false, fmt.Errorf("%w: distinguishing bits %02b", errs.ErrInvalidHeader, bits)
	}

	for i, c := range cookie {
		v, err := bb.ReadBits(c.bits)
		if err != nil {
			return false, fmt.Errorf("%w: truncated cookie: %w", errs.ErrInvalidHeader, err)
		}
		if v != c.value {
			return false, fmt.Errorf("%w: cookie byte %d is %#x", errs.ErrInvalidHeader, i, v)
		}
	}

	bits, err = bb.ReadBits(2)
	if err != nil {
		return false, fmt.Errorf("%w: truncated after cookie: %w", errs.ErrInvalidHeader, err)
	}
	if bits != distinguishingBits {
		return false, fmt.Errorf("%w: distinguishing bits %02b after cookie", errs.ErrInvalidHeader, bits)
	}

	return true, nil
}

func readVersion(bb *stream.BitBuffer) (bool, uint32, error) {
	preview, err := bb.ReadBit()
	if err != nil {
		return false, 0, fmt.Errorf("read preview flag: %w", err)
	}

	version := uint32(1)
	for {
		group, err := bb.ReadBits(versionGroupBits)
		if err != nil {
			return false, 0, fmt.Errorf("read version: %w", err)
		}
		version += uint32(group) //nolint:gosec // 4 bits
		if group < versionContinue {
			return preview, version, nil
		}
	}
}

// decodeOptions walks the options document at the cursor.
func decodeOptions(bb *stream.BitBuffer) (Options, error) {
	opts := Default()

	p, err := grammar.NewParser(bb, OptionsSchema(), newOptionsHandler(&opts))
	if err != nil {
		return Options{}, err
	}
	if err := p.Run(); err != nil {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}

	return opts, nil
}
