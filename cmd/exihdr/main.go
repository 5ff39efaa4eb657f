// Command exihdr inspects and writes EXI stream headers.
//
// Usage:
//
//	exihdr inspect [-options oob.yaml] [-codec deflate] [-body] FILE
//	exihdr encode [-options opts.yaml] [-cookie] [-preview] [-version 1] [-out-of-band] [-o FILE]
//
// inspect prints the decoded header as YAML. Options files use the same YAML
// layout as the options section of that report.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/arloliu/exi"
	"github.com/arloliu/exi/grammar"
	"github.com/arloliu/exi/header"
	"github.com/arloliu/exi/stream"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

var errUsage = errors.New("usage: exihdr inspect|encode [flags]")

func main() {
	if err := mainImpl(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "exihdr: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "inspect":
		return runInspect(args[1:], stdin, stdout)
	case "encode":
		return runEncode(args[1:], stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})), nil
}

// sessionFlags are shared by every command.
type sessionFlags struct {
	options  string
	codec    string
	logLevel string
}

func (s *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.options, "options", "", "YAML options file")
	fs.StringVar(&s.codec, "codec", "deflate", "Block codec of compressed bodies (deflate, zstd, s2, lz4, none)")
	fs.StringVar(&s.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// loadOptions reads the options file, or returns nil when none was given.
func (s *sessionFlags) loadOptions() (*header.Options, error) {
	if s.options == "" {
		return nil, nil //nolint:nilnil // no options file
	}

	data, err := os.ReadFile(s.options)
	if err != nil {
		return nil, err
	}
	o, err := parseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.options, err)
	}

	return &o, nil
}

func (s *sessionFlags) sessionOptions() ([]exi.Option, error) {
	logger, err := newLogger(s.logLevel)
	if err != nil {
		return nil, err
	}
	codec, err := parseCodec(s.codec)
	if err != nil {
		return nil, err
	}

	return []exi.Option{exi.WithLogger(logger), exi.WithCodec(codec)}, nil
}

// eventCounter counts the body events by kind.
type eventCounter struct {
	grammar.BaseHandler `yaml:"-"`

	Elements   int `yaml:"elements"`
	Attributes int `yaml:"attributes"`
	Values     int `yaml:"values"`
}

func (c *eventCounter) StartElement(grammar.QName) error {
	c.Elements++
	return nil
}

func (c *eventCounter) Attribute(grammar.QName) error {
	c.Attributes++
	return nil
}

func (c *eventCounter) StringData(string) error {
	c.Values++
	return nil
}

func (c *eventCounter) UintData(uint64) error {
	c.Values++
	return nil
}

func (c *eventCounter) BoolData(bool) error {
	c.Values++
	return nil
}

func runInspect(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var sf sessionFlags
	sf.register(fs)
	walkBody := fs.Bool("body", false, "Walk the body schema-less and count its events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: inspect takes one file, - for stdin", errUsage)
	}

	in := stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	opts, err := sf.sessionOptions()
	if err != nil {
		return err
	}
	outOfBand, err := sf.loadOptions()
	if err != nil {
		return err
	}
	if outOfBand != nil {
		opts = append(opts, exi.WithOutOfBandOptions(*outOfBand))
	}

	dec, err := exi.NewDecoder(stream.NewReaderTransport(in), opts...)
	if err != nil {
		return err
	}
	hdr, err := dec.ReadHeader()
	if err != nil {
		return err
	}

	report := struct {
		Header headerReport  `yaml:"header"`
		Body   *eventCounter `yaml:"body,omitempty"`
	}{Header: newHeaderReport(&hdr)}

	if *walkBody {
		report.Body = &eventCounter{}
		p, err := dec.Body(report.Body)
		if err != nil {
			return err
		}
		if err := p.Run(); err != nil {
			return fmt.Errorf("walk body: %w", err)
		}
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&report); err != nil {
		return err
	}

	return enc.Close()
}

func runEncode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	var sf sessionFlags
	sf.register(fs)
	cookie := fs.Bool("cookie", false, "Start the stream with the $EXI cookie")
	preview := fs.Bool("preview", false, "Mark the version as a preview")
	version := fs.Uint("version", 1, "Format version")
	outOfBand := fs.Bool("out-of-band", false, "Leave the options out of the header")
	output := fs.String("o", "-", "Output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: unexpected arguments %s", errUsage, strings.Join(fs.Args(), " "))
	}
	if *version == 0 || *version > 1<<16 {
		return fmt.Errorf("version %d out of range", *version)
	}

	o := header.Default()
	loaded, err := sf.loadOptions()
	if err != nil {
		return err
	}
	if loaded != nil {
		o = *loaded
	}

	out := stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	opts, err := sf.sessionOptions()
	if err != nil {
		return err
	}
	enc, err := exi.NewEncoder(stream.NewWriterTransport(out), opts...)
	if err != nil {
		return err
	}

	h := header.Header{
		HasCookie:  *cookie,
		HasOptions: !*outOfBand,
		IsPreview:  *preview,
		Version:    uint32(*version), //nolint:gosec // range checked above
		Options:    o,
	}
	if err := enc.WriteHeader(h); err != nil {
		return err
	}

	return enc.Close()
}
