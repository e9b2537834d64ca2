package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Sink receives log entries.
type Sink interface {
	AddEntry(e Entry) error
	Close() error
}

// Factory builds a sink from options.
type Factory func(opts Options) (Sink, error)

const (
	FormatFormattedText = "formattedtext"
	FormatZap           = "zap"
)

// Options select and configure a sink.
type Options struct {
	Format          string `yaml:"format"`
	TextFile        string `yaml:"text_file"`
	TextFilePath    string `yaml:"text_file_path"`
	TextEntryFormat string `yaml:"text_entry_format"`
	ZapLevel        string `yaml:"zap_level"`
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatFormattedText
	}
	o.Format = strings.ToLower(o.Format)
	return o
}

// Signature identifies the option set. Equal options give equal signatures.
func (o Options) Signature() string {
	o = o.withDefaults()
	b, err := yaml.Marshal(o)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", o))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

var (
	formatsMu sync.RWMutex
	formats   = map[string]Factory{
		FormatFormattedText: newFormattedText,
		FormatZap:           newZapSink,
	}
)

// Register adds or replaces a format.
func Register(format string, f Factory) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[strings.ToLower(format)] = f
}

// New builds a sink for opts.Format, formattedtext when empty.
func New(opts Options) (Sink, error) {
	opts = opts.withDefaults()

	formatsMu.RLock()
	f, ok := formats[opts.Format]
	formatsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	s, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("logging: cannot create %s sink: %w", opts.Format, err)
	}
	return s, nil
}
