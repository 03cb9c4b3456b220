package lull

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance.
var validate = validator.New()

// Duration is a time.Duration that decodes from Go duration strings
// ("300ms", "1.5s") in both JSON and YAML. Bare JSON numbers are read as
// milliseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		*d = Duration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number of milliseconds: %w", err)
	}
	return d.parse(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms float64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or number of milliseconds: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the serializable timing configuration of a coordinator.
// A Reloader decodes it from a watched source and applies it to its targets.
//
// Example YAML:
//
//	delay: 300ms
//	min_length: 2
//	flush_on_empty: true
type Config struct {
	Delay        Duration `json:"delay" yaml:"delay" validate:"min=0"`
	Immediate    bool     `json:"immediate" yaml:"immediate"`
	MinLength    int      `json:"min_length" yaml:"min_length" validate:"min=0"`
	FlushOnEmpty bool     `json:"flush_on_empty" yaml:"flush_on_empty"`
}

// DefaultConfig returns the Config documents are decoded over, so absent
// fields keep their defaults.
func DefaultConfig() Config {
	return Config{Delay: Duration(DefaultDelay)}
}

// Validate checks the struct tags on c.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Options converts c into construction options.
func (c Config) Options() []Option {
	opts := []Option{
		WithDelay(time.Duration(c.Delay)),
		WithMinLength(c.MinLength),
	}
	if c.Immediate {
		opts = append(opts, WithImmediate())
	}
	if c.FlushOnEmpty {
		opts = append(opts, WithFlushOnEmpty())
	}
	return opts
}

// ParseConfig decodes data over DefaultConfig with codec and validates the result.
// A nil codec selects AutoCodec.
func ParseConfig(data []byte, codec Codec) (Config, error) {
	if codec == nil {
		codec = AutoCodec{}
	}
	cfg := DefaultConfig()
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Configurable is implemented by every coordinator that accepts runtime
// configuration.
type Configurable interface {
	Configure(cfg Config)
}

// configure overwrites the timing settings from cfg.
func (s *settings) configure(cfg Config) {
	WithDelay(time.Duration(cfg.Delay))(s)
	WithMinLength(cfg.MinLength)(s)
	s.immediate = cfg.Immediate
	s.flushOnEmpty = cfg.FlushOnEmpty
}
