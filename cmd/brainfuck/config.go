package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/containerd/log"

	"github.com/MarcinKonowalczyk/tapebf/bf"
)

// config mirrors the TOML file given with --config. Flags override it.
type config struct {
	Interpreter interpreterConfig `toml:"interpreter"`
	Log         logConfig         `toml:"log"`
}

type interpreterConfig struct {
	Dispatch     bf.Dispatch  `toml:"dispatch"`
	EOF          bf.EOFPolicy `toml:"eof"`
	StepLimit    uint64       `toml:"step_limit"`
	TapeCapacity int          `toml:"tape_capacity"`
}

type logConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func defaultConfig() config {
	return config{
		Interpreter: interpreterConfig{
			Dispatch:     bf.Direct,
			EOF:          bf.EOFUnchanged,
			TapeCapacity: bf.DefaultTapeCapacity,
		},
		Log: logConfig{
			Level:  "warn",
			Format: string(log.TextFormat),
		},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	md, err := toml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Interpreter.TapeCapacity <= 0 {
		return cfg, fmt.Errorf("config %s: tape_capacity must be positive", path)
	}
	return cfg, nil
}

// override applies the interpreter flags that were given on the command line.
func (c *interpreterConfig) override(dispatch, eof string, stepLimit uint64) error {
	if dispatch != "" {
		if err := c.Dispatch.UnmarshalText([]byte(dispatch)); err != nil {
			return err
		}
	}
	if eof != "" {
		if err := c.EOF.UnmarshalText([]byte(eof)); err != nil {
			return err
		}
	}
	if stepLimit != 0 {
		c.StepLimit = stepLimit
	}
	return nil
}

func (c interpreterConfig) options() []bf.Option {
	return []bf.Option{
		bf.WithDispatch(c.Dispatch),
		bf.WithEOF(c.EOF),
		bf.WithStepLimit(c.StepLimit),
		bf.WithTapeCapacity(c.TapeCapacity),
	}
}

func (c logConfig) apply() error {
	if err := log.SetLevel(c.Level); err != nil {
		return fmt.Errorf("log level %q: %w", c.Level, err)
	}
	if err := log.SetFormat(log.OutputFormat(c.Format)); err != nil {
		return fmt.Errorf("log format %q: %w", c.Format, err)
	}
	return nil
}
