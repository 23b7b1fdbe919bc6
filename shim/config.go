package shim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/containerd/errdefs"
)

const configFilename = "config.json"

// Environment variables read from the container process to configure the
// interpreter.
const (
	envDispatch     = "BF_DISPATCH"
	envEOF          = "BF_EOF"
	envStepLimit    = "BF_STEP_LIMIT"
	envTapeCapacity = "BF_TAPE_CAPACITY"
)

type root struct {
	// Path is the path to the rootfs
	Path string `json:"path"`
}

type process struct {
	// Args is the command to run
	Args []string `json:"args"`
	// Env is the environment variables to set
	Env []string `json:"env"`
}

// subset of the OCI runtime spec the shim cares about
type config struct {
	Root    root    `json:"root"`
	Process process `json:"process"`
}

// Config describes the program a task runs and how to run it.
type Config struct {
	Root       string
	Entrypoint string
	Env        map[string]string

	Dispatch     bf.Dispatch
	EOF          bf.EOFPolicy
	StepLimit    uint64
	TapeCapacity int
}

// ReadConfig reads the OCI config.json of the bundle at path. Problems with
// the bundle are reported as errdefs.ErrInvalidArgument.
func ReadConfig(path string) (*Config, error) {
	filePath := filepath.Join(path, configFilename)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found: %w", configFilename, errdefs.ErrInvalidArgument)
		}
		return nil, err
	}

	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %v: %w", configFilename, err, errdefs.ErrInvalidArgument)
	}

	if cfg.Root.Path == "" {
		return nil, fmt.Errorf("root path not found in config file %s: %w", configFilename, errdefs.ErrInvalidArgument)
	}
	// relative root paths are relative to the bundle
	rootPath := cfg.Root.Path
	if !filepath.IsAbs(rootPath) {
		rootPath = filepath.Join(path, rootPath)
	}

	if len(cfg.Process.Args) != 1 {
		return nil, fmt.Errorf("incorrect number of args in the CMD. Expected 1, got %d: %w", len(cfg.Process.Args), errdefs.ErrInvalidArgument)
	}
	entrypoint := cfg.Process.Args[0]

	if ext := filepath.Ext(entrypoint); ext != ".bf" && ext != ".b" && ext != ".brainfuck" {
		return nil, fmt.Errorf("entry point (%s) is not a .bf file: %w", entrypoint, errdefs.ErrInvalidArgument)
	}

	c := &Config{
		Root:         rootPath,
		Entrypoint:   entrypoint,
		Env:          parseEnv(cfg.Process.Env),
		TapeCapacity: bf.DefaultTapeCapacity,
	}
	if err := c.applyEnv(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, errdefs.ErrInvalidArgument)
	}

	if _, err := os.Stat(c.FullPath()); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script %s does not exist: %w", entrypoint, errdefs.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("checking script %s: %w", entrypoint, err)
	}
	return c, nil
}

func parseEnv(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

func (c *Config) applyEnv() error {
	if v, ok := c.Env[envDispatch]; ok {
		if err := c.Dispatch.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", envDispatch, err)
		}
	}
	if v, ok := c.Env[envEOF]; ok {
		if err := c.EOF.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", envEOF, err)
		}
	}
	if v, ok := c.Env[envStepLimit]; ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envStepLimit, err)
		}
		c.StepLimit = n
	}
	if v, ok := c.Env[envTapeCapacity]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: invalid capacity %q", envTapeCapacity, v)
		}
		c.TapeCapacity = n
	}
	return nil
}

func (c *Config) FullPath() string {
	return filepath.Join(c.Root, c.Entrypoint)
}

// Options converts the config into interpreter options.
func (c *Config) Options() []bf.Option {
	return []bf.Option{
		bf.WithDispatch(c.Dispatch),
		bf.WithEOF(c.EOF),
		bf.WithStepLimit(c.StepLimit),
		bf.WithTapeCapacity(c.TapeCapacity),
	}
}

// LoadProgram reads and parses the entrypoint. A program that does not parse
// is reported as errdefs.ErrInvalidArgument.
func (c *Config) LoadProgram() (*bf.Program, error) {
	source, err := os.ReadFile(c.FullPath())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.Entrypoint, err)
	}
	program, err := bf.Parse(string(source))
	if err != nil {
		return nil, errdefs.ErrInvalidArgument.WithMessage(fmt.Sprintf("%s:%v", c.Entrypoint, err))
	}
	return program, nil
}
