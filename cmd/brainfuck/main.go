package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/containerd/log"

	"github.com/MarcinKonowalczyk/tapebf/bf"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// reportedError marks an error whose diagnostics were already printed.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

type runCmd struct {
	Path      string `arg:"" name:"path" type:"existingfile" help:"Program to run."`
	Input     string `help:"Read program input from FILE instead of stdin." type:"existingfile" placeholder:"FILE"`
	Dispatch  string `help:"Dispatch strategy: direct or indirect." placeholder:"STRATEGY"`
	EOF       string `name:"eof" help:"What ',' stores at end of input: unchanged, zero or max." placeholder:"POLICY"`
	StepLimit uint64 `help:"Stop after N instructions. 0 keeps the configured limit." placeholder:"N"`
}

func (r *runCmd) Run(ctx context.Context, cfg *config, s *streams) error {
	if err := cfg.Interpreter.override(r.Dispatch, r.EOF, r.StepLimit); err != nil {
		return err
	}

	program, err := parseFile(r.Path, s.err)
	if err != nil {
		return err
	}

	in := s.in
	if r.Input != "" {
		f, err := os.Open(r.Input)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	stream := bf.NewStream(in, s.out)
	err = bf.RunContext(ctx, program, stream, cfg.Interpreter.options()...)
	if rerr := stream.Err(); rerr != nil {
		log.G(ctx).WithError(rerr).Warn("reading input")
	}
	return err
}

type checkCmd struct {
	Path string `arg:"" name:"path" type:"existingfile" help:"Program to check."`
}

func (c *checkCmd) Run(ctx context.Context, s *streams) error {
	program, err := parseFile(c.Path, s.err)
	if err != nil {
		return err
	}
	log.G(ctx).WithFields(log.Fields{
		"path":         c.Path,
		"instructions": program.Len(),
	}).Debug("program is balanced")
	return nil
}

type fmtCmd struct {
	Path string `arg:"" name:"path" type:"existingfile" help:"Program to format."`
}

func (c *fmtCmd) Run(s *streams) error {
	program, err := parseFile(c.Path, s.err)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, program)
	return err
}

type dumpCmd struct {
	Path   string `arg:"" name:"path" type:"existingfile" help:"Program to dump."`
	Output string `short:"o" type:"path" help:"Write the listing to FILE instead of stdout." placeholder:"FILE"`
}

// Run lists the parsed program one instruction per line: index, symbol, the
// index of the partner bracket for loops, and name.
func (d *dumpCmd) Run(s *streams) (retErr error) {
	program, err := parseFile(d.Path, s.err)
	if err != nil {
		return err
	}

	out := s.out
	if d.Output != "" {
		f, err := os.Create(d.Output)
		if err != nil {
			return fmt.Errorf("creating dump file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil && retErr == nil {
				retErr = err
			}
		}()
		out = f
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i := 0; i < program.Len(); i++ {
		in := program.At(i)
		target := ""
		if in.Kind.IsLoop() {
			target = strconv.Itoa(in.Target)
		}
		fmt.Fprintf(w, "%d\t%v\t%s\t%s\n", i, in.Kind, target, in.Kind.Name())
	}
	return w.Flush()
}

// parseFile parses the program at path. Unbalanced brackets are reported to
// w as one path:line:col line per offending bracket.
func parseFile(path string, w io.Writer) (*bf.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, err := bf.Parse(string(source))
	var perr *bf.ParseError
	if errors.As(err, &perr) {
		for _, pos := range perr.Positions {
			fmt.Fprintf(w, "%s:%v: %v\n", path, pos, perr.Err)
		}
		return nil, reportedError{err}
	}
	return program, err
}

type cli struct {
	Config    string `help:"TOML configuration file." type:"existingfile" placeholder:"FILE"`
	LogLevel  string `help:"Log level: trace, debug, info, warn or error." placeholder:"LEVEL"`
	LogFormat string `help:"Log format: text or json." placeholder:"FORMAT"`

	Run   runCmd   `cmd:"" help:"Run a program on stdin and stdout."`
	Check checkCmd `cmd:"" help:"Check that the brackets of a program balance."`
	Fmt   fmtCmd   `cmd:"" help:"Print a program without comments."`
	Dump  dumpCmd  `cmd:"" help:"List the parsed program with resolved loop targets."`
}

// setup loads the configuration and applies the global flags over it.
func (c *cli) setup() (*config, error) {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if err := cfg.Log.apply(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	ctx, stop := signalContext(context.Background())

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("brainfuck"),
		kong.Description("A brainfuck interpreter."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := func() error {
		cfg, err := c.setup()
		if err != nil {
			return err
		}
		return kctx.Run(cfg, &streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	}()
	status := exitStatus(err, context.Cause(ctx))
	stop()

	var reported reportedError
	if err != nil && status < exitCodeSignal && !errors.As(err, &reported) {
		fmt.Fprintf(os.Stderr, "brainfuck: %v\n", err)
	}
	os.Exit(status)
}
