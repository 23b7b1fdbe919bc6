package shim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/MarcinKonowalczyk/tapebf/utils"
	"github.com/containerd/errdefs"
)

// writeBundle lays out an OCI bundle with a single script in its rootfs.
func writeBundle(t *testing.T, script string, source string, env ...string) string {
	t.Helper()
	bundle := t.TempDir()
	rootfs := filepath.Join(bundle, "rootfs")
	utils.AssertNoError(t, os.MkdirAll(rootfs, 0755))
	if source != "" {
		utils.AssertNoError(t, os.WriteFile(filepath.Join(rootfs, script), []byte(source), 0644))
	}

	cfg := config{
		Root:    root{Path: "rootfs"},
		Process: process{Args: []string{"/" + script}, Env: append([]string{"PATH=/bin"}, env...)},
	}
	data, err := json.Marshal(cfg)
	utils.AssertNoError(t, err)
	utils.AssertNoError(t, os.WriteFile(filepath.Join(bundle, configFilename), data, 0644))
	return bundle
}

func TestReadConfig(t *testing.T) {
	bundle := writeBundle(t, "hello.bf", "+.", "BF_DISPATCH=indirect", "BF_EOF=zero", "BF_STEP_LIMIT=1000", "BF_TAPE_CAPACITY=64")
	cfg, err := ReadConfig(bundle)
	utils.AssertNoError(t, err)

	utils.AssertEqual(t, cfg.Root, filepath.Join(bundle, "rootfs"))
	utils.AssertEqual(t, cfg.Entrypoint, "/hello.bf")
	utils.AssertEqual(t, cfg.FullPath(), filepath.Join(bundle, "rootfs", "hello.bf"))
	utils.AssertEqual(t, cfg.Env["PATH"], "/bin")
	utils.AssertEqual(t, cfg.Dispatch, bf.Indirect)
	utils.AssertEqual(t, cfg.EOF, bf.EOFZero)
	utils.AssertEqual(t, cfg.StepLimit, uint64(1000))
	utils.AssertEqual(t, cfg.TapeCapacity, 64)
}

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig(writeBundle(t, "hello.bf", "+."))
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, cfg.Dispatch, bf.Direct)
	utils.AssertEqual(t, cfg.EOF, bf.EOFUnchanged)
	utils.AssertEqual(t, cfg.StepLimit, uint64(0))
	utils.AssertEqual(t, cfg.TapeCapacity, bf.DefaultTapeCapacity)
	utils.AssertEqual(t, len(cfg.Options()), 4)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		bundle func(t *testing.T) string
	}{
		{"missing config", func(t *testing.T) string { return t.TempDir() }},
		{"wrong extension", func(t *testing.T) string { return writeBundle(t, "hello.sh", "+.") }},
		{"missing script", func(t *testing.T) string { return writeBundle(t, "hello.bf", "") }},
		{"bad dispatch", func(t *testing.T) string { return writeBundle(t, "hello.bf", "+", "BF_DISPATCH=jit") }},
		{"bad eof", func(t *testing.T) string { return writeBundle(t, "hello.bf", "+", "BF_EOF=-1") }},
		{"bad step limit", func(t *testing.T) string { return writeBundle(t, "hello.bf", "+", "BF_STEP_LIMIT=lots") }},
		{"bad capacity", func(t *testing.T) string { return writeBundle(t, "hello.bf", "+", "BF_TAPE_CAPACITY=0") }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadConfig(test.bundle(t))
			utils.AssertError(t, err)
			utils.Assert(t, errdefs.IsInvalidArgument(err), "expected an invalid argument error, got: "+err.Error())
		})
	}
}

func TestConfig_LoadProgram(t *testing.T) {
	cfg, err := ReadConfig(writeBundle(t, "hello.bf", "loop [ + ] done"))
	utils.AssertNoError(t, err)
	program, err := cfg.LoadProgram()
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, program.String(), "[+]")
}

func TestConfig_LoadProgramUnbalanced(t *testing.T) {
	cfg, err := ReadConfig(writeBundle(t, "broken.bf", "+\n]"))
	utils.AssertNoError(t, err)
	_, err = cfg.LoadProgram()
	utils.AssertError(t, err)
	utils.Assert(t, errdefs.IsInvalidArgument(err), "expected an invalid argument error")
	utils.Assert(t, strings.Contains(err.Error(), "/broken.bf:unmatched ']' at 2:1"), "unexpected message: "+err.Error())
}

func TestParseEnv(t *testing.T) {
	env := parseEnv([]string{"A=1", "B=x=y", "broken", "C="})
	utils.AssertEqual(t, len(env), 3)
	utils.AssertEqual(t, env["A"], "1")
	utils.AssertEqual(t, env["B"], "x=y")
	utils.AssertEqual(t, env["C"], "")
}
