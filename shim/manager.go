package shim

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	apitypes "github.com/containerd/containerd/api/types"
	"github.com/containerd/containerd/v2/pkg/shim"
	"github.com/containerd/log"
)

// Version is reported to containerd by Info.
const Version = "v1.3.0"

const initPidFile = "bf.pid"

// comptime override for debug flag
// set with `-ldflags="-X 'github.com/MarcinKonowalczyk/tapebf/shim.debug=true'"`
var debug string

// Debug reports whether the binary was built with debug logging forced on.
func Debug() bool {
	return debug != ""
}

type bfManager struct {
	name string
}

func NewManager(name string) shim.Manager {
	return bfManager{name: name}
}

func (m bfManager) Name() string {
	return m.name
}

// Start spawns the shim daemon that will host the task and hands its socket
// back to containerd. The daemon interprets the program itself, so a bundle
// whose entrypoint does not parse is rejected here, before any process is
// started.
func (m bfManager) Start(ctx context.Context, id string, opts shim.StartOpts) (retShim shim.BootstrapParams, retErr error) {
	log.G(ctx).WithField("id", id).Debug("Start (manager)")

	// containerd starts the shim from the bundle directory
	bundle, err := os.Getwd()
	if err != nil {
		return retShim, fmt.Errorf("getting current working directory: %w", err)
	}
	if err := checkBundle(bundle); err != nil {
		return retShim, err
	}

	self, err := os.Executable()
	if err != nil {
		return retShim, fmt.Errorf("getting executable of current process: %w", err)
	}

	var args []string
	if opts.Debug || Debug() {
		args = append(args, "-debug")
	}

	cmd, err := shim.Command(ctx, &shim.CommandConfig{
		Runtime:      self,
		Address:      opts.Address,
		TTRPCAddress: opts.TTRPCAddress,
		Path:         bundle,
		Args:         args,
	})
	if err != nil {
		return retShim, fmt.Errorf("creating shim command: %w", err)
	}

	sockAddr, err := shim.SocketAddress(ctx, opts.Address, id, opts.Debug)
	if err != nil {
		return retShim, fmt.Errorf("getting a socket address: %w", err)
	}

	socket, err := shim.NewSocket(sockAddr)
	if err != nil {
		return retShim, fmt.Errorf("creating socket: %w", err)
	}

	sockF, err := socket.File()
	if err != nil {
		return retShim, fmt.Errorf("getting shim socket file descriptor: %w", err)
	}
	cmd.ExtraFiles = append(cmd.ExtraFiles, sockF)

	retErr = func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := cmd.Start(); err != nil {
			sockF.Close()
			return fmt.Errorf("starting shim command: %w", err)
		}
		return nil
	}()
	if retErr != nil {
		return retShim, retErr
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			if _, ok := err.(*exec.ExitError); !ok {
				log.G(ctx).WithError(err).Errorf("failed to wait for shim process %d", cmd.Process.Pid)
			}
		}
	}()

	if err := shim.AdjustOOMScore(cmd.Process.Pid); err != nil {
		return retShim, fmt.Errorf("adjusting shim process OOM score: %w", err)
	}

	return shim.BootstrapParams{
		Version:  2,
		Address:  sockAddr,
		Protocol: "ttrpc",
	}, nil
}

// Stop is containerd's last resort cleanup. Tasks run inside the shim
// daemon, so the recorded pid is the daemon itself.
func (m bfManager) Stop(ctx context.Context, id string) (shim.StopStatus, error) {
	log.G(ctx).WithField("id", id).Debug("Stop (manager)")

	cwd, err := os.Getwd()
	if err != nil {
		return shim.StopStatus{}, fmt.Errorf("getting current working directory: %w", err)
	}
	pid, err := readPidFile(pidFilePath(cwd, id))
	if err != nil {
		return shim.StopStatus{}, fmt.Errorf("reading pid file: %w", err)
	}

	if pid > 0 {
		p, _ := os.FindProcess(pid)
		// The POSIX standard specifies that a null-signal can be sent to check
		// whether a PID is valid.
		if err := p.Signal(syscall.Signal(0)); err == nil {
			if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
				log.G(ctx).WithError(err).Warnf("failed to send kill syscall to shim process %d", pid)
			}
		}
	}

	return shim.StopStatus{
		Pid:        pid,
		ExitedAt:   time.Now(),
		ExitStatus: exitCodeSignal + int(syscall.SIGKILL),
	}, nil
}

func (m bfManager) Info(ctx context.Context, optionsR io.Reader) (*apitypes.RuntimeInfo, error) {
	log.G(ctx).Debug("Info (manager)")
	return &apitypes.RuntimeInfo{
		Name: m.name,
		Version: &apitypes.RuntimeVersion{
			Version: Version,
		},
	}, nil
}

var (
	_ = shim.Manager(&bfManager{})
)

// checkBundle reads the bundle and parses its entrypoint.
func checkBundle(bundle string) error {
	config, err := ReadConfig(bundle)
	if err != nil {
		return err
	}
	_, err = config.LoadProgram()
	return err
}

// pidFilePath locates the pid file of task id. The shim runs in the bundle
// directory of the first task; sibling bundles share the parent.
func pidFilePath(cwd string, id string) string {
	return filepath.Join(filepath.Dir(cwd), id, initPidFile)
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// If containerd needs to resort to calling the shim's "stop" command to
// clean things up, having the pid readable from a file is the only way for
// it to know what process is associated with the task.
func writePidFile(path string, pid int) error {
	if err := shim.WritePidFile(path, pid); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	// 644 == rw-r--r--
	// aka: owner can read/write, group/other can read
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("changing pid file permissions: %w", err)
	}
	return nil
}
