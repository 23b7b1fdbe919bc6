package shim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	taskAPI "github.com/containerd/containerd/api/runtime/task/v2"
	tasktypes "github.com/containerd/containerd/api/types/task"
	"github.com/containerd/containerd/protobuf"
	ptypes "github.com/containerd/containerd/v2/pkg/protobuf/types"
	"github.com/containerd/containerd/v2/pkg/shim"
	"github.com/containerd/containerd/v2/pkg/shutdown"
	"github.com/containerd/containerd/v2/plugins"
	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/containerd/plugin"
	"github.com/containerd/plugin/registry"
	"github.com/containerd/ttrpc"
	"google.golang.org/protobuf/types/known/anypb"
)

func init() {
	registry.Register(&plugin.Registration{
		Type: plugins.TTRPCPlugin,
		ID:   "task",
		Requires: []plugin.Type{
			plugins.InternalPlugin,
		},
		InitFn: func(ic *plugin.InitContext) (interface{}, error) {
			ss, err := ic.GetByID(plugins.InternalPlugin, "shutdown")
			if err != nil {
				return nil, err
			}
			return newTaskService(ic.Context, ss.(shutdown.Service))
		},
	})
}

// bfTaskService runs every task of the shim inside the shim process.
type bfTaskService struct {
	mu       sync.RWMutex
	tasks    map[string]*task
	shutdown shutdown.Service
}

func newTaskService(ctx context.Context, sd shutdown.Service) (taskAPI.TaskService, error) {
	return &bfTaskService{
		tasks:    make(map[string]*task, 1),
		shutdown: sd,
	}, nil
}

// RegisterTTRPC allows TTRPC services to be registered with the underlying server
func (s *bfTaskService) RegisterTTRPC(server *ttrpc.Server) error {
	taskAPI.RegisterTaskService(server, s)
	return nil
}

var (
	_ = shim.TTRPCService(&bfTaskService{})
)

func (s *bfTaskService) get(id string) (*task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not created: %w", id, errdefs.ErrNotFound)
	}
	return t, nil
}

// Create parses the entrypoint of the bundle and prepares a task for it. A
// program with unbalanced brackets is rejected here, before anything runs.
func (s *bfTaskService) Create(ctx context.Context, r *taskAPI.CreateTaskRequest) (_ *taskAPI.CreateTaskResponse, retErr error) {
	log.G(ctx).WithField("id", r.ID).Debug("create (service)")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[r.ID]; ok {
		return nil, errdefs.ErrAlreadyExists
	}

	config, err := ReadConfig(r.Bundle)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	program, err := config.LoadProgram()
	if err != nil {
		return nil, err
	}

	t := newTask(r.ID, os.Getpid(), program, config.Options(), s.exited)
	if err := t.openIO(ctx, r.Stdin, r.Stdout, r.Stderr); err != nil {
		return nil, err
	}

	if err := writePidFile(filepath.Join(r.Bundle, initPidFile), t.pid); err != nil {
		log.G(ctx).WithError(err).Warn("failed to write pid file")
	}

	s.tasks[r.ID] = t
	log.G(ctx).WithFields(log.Fields{
		"id":           r.ID,
		"entrypoint":   config.Entrypoint,
		"instructions": program.Len(),
		"dispatch":     config.Dispatch,
	}).Info("task created")

	return &taskAPI.CreateTaskResponse{
		Pid: uint32(t.pid),
	}, nil
}

// Start the program of the task
func (s *bfTaskService) Start(ctx context.Context, r *taskAPI.StartRequest) (*taskAPI.StartResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("start (service)")

	t, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}
	if err := t.start(ctx); err != nil {
		return nil, errdefs.ErrFailedPrecondition.WithMessage(err.Error())
	}

	return &taskAPI.StartResponse{
		Pid: uint32(t.pid),
	}, nil
}

// exited shuts the shim down once every task has stopped.
func (s *bfTaskService) exited() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if !t.stopped() {
			return
		}
	}
	log.L.Debug("all tasks exited. shutting down the shim")
	s.shutdown.Shutdown()
}

// Delete a stopped task
func (s *bfTaskService) Delete(ctx context.Context, r *taskAPI.DeleteRequest) (*taskAPI.DeleteResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("delete (service)")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[r.ID]
	if !ok {
		return nil, fmt.Errorf("task %s not created: %w", r.ID, errdefs.ErrNotFound)
	}
	if !t.stopped() {
		return nil, errdefs.ErrFailedPrecondition.WithMessage(fmt.Sprintf("task %s is not done yet", r.ID))
	}
	delete(s.tasks, r.ID)

	_, status, exitedAt := t.status()
	return &taskAPI.DeleteResponse{
		Pid:        uint32(t.pid),
		ExitStatus: uint32(status),
		ExitedAt:   protobuf.ToTimestamp(exitedAt),
	}, nil
}

// Exec an additional process inside the container
func (s *bfTaskService) Exec(ctx context.Context, r *taskAPI.ExecProcessRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("exec (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Exec (task)")
}

// ResizePty of a process
func (s *bfTaskService) ResizePty(ctx context.Context, r *taskAPI.ResizePtyRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("resizepty (service)")
	return &ptypes.Empty{}, nil
}

// State returns runtime state of a task
func (s *bfTaskService) State(ctx context.Context, r *taskAPI.StateRequest) (*taskAPI.StateResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("state (service)")

	t, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	state, exitStatus, exitedAt := t.status()
	status := tasktypes.Status_RUNNING
	switch state {
	case taskCreated:
		status = tasktypes.Status_CREATED
	case taskStopped:
		status = tasktypes.Status_STOPPED
	}

	return &taskAPI.StateResponse{
		ID:         r.ID,
		Pid:        uint32(t.pid),
		Status:     status,
		Stdin:      t.stdinPath,
		Stdout:     t.stdoutPath,
		Stderr:     t.stderrPath,
		ExitStatus: uint32(exitStatus),
		ExitedAt:   protobuf.ToTimestamp(exitedAt),
	}, nil
}

// Pause the container
func (s *bfTaskService) Pause(ctx context.Context, r *taskAPI.PauseRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("pause (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Pause (task)")
}

// Resume the container
func (s *bfTaskService) Resume(ctx context.Context, r *taskAPI.ResumeRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("resume (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Resume (task)")
}

// Kill stops the program of a task and waits for it to exit.
func (s *bfTaskService) Kill(ctx context.Context, r *taskAPI.KillRequest) (*ptypes.Empty, error) {
	log.G(ctx).WithFields(log.Fields{"id": r.ID, "signal": r.Signal}).Debug("kill (service)")

	t, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	sig := syscall.Signal(r.Signal)
	if sig == 0 {
		sig = syscall.SIGKILL
	}
	if !t.kill(ctx, sig) {
		log.G(ctx).Warnf("task already exited: %s", r.ID)
		return &ptypes.Empty{}, nil
	}

	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return &ptypes.Empty{}, nil
}

// Pids returns all pids inside the container
func (s *bfTaskService) Pids(ctx context.Context, r *taskAPI.PidsRequest) (*taskAPI.PidsResponse, error) {
	log.G(ctx).Debug("pids (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Pids (task)")
}

// CloseIO of a process
func (s *bfTaskService) CloseIO(ctx context.Context, r *taskAPI.CloseIORequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("closeio (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("CloseIO (task)")
}

// Checkpoint the container
func (s *bfTaskService) Checkpoint(ctx context.Context, r *taskAPI.CheckpointTaskRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("checkpoint (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Checkpoint (task)")
}

// Connect returns shim information of the underlying service
func (s *bfTaskService) Connect(ctx context.Context, r *taskAPI.ConnectRequest) (*taskAPI.ConnectResponse, error) {
	log.G(ctx).Debug("connect (service)")

	t, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}
	return &taskAPI.ConnectResponse{
		ShimPid: uint32(os.Getpid()),
		TaskPid: uint32(t.pid),
	}, nil
}

// Shutdown is called after the underlying resources of the shim are cleaned up and the service can be stopped
func (s *bfTaskService) Shutdown(ctx context.Context, r *taskAPI.ShutdownRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("shutdown (service)")

	s.shutdown.Shutdown()
	return &ptypes.Empty{}, nil
}

// Stats returns container level system stats for a container and its processes
func (s *bfTaskService) Stats(ctx context.Context, r *taskAPI.StatsRequest) (*taskAPI.StatsResponse, error) {
	log.G(ctx).Debug("stats (service)")
	return &taskAPI.StatsResponse{
		Stats: &anypb.Any{},
	}, nil
}

// Update the live container
func (s *bfTaskService) Update(ctx context.Context, r *taskAPI.UpdateTaskRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("update (service)")
	return nil, errdefs.ErrNotImplemented.WithMessage("Update (task)")
}

// Wait for a task to exit
func (s *bfTaskService) Wait(ctx context.Context, r *taskAPI.WaitRequest) (*taskAPI.WaitResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("wait (service)")

	t, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	_, status, exitedAt := t.status()
	return &taskAPI.WaitResponse{
		ExitStatus: uint32(status),
		ExitedAt:   protobuf.ToTimestamp(exitedAt),
	}, nil
}
