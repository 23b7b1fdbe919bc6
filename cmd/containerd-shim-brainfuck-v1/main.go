package main

import (
	"context"
	"os/signal"
	"syscall"

	bfshim "github.com/MarcinKonowalczyk/tapebf/shim"

	"github.com/containerd/containerd/v2/pkg/shim"
	"github.com/containerd/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if bfshim.Debug() {
		if err := log.SetLevel("debug"); err != nil {
			log.G(ctx).WithError(err).Warn("failed to enable debug logging")
		}
	}

	shim.Run(ctx, bfshim.NewManager("io.containerd.bf.v1"))
}
