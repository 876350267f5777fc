// Command hashpipe runs a pipeline of registered worker modules chained
// through shared-memory ring databufs and a shared status buffer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashpipe/hashpipe-go/internal/logging"
	"github.com/hashpipe/hashpipe-go/internal/registry"
	"github.com/hashpipe/hashpipe-go/internal/supervisor"
	"github.com/hashpipe/hashpipe-go/internal/workerrt"

	_ "github.com/hashpipe/hashpipe-go/workers"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	logger := logging.Default()

	cfg, err := supervisor.ParseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if cfg.Help {
		printUsage()
		return 0
	}
	if cfg.List {
		registry.List(os.Stdout)
		return 0
	}
	if len(cfg.Workers) == 0 {
		fmt.Fprintln(os.Stderr, "hashpipe: no worker modules named")
		registry.List(os.Stderr)
		return 1
	}

	supervisor.RaiseMemlock(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerrt.Set()
	p, err := supervisor.Build(ctx, cfg.InstanceID, cfg.Workers, cfg.Affinity, cfg.Priority, logger)
	if err != nil {
		logger.Error("build failed", "error", err)
		return 1
	}

	if err := p.Commit(cfg.Options); err != nil {
		logger.Error("commit failed", "error", err)
		p.Shutdown()
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		workerrt.Clear()
	}()

	logger.Info("pipeline running", "instance", cfg.InstanceID, "workers", cfg.Workers)
	p.Run()

	logger.Info("pipeline stopping")
	p.Shutdown()
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: hashpipe [-I instance] [-c mask] [-m prio] [-o KEY=VALUE] worker [worker ...]")
	fmt.Fprintln(os.Stderr, "       hashpipe -l   (list registered worker modules)")
}
