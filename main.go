package main

import (
	"flag"
	"fmt"
	"os"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/bayleafwalker/msrv/internal/cli"
)

func main() {
	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [logging options] <list|set> [options]\n\nLogging options:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := zap.New(zap.UseFlagOptions(&opts))
	log.SetLogger(logger)

	ctx := log.IntoContext(signals.SetupSignalHandler(), logger)

	err := cli.New(os.Stdout, os.Stderr).Run(ctx, flag.Args())
	if err != nil {
		logger.Error(err, "command failed")
	}
	os.Exit(cli.ExitCode(err))
}
