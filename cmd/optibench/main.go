package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/GoSim-25-26J-441/optibench/pkg/config"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

const defaultConfigPath = "config/config.json"

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the configuration file (.json, .yaml, .yml or .toml)",
		Value:   defaultConfigPath,
		EnvVars: []string{"OPTIBENCH_CONFIG"},
	}
	verboseFlag = &cli.IntFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "0 prints only the final result, 1 adds search milestones, 2 adds the output of every script",
		Value:   0,
	}
	skipBuildFlag = &cli.BoolFlag{
		Name:    "skip-build",
		Aliases: []string{"notbuildsut"},
		Usage:   "Do not build the SUT infrastructure before searching",
	}
	replayFlag = &cli.StringFlag{
		Name:  "replay",
		Usage: "Replay a journaled run (`RUN_ID` or \"latest\") instead of benchmarking",
	}
	statusHTTPFlag = &cli.StringFlag{
		Name:    "status-http",
		Usage:   "Serve run status and metrics on this address (overrides status.httpAddr)",
		EnvVars: []string{"OPTIBENCH_STATUS_HTTP"},
	}
	statusGRPCFlag = &cli.StringFlag{
		Name:    "status-grpc",
		Usage:   "Serve the gRPC health service on this address (overrides status.grpcAddr)",
		EnvVars: []string{"OPTIBENCH_STATUS_GRPC"},
	}
)

// usageError is a command line mistake; it exits like a configuration error.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:  "optibench",
		Usage: "Find the block interval and block gas limit that maximize SUT throughput",
		Flags: []cli.Flag{
			configFlag,
			verboseFlag,
			skipBuildFlag,
			replayFlag,
			statusHTTPFlag,
			statusGRPCFlag,
		},
		Action: func(c *cli.Context) error {
			return runTuning(c, stderr)
		},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return &usageError{msg: err.Error()}
		},
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are mapped by run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// run executes the CLI and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var cfgErr *config.Error
	var usageErr *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr), errors.As(err, &usageErr):
		return exitConfigError
	default:
		return exitFailure
	}
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
