// Command exrun runs the prebuilt example programs and reports how each
// one finished.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deixis/exrun"
	"github.com/deixis/exrun/internal/config"
	"github.com/deixis/exrun/internal/lg"
	"github.com/deixis/exrun/internal/locator"
	exmcp "github.com/deixis/exrun/internal/mcp"
	"github.com/deixis/exrun/internal/report"
	"github.com/deixis/exrun/internal/workflow"
)

// errFailed signals a completed command whose outcome was a failure;
// the details have already been printed.
var errFailed = errors.New("failed")

func main() {
	log.SetFlags(0)
	log.SetPrefix("exrun: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]

	switch cmd {
	case "version":
		fmt.Println(exrun.Version)
		return
	case "help", "-h", "--help":
		usage()
		return
	}

	ctx, _, stop := interruptContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, logger, err := newEngine()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	switch cmd {
	case "check":
		err = eng.Check()
	case "all":
		err = allMain(ctx, eng)
	case "chat":
		_, err = eng.Chat(ctx)
	case "mcp":
		err = mcpMain(ctx, eng)
	default:
		err = runMain(ctx, eng, cmd)
	}

	if err != nil {
		var missing *locator.MissingError
		if errors.Is(err, errFailed) || errors.Is(err, workflow.ErrInterrupted) || errors.As(err, &missing) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

// interruptContext is cancelled by the first of sigs. The handler is then
// released, so a second signal takes the default action and ends exrun
// without waiting out a grace period. released is closed once that has
// happened.
func interruptContext(parent context.Context, sigs ...os.Signal) (ctx context.Context, released <-chan struct{}, stop context.CancelFunc) {
	ctx, stop = signal.NotifyContext(parent, sigs...)
	rel := make(chan struct{})
	go func() {
		<-ctx.Done()
		stop()
		close(rel)
	}()
	return ctx, rel, stop
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: exrun <command>

Commands:
  check       Verify every example binary has been built
  all         Run every example in order, each with its own time budget
  chat        Start the chat server on this terminal
  <name>      Run one example with the default time budget
  mcp         Serve the commands as MCP tools over stdio
  version     Print the version
  help        Show this help

Settings are read from the nearest .exrun file.`)
}

func allMain(ctx context.Context, eng *workflow.Engine) error {
	rr, err := eng.RunAll(ctx)
	if err != nil {
		return err
	}
	if !rr.Passed() {
		return errFailed
	}
	return nil
}

func runMain(ctx context.Context, eng *workflow.Engine, name string) error {
	rr, err := eng.RunOne(ctx, name)
	if err != nil {
		return err
	}
	if !rr.Passed() {
		return errFailed
	}
	return nil
}

func mcpMain(ctx context.Context, eng *workflow.Engine) error {
	dir, err := os.MkdirTemp("", "exrun-runs-*")
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	disk, err := report.NewDiskStore(dir)
	if err != nil {
		return err
	}
	server := exmcp.NewServer(eng, report.NewLRUStore(5, disk))
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func newEngine() (*workflow.Engine, *zap.Logger, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := lg.New(lg.Config{Level: loaded.Config.Log.Level, Format: loaded.Config.Log.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logging: %w", err)
	}

	return workflow.New(loaded, logger), logger, nil
}
