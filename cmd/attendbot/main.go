package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendbot/internal/app"
)

const usage = `usage:
  attendbot run   [-config path] [-once task]
  attendbot leave list   [-config path]
  attendbot leave add    [-config path] -from YYYY-MM-DD [-to YYYY-MM-DD] [-type annual] [-reason text]
  attendbot leave remove [-config path] -from YYYY-MM-DD [-to YYYY-MM-DD]
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCmd(ctx, args)
	case "leave":
		err = leaveCmd(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config (json or yaml)")
	once := fs.String("once", "", "run this task immediately and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := app.New(*cfgPath)
	if err != nil {
		return err
	}

	if *once != "" {
		runErr := a.RunOnce(ctx, *once)
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, app.StopOnceDone)
		return runErr
	}

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	reason := app.StopSignal
	if ctx.Err() == nil {
		reason = app.StopFatalError
	}

	// In-flight punches get a bounded window to finish.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)

	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
