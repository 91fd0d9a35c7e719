package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pullupd/internal/app"
	"pullupd/internal/ui"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (JSON or YAML); empty uses defaults")
		headless   = flag.Bool("headless", false, "run without the terminal UI (alerts only)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pullupd:", err)
		os.Exit(1)
	}
	a.Start(ctx)

	if *headless {
		err = a.Wait(ctx)
	} else {
		err = ui.Run(ui.NewModel(a.Scheduler(), a.Timers(), a.Notify(), a.Standup(), a.Bus(), a.Logger()))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Stop(shutdownCtx)

	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "pullupd:", err)
		os.Exit(1)
	}
}
