package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/client"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/logger"
)

const usage = `Usage: journal [-config dir] <command> [flags]

Commands:
  add        record a trade
  list       list all trades, newest first
  delete     delete a trade by id
  recent     show the newest trades
  stats      show dashboard KPIs
  calendar   show daily P&L for a month
  equity     show the cumulative P&L curve
  report     show a day, week or month report
  export     download a report as csv or text
  restore    replace all trades from a JSON file
  todo       manage todos (add, list, toggle, rm)
`

func main() {
	configDir := flag.String("config", "./configs", "directory holding config.yml and .env")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli{client: client.NewClient(cfg.Client, log), out: os.Stdout}
	if err := app.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		if errors.Is(err, analytics.ErrEmptyPeriod) {
			fmt.Fprintln(os.Stderr, "Please select a period first.")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
