package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/etnz/tradejournal/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr     string
	schedule string
	origins  string
	timeout  time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the journal over HTTP and sync it periodically" }
func (*serveCmd) Usage() string {
	return `tj serve [-addr <host:port>] [-schedule <cron>] [-origins <list>]

Serves the journal as JSON:

  GET  /health        last sync status
  GET  /api/journal   months, weeks and days, most recent first
  GET  /api/summary   account summary
  POST /api/sync      run a sync now, 409 if one is already running

and syncs on the given cron schedule, for instance "@every 15m" or
"30 16 * * MON-FRI". An empty schedule disables periodic syncs.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "localhost:8080", "Address to listen on.")
	f.StringVar(&c.schedule, "schedule", "@every 15m", "Cron schedule of syncs.")
	f.StringVar(&c.origins, "origins", "", "Comma separated CORS allowed origins, all by default.")
	f.DurationVar(&c.timeout, "timeout", 2*time.Minute, "Maximum duration of a scheduled sync.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	s, closeStore, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	in, err := newIngestor(s, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if in.Fetcher == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", errNoToken)
		return subcommands.ExitUsageError
	}

	var origins []string
	if c.origins != "" {
		origins = strings.Split(c.origins, ",")
	}
	srv := server.New(server.Config{
		Addr:     c.addr,
		Log:      log,
		Ingestor: in,
		Origins:  origins,
	})

	sched := server.NewScheduler(log, c.timeout)
	if c.schedule != "" {
		if err := sched.AddSync(c.schedule, srv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -schedule %q: %v\n", c.schedule, err)
			return subcommands.ExitUsageError
		}
	}
	sched.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	status := subcommands.ExitSuccess
	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
			status = subcommands.ExitFailure
		}
	case <-ctx.Done():
	}

	sched.Stop()
	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		status = subcommands.ExitFailure
	}
	return status
}
