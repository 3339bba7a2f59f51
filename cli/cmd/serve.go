package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/config"
	"github.com/justapithecus/jxlframe/httpapi"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve decode inspection and metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: ":8080",
			},
			&cli.Int64Flag{
				Name:  "max-body-bytes",
				Usage: "Request body limit",
				Value: httpapi.DefaultMaxBodyBytes,
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	srv := httpapi.New(httpapi.Config{
		Backend:      e.backend,
		Workers:      e.workers,
		MaxBodyBytes: resolveInt64(c, "max-body-bytes", configVal(e.cfg, func(c *config.Config) int64 { return c.Server.MaxBodyBytes })),
		Collector:    e.collector,
		Logger:       e.logger,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := resolveString(c, "addr", configVal(e.cfg, func(c *config.Config) string { return c.Server.Addr }))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return nil
}
