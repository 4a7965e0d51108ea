package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	cli "github.com/urfave/cli/v2"

	"github.com/fomet/fomet/cmd/fometctl/ops"
	"github.com/fomet/fomet/internal/platform/cache"
	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/recordstore"
)

type arguments struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AppscriptURL  string
}

func (a arguments) redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: a.RedisAddr, Password: a.RedisPassword, DB: a.RedisDB}
}

func (a arguments) backend() *recordstore.Client {
	return recordstore.NewClient(a.AppscriptURL, nil, slog.Default(), nil)
}

func main() {
	var args arguments

	app := &cli.App{
		Name:  "fometctl",
		Usage: "operational helpers for the FO-MET dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "redis-addr", Value: "127.0.0.1:6379", EnvVars: []string{"REDIS_ADDR"}, Destination: &args.RedisAddr},
			&cli.StringFlag{Name: "redis-password", EnvVars: []string{"REDIS_PASSWORD"}, Destination: &args.RedisPassword},
			&cli.IntFlag{Name: "redis-db", EnvVars: []string{"REDIS_DB"}, Destination: &args.RedisDB},
			&cli.StringFlag{Name: "appscript-url", EnvVars: []string{"APPSCRIPT_URL"}, Destination: &args.AppscriptURL},
		},
		Commands: []*cli.Command{
			jobsCommand(&args),
			referenceCommand(&args),
			exportCommand(&args),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Default().Error("fometctl", slog.Any("error", err))
		os.Exit(1)
	}
}

func jobsCommand(args *arguments) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "inspect and trigger background jobs",
		Subcommands: []*cli.Command{
			{
				Name:      "trigger",
				Usage:     "enqueue a job by name",
				ArgsUsage: "<job>",
				Action: func(c *cli.Context) error {
					o := ops.NewJobsOps(args.redisOpts())
					defer o.Close()
					info, err := o.Trigger(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "enqueued %s id=%s\n", info.Type, info.ID)
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "print default queue stats as JSON",
				Action: func(c *cli.Context) error {
					o := ops.NewJobsOps(args.redisOpts())
					defer o.Close()
					stats, err := o.InspectQueue(c.Context)
					if err != nil {
						return err
					}
					return json.NewEncoder(c.App.Writer).Encode(stats)
				},
			},
			{
				Name:  "scheduled",
				Usage: "list scheduled tasks",
				Flags: []cli.Flag{&cli.IntFlag{Name: "size", Value: 10}},
				Action: func(c *cli.Context) error {
					o := ops.NewJobsOps(args.redisOpts())
					defer o.Close()
					tasks, err := o.ListScheduled(c.Context, c.Int("size"))
					if err != nil {
						return err
					}
					for _, t := range tasks {
						fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
					}
					return nil
				},
			},
		},
	}
}

func referenceCommand(args *arguments) *cli.Command {
	return &cli.Command{
		Name:  "reference",
		Usage: "manage the cached tariff and KWH catalogues",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "reload the catalogues now and bump the cache version",
				Action: func(c *cli.Context) error {
					rdb, err := cache.New(c.Context, cache.Options{Addr: args.RedisAddr, Password: args.RedisPassword, DB: args.RedisDB})
					if err != nil {
						return err
					}
					defer rdb.Close()
					ref := recordstore.NewReference(args.backend(), recordstore.NewCache(rdb, 6*time.Hour))
					if err := ref.Refresh(c.Context); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "reference data refreshed")
					return nil
				},
			},
		},
	}
}

func exportCommand(args *arguments) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the filtered records as CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "start date YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Usage: "end date YYYY-MM-DD"},
			&cli.StringFlag{Name: "unit"},
			&cli.StringFlag{Name: "idpel"},
			&cli.StringFlag{Name: "purpose"},
			&cli.StringFlag{Name: "status"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, stdout when empty"},
		},
		Action: func(c *cli.Context) error {
			out := c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			n, err := ops.Export(c.Context, args.backend(), ops.ExportOptions{
				Filters: po.FilterCriteria{
					DateFrom:   c.String("from"),
					DateTo:     c.String("to"),
					Unit:       c.String("unit"),
					CustomerID: c.String("idpel"),
					Purpose:    c.String("purpose"),
					Status:     c.String("status"),
				},
				Out: out,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "%d records exported\n", n)
			return nil
		},
	}
}
