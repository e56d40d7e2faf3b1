package main

import (
	"os"

	"github.com/fundwise/fundwise/internal/app"
	"github.com/fundwise/fundwise/internal/config"
	"github.com/fundwise/fundwise/internal/database"
	"github.com/fundwise/fundwise/internal/httpclient"
	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// commandContext loads configuration and opens the database on first use.
// The owner calls close once the command has finished, whatever its outcome.
type commandContext struct {
	configPath string

	cfg    *config.Application
	pool   *pgxpool.Pool
	client *httpclient.Client
}

func (c *commandContext) config() (config.Application, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Application{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) dependencies() (*app.Dependencies, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if c.pool == nil {
		if c.pool, err = database.Open(cfg.Database); err != nil {
			return nil, err
		}
	}
	if c.client == nil {
		c.client = httpclient.New(cfg.HttpClient)
	}
	return app.BuildDependencies(c.pool, pubsub.New(cfg.PubSub.BufferSize), c.client.HTTP(), cfg), nil
}

func (c *commandContext) close() {
	if c.client != nil {
		c.client.Close()
	}
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "fundwise-admin",
		Short:         "Maintenance commands for a fundwise installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "./config/application.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newUsersCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))

	return rootCmd
}
