package main

import (
	"context"
	"errors"
	"os"

	"github.com/muesli/termenv"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/facebook/flipper-sub000/internal/cli"
	redisadapter "github.com/facebook/flipper-sub000/pkg/adapters/redis"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print push events fanned out through Redis",
	Long: `Subscribes to the Redis channel that "inspector serve" publishes push
events on, and prints one line per event from every replica.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("redis-addr") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
		}
		if !cfg.Redis.Enabled() {
			return errors.New("redis is not configured: set redis.addr or --redis-addr")
		}

		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		sub := redisadapter.NewSubscriber(client, cfg.Redis.Channel, logger)
		profile := termenv.NewOutput(os.Stdout).EnvColorProfile()
		return cli.Watch(sc, sub, cmd.OutOrStdout(), profile, logger)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("redis-addr", "", "Redis address (overrides the config file)")
}
