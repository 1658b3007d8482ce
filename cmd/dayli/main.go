package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dayli-app/dayli/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "dayli",
	Short:   "Journal storage server with presigned uploads",
	Long: `Dayli is the storage backend for a journaling app. It issues
presigned upload credentials for an S3-compatible object store,
keeps image ownership records, and enforces per-user rate ceilings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if cf, _ := cmd.Flags().GetString("config"); cf != "" {
			configFiles = append(configFiles, cf)
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("store-bucket", "", "object store bucket (default: dayli-data, env: DAYLI_STORE_BUCKET)")
	rootCmd.PersistentFlags().String("fallback-dsn", "", "local fallback database path (default: dayli-fallback.db, env: DAYLI_FALLBACK_DSN)")
	rootCmd.PersistentFlags().String("records-type", "", "image record backend: sqlite, postgres (env: DAYLI_RECORDS_TYPE)")
	rootCmd.PersistentFlags().String("records-dsn", "", "image record connection string (env: DAYLI_RECORDS_DSN)")
	rootCmd.PersistentFlags().String("redis-url", "", "redis URL for rate limiting (env: DAYLI_RATELIMIT_REDIS_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
