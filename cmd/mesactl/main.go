package main

import (
	"fmt"
	"os"
	"strings"

	"mesa-system/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Version = "dev"

// settings are the values every subcommand may need. Flags win over the
// environment, which in turn is seeded from .env by config.LoadConfig.
type settings struct {
	DSN           string
	EncryptionKey string
	JWTSecret     string
	Redis         config.RedisConfig
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "mesactl",
		Short:         "mesactl - administration tool for the mesa gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			v.SetDefault("database-dsn", cfg.DB.DSN)
			v.SetDefault("encryption-key", cfg.Vault.EncryptionKey)
			v.SetDefault("jwt-secret", cfg.Auth.JWTSecret)
			v.SetDefault("redis-host", cfg.Redis.Host)
			v.SetDefault("redis-port", cfg.Redis.Port)
			v.SetDefault("redis-password", cfg.Redis.Password)
			v.SetDefault("redis-db", cfg.Redis.DB)
			return v.BindPFlags(cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("database-dsn", "", "Postgres DSN (env DATABASE_DSN)")
	flags.String("encryption-key", "", "64 hex character integration key (env ENCRYPTION_KEY)")
	flags.String("jwt-secret", "", "token signing secret (env JWT_SECRET)")
	flags.String("redis-host", "", "Redis host for cache invalidation (env REDIS_HOST)")
	flags.String("redis-port", "", "Redis port (env REDIS_PORT)")

	load := func() settings {
		return settings{
			DSN:           v.GetString("database-dsn"),
			EncryptionKey: v.GetString("encryption-key"),
			JWTSecret:     v.GetString("jwt-secret"),
			Redis: config.RedisConfig{
				Host:     v.GetString("redis-host"),
				Port:     v.GetString("redis-port"),
				Password: v.GetString("redis-password"),
				DB:       v.GetInt("redis-db"),
			},
		}
	}

	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(bootstrapCmd(load))
	rootCmd.AddCommand(integrationCmd(load))
	rootCmd.AddCommand(tokenCmd(load))

	return rootCmd
}

func newLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
