package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/site"
	"github.com/aweris/site/internal/host"
	"github.com/aweris/site/internal/ipc"
	"github.com/aweris/site/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "site",
	Short:         "Manage sites and their files",
	Long:          "CLI for the site host: create sites, store their files and sync them with OCI registries.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/site/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default: ~/.local/share/site)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default: warn)")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SITE")
	viper.AutomaticEnv()
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("compression", true)
	viper.SetDefault("compression_level", 2)
	viper.SetDefault("cache_size", 256)
	viper.SetDefault("concurrency", site.DefaultConcurrency)

	viper.ReadInConfig()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(viper.GetString("log_level")),
	})))
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "site")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "site")
	}
	return ".site"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "site")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "site")
	}
	return ".site"
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelWarn
	}
	return level
}

func openHost() (*host.Host, func() error, error) {
	opts := store.Options{
		Compression:      viper.GetBool("compression"),
		CompressionLevel: viper.GetInt("compression_level"),
		CacheSize:        viper.GetInt("cache_size"),
		Logger:           slog.Default(),
	}
	st, err := store.OpenBoltStore(filepath.Join(viper.GetString("data_dir"), "sites.db"), opts)
	if err != nil {
		return nil, nil, err
	}
	return host.New(st, slog.Default()), st.Close, nil
}

// withClient runs fn against an in-process host over the local data dir.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *site.Client) error) (err error) {
	h, closeStore, err := openHost()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	client := site.NewClient(ipc.NewLocal(h.Router()), site.WithConcurrency(viper.GetInt("concurrency")))
	return fn(cmd.Context(), client)
}
