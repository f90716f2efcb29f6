package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gmailkit/gmailkit/gmail"
	"github.com/gmailkit/gmailkit/gmailapi"
	"github.com/gmailkit/gmailkit/internal/rate"
)

// appConfig is the resolved CLI configuration: file values overridden by
// flags.
type appConfig struct {
	AuthDir  string `mapstructure:"auth_dir"`
	RPS      int    `mapstructure:"rps"`
	Burst    int    `mapstructure:"burst"`
	PageSize int    `mapstructure:"page_size"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "gmailkit", "config.yaml")
}

func defaultAuthDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gmailkit"
	}
	return filepath.Join(home, ".gmailkit")
}

// loadConfig reads the YAML config file. A missing file resolves to
// defaults.
func loadConfig(path string) (appConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("auth_dir", defaultAuthDir())
	v.SetDefault("rps", 10)
	v.SetDefault("burst", 10)
	v.SetDefault("page_size", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return appConfig{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

type rootFlags struct {
	configPath string
	authDir    string
	rps        int
}

func (rf *rootFlags) resolve() (appConfig, error) {
	cfg, err := loadConfig(rf.configPath)
	if err != nil {
		return appConfig{}, err
	}
	if rf.authDir != "" {
		cfg.AuthDir = rf.authDir
	}
	if rf.rps > 0 {
		cfg.RPS = rf.rps
		if cfg.Burst < rf.rps {
			cfg.Burst = rf.rps
		}
	}
	return cfg, nil
}

// connect builds an authenticated service. The returned cleanup stops the
// rate limiter.
func connect(ctx context.Context, cfg appConfig) (*gmail.Service, func(), error) {
	client, err := gmailapi.Connect(ctx, cfg.AuthDir)
	if err != nil {
		return nil, nil, err
	}
	bucket := rate.NewTokenBucket(cfg.RPS, cfg.Burst)
	svc := gmail.NewService(client, bucket, gmailapi.DefaultLogger())
	return svc, bucket.Stop, nil
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:   "gmailkit",
		Short: "Search, fetch and send Gmail from the command line",
		Long: `gmailkit is a thin CLI over the gmailkit library. It authenticates with
OAuth credentials stored in the auth directory and talks directly to the
Gmail API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", defaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&rf.authDir, "auth-dir", "", "OAuth credential directory (overrides config)")
	root.PersistentFlags().IntVar(&rf.rps, "rps", 0, "max API requests per second (overrides config)")

	root.AddCommand(newSearchCmd(rf))
	root.AddCommand(newFetchCmd(rf))
	root.AddCommand(newSendCmd(rf))
	root.AddCommand(newLabelsCmd(rf))
	return root
}
