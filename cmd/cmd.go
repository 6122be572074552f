package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "reimbursement",
	Short: "Reimbursement Management",
	Long:  `Expense applications, approvals and Zengin payment batches.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// container deployments have no config.yml mounted
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		initLogger(cfg)
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	initLogger(&cfg)
	return &cfg, nil
}

func initLogger(cfg *internal.Config) {
	logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(notifyCmd)
}
