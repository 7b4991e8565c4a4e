package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"etl-verify/internal/config"
	"etl-verify/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var RootCmd = &cobra.Command{
	Use:   "etl-verify",
	Short: "ETL migration verification tool",
	Long: `
  _____ _____ _          __     __        _  __       
 | ____|_   _| |         \ \   / /__ _ __(_)/ _|_   _ 
 |  _|   | | | |    _____ \ \ / / _ \ '__| | |_| | | |
 | |___  | | | |___|_____| \ V /  __/ |  | |  _| |_| |
 |_____| |_| |_____|        \_/ \___|_|  |_|_|  \__, |
                                                |___/ 
ETL VERIFY - Mapping Validation & Migration Comparison
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := logging.Init(c.Log.Level); err != nil {
			return err
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./etl-verify.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	setDefaults(config.Default())
}

func setDefaults(d config.Config) {
	viper.SetDefault("agent.request_timeout", d.Agent.RequestTimeout)
	viper.SetDefault("execution.poll_interval", d.Execution.PollInterval)
	viper.SetDefault("execution.poll_jitter", d.Execution.PollJitter)
	viper.SetDefault("execution.job_timeout", d.Execution.JobTimeout)
	viper.SetDefault("execution.not_found_retries", d.Execution.NotFoundRetries)
	viper.SetDefault("execution.pacing", d.Execution.Pacing)
	viper.SetDefault("execution.concurrency", d.Execution.Concurrency)
	viper.SetDefault("snapshot.mode", d.Snapshot.Mode)
	viper.SetDefault("history.path", d.History.Path)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("server.address", d.Server.Address)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// executable directory first, then the working directory
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("etl-verify")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ETL_VERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
