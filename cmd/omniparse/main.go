package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/config"
	"github.com/jarredhawkins/omniparse/internal/lang"
)

// app holds what the persistent flags resolve to before a command runs.
type app struct {
	configPath string
	logLevel   string
	logFile    string

	cfg   *config.Config
	langs *lang.Set
	close func()
}

func main() {
	a := &app{close: func() {}}
	if err := newRootCmd(a).Execute(); err != nil {
		log.Error().Err(err).Msg("omniparse failed")
		a.close()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "omniparse",
		Short:         "Scan text into nested segments with configurable rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (defaults to ./omniparse.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newRenderCmd(a))
	rootCmd.AddCommand(newJSONCmd(a))
	rootCmd.AddCommand(newINICmd(a))
	rootCmd.AddCommand(newLanguagesCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newLSPCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

// setup loads the config and the languages and configures logging.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFile != "" {
		cfg.LogFile = a.logFile
	}

	closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	a.close = closeLog

	langs, err := cfg.LanguageSet()
	if err != nil {
		return err
	}
	a.cfg, a.langs = cfg, langs
	return nil
}
