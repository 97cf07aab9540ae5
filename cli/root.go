// Package cli provides the coursewire CLI commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coursewire/coursewire-go/config"
	"github.com/coursewire/coursewire-go/credential"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "coursewire",
	Short: "coursewire - Coursewire notification inbox client",
	Long: `coursewire is the command-line client for the Coursewire
course-marketplace notification inbox.

It provides:
  - Credential management with 'coursewire login' / 'logout'
  - A live inbox view with 'coursewire watch'
  - Read-state mutations with 'coursewire read' and 'coursewire read-all'
  - A local development server with 'coursewire dev'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(cfgFile, cfgFile != "", config.DefaultLoaderConfig("coursewire")); err != nil {
			return err
		}
		setupLogging(config.GetLogConfig())
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readAllCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(cfg config.LogConfig) {
	zerolog.SetGlobalLevel(cfg.Level)

	if cfg.Format == config.TextLogFormat {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		})
	}
	if cfg.WithCaller {
		log.Logger = log.Logger.With().Caller().Logger()
	}
}

// credentialStore builds the keyring-backed credential store from config.
func credentialStore() *credential.Store {
	cfg := config.GetClientConfig()
	return credential.NewStore(cfg.Credential.Service, cfg.Credential.FileDir)
}
