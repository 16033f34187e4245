package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Transfer files between machines over TCP",
	Long: `Ferry transfers files between machines over plain TCP with optional
compression, password-based encryption, rate limiting, and resume support.

Run "ferry serve" on the receiving machine and "ferry send" on the sending
one. Interrupted transfers that were started with --resume can be listed
with "ferry pending" and continued with "ferry resume".`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viper.SetEnvPrefix("FERRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// configureLogging keeps client commands quiet so progress bars stay
// readable, while serve logs its operational events at info level.
func configureLogging(cmd *cobra.Command) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case cmd.Name() == "serve":
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// createContext returns a context that is cancelled on SIGINT or SIGTERM so
// transfers shut down cleanly when the user hits Ctrl+C.
func createContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logrus.WithFields(logrus.Fields{
			"function": "createContext",
		}).Info("Received shutdown signal")
		cancel()
	}()

	return ctx, cancel
}

// stringFlagOrEnv resolves a flag value, falling back to the bound FERRY_*
// environment variable when the flag was left at its default.
func stringFlagOrEnv(cmd *cobra.Command, name string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if viper.IsSet(name) {
		return viper.GetString(name)
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}
