package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opd-ai/ferry"
)

// ResumeFlags holds command-line flags for the resume command.
type ResumeFlags struct {
	Password  string
	RateLimit int64
}

var resumeFlags ResumeFlags

var resumeCmd = &cobra.Command{
	Use:   "resume INDEX",
	Short: "Continue an interrupted transfer",
	Long: `Resume continues the pending transfer at INDEX, as listed by
"ferry pending". Transfers that were encrypted need their password again;
it is never stored on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringVar(&resumeFlags.Password, "password", "", "Password for encrypted transfers")
	resumeCmd.Flags().Int64Var(&resumeFlags.RateLimit, "rate-limit", 0, "Throughput cap in bytes per second (0 for unlimited)")

	viper.BindPFlag("password", resumeCmd.Flags().Lookup("password"))
}

func runResume(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number, got %q", args[0])
	}

	ctx, cancel := createContext()
	defer cancel()

	client, err := newMaintenanceClient(resumeFlags.RateLimit)
	if err != nil {
		return err
	}

	printer := newProgressPrinter()
	defer printer.Close()
	client.OnProgress(printer.Update)

	err = client.ResumeTransfer(ctx, index, stringFlagOrEnv(cmd, "password"))
	printer.Close()
	if err != nil {
		switch {
		case errors.Is(err, ferry.ErrPasswordRequired):
			fmt.Fprintln(os.Stderr, "This transfer is encrypted; pass its password with --password or FERRY_PASSWORD.")
		case errors.Is(err, ferry.ErrInterrupted):
			fmt.Fprintln(os.Stderr, "Transfer interrupted again. Run \"ferry resume\" to retry.")
		}
		return err
	}

	fmt.Println(color.GreenString("Transfer complete."))
	return nil
}
