package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opd-ai/ferry"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List interrupted transfers that can be resumed",
	Long: `Pending lists transfers that were started with --resume and interrupted
partway. Each entry shows the index to pass to "ferry resume".`,
	Args: cobra.NoArgs,
	RunE: runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

// newMaintenanceClient builds a client for listing and resuming transfers.
// The placeholder endpoint is never dialed; resumed transfers reconnect to
// the host recorded with each transfer.
func newMaintenanceClient(rateLimit int64) (*ferry.Client, error) {
	return ferry.NewClient(ferry.TransferParameters{
		Host:      "localhost",
		Port:      2121,
		RateLimit: rateLimit,
	})
}

func runPending(cmd *cobra.Command, args []string) error {
	client, err := newMaintenanceClient(0)
	if err != nil {
		return err
	}

	transfers, err := client.ListResumableTransfers()
	if err != nil {
		return err
	}
	if len(transfers) == 0 {
		fmt.Println("No pending transfers.")
		return nil
	}

	index := color.New(color.FgCyan).SprintFunc()
	percent := color.New(color.FgYellow).SprintFunc()
	for i, t := range transfers {
		dest := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
		updated := t.Records[0].UpdatedAt.Format("2006-01-02 15:04")
		fmt.Printf("%s  %-40s  %s  -> %s  (updated %s)\n",
			index(fmt.Sprintf("[%d]", i)),
			t.DisplayName(),
			percent(fmt.Sprintf("%5.1f%%", t.Percent())),
			dest,
			updated,
		)
	}

	fmt.Printf("\nRun \"ferry resume INDEX\" to continue a transfer.\n")
	return nil
}
