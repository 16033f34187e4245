package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opd-ai/ferry"
)

// ServeFlags holds command-line flags for the serve command.
type ServeFlags struct {
	Downloads string
	Host      string
	Port      int
	Password  string
}

var serveFlags ServeFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive files from ferry clients",
	Long: `Serve listens for incoming transfers and writes received files under the
downloads directory. A password must be configured (via --password or
FERRY_PASSWORD) before encrypted transfers can be accepted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.Downloads, "downloads", "d", "downloads", "Directory to store received files in")
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Interface to listen on (empty for all)")
	serveCmd.Flags().IntVarP(&serveFlags.Port, "port", "p", 2121, "Port to listen on")
	serveCmd.Flags().StringVar(&serveFlags.Password, "password", "", "Password for decrypting encrypted transfers")

	viper.BindPFlag("password", serveCmd.Flags().Lookup("password"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := createContext()
	defer cancel()

	srv, err := ferry.NewServer(ferry.Config{
		DownloadsDir: serveFlags.Downloads,
		Host:         serveFlags.Host,
		Port:         serveFlags.Port,
		Password:     stringFlagOrEnv(cmd, "password"),
	})
	if err != nil {
		return err
	}

	received := color.New(color.FgGreen).SprintFunc()
	srv.OnFileReceived(func(path, senderAddr string) {
		fmt.Printf("%s %s from %s\n", received("received"), path, senderAddr)
	})

	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	fmt.Printf("Listening on %s, saving to %s (Ctrl+C to stop)\n", srv.Addr(), serveFlags.Downloads)

	<-ctx.Done()
	return nil
}
