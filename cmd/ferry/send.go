package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opd-ai/ferry"
	"github.com/opd-ai/ferry/compress"
	"github.com/opd-ai/ferry/queue"
)

// SendFlags holds command-line flags for the send command.
type SendFlags struct {
	Host      string
	Port      int
	Compress  bool
	Algorithm string
	Encrypt   bool
	Password  string
	Resume    bool
	RateLimit int64
}

var sendFlags SendFlags

var sendCmd = &cobra.Command{
	Use:   "send [flags] PATH...",
	Short: "Send files or directories to a ferry server",
	Long: `Send streams one or more paths to a ferry server. A single file or
directory is sent directly; several files are sent as one multi-file
transfer; a mix of files and directories is queued and sent one after
another.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendFlags.Host, "host", "H", "localhost", "Server host to send to")
	sendCmd.Flags().IntVarP(&sendFlags.Port, "port", "p", 2121, "Server port to send to")
	sendCmd.Flags().BoolVarP(&sendFlags.Compress, "compress", "c", false, "Compress files before sending")
	sendCmd.Flags().StringVarP(&sendFlags.Algorithm, "algorithm", "a", "gzip", "Compression algorithm (gzip or brotli)")
	sendCmd.Flags().BoolVarP(&sendFlags.Encrypt, "encrypt", "e", false, "Encrypt files before sending")
	sendCmd.Flags().StringVar(&sendFlags.Password, "password", "", "Password for encryption")
	sendCmd.Flags().BoolVarP(&sendFlags.Resume, "resume", "r", false, "Record progress so interrupted transfers can be resumed")
	sendCmd.Flags().Int64Var(&sendFlags.RateLimit, "rate-limit", 0, "Throughput cap in bytes per second (0 for unlimited)")

	viper.BindPFlag("host", sendCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", sendCmd.Flags().Lookup("port"))
	viper.BindPFlag("password", sendCmd.Flags().Lookup("password"))
}

func buildSendParams(cmd *cobra.Command) (ferry.TransferParameters, error) {
	params := ferry.TransferParameters{
		Host:           sendFlags.Host,
		Port:           sendFlags.Port,
		UseCompression: sendFlags.Compress,
		UseEncryption:  sendFlags.Encrypt,
		Password:       stringFlagOrEnv(cmd, "password"),
		EnableResume:   sendFlags.Resume,
		RateLimit:      sendFlags.RateLimit,
	}

	if sendFlags.Compress {
		alg, err := compress.ParseAlgorithmName(sendFlags.Algorithm)
		if err != nil {
			return params, err
		}
		params.Algorithm = alg
	}

	return params, params.Validate()
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := createContext()
	defer cancel()

	params, err := buildSendParams(cmd)
	if err != nil {
		return err
	}

	var dirs, files []string
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
	}

	printer := newProgressPrinter()
	defer printer.Close()

	switch {
	case len(dirs) == 0 && len(files) == 1:
		err = withClient(params, printer, func(c *ferry.Client) error {
			return c.SendFile(ctx, files[0])
		})
	case len(dirs) == 1 && len(files) == 0:
		err = withClient(params, printer, func(c *ferry.Client) error {
			return c.SendDirectory(ctx, dirs[0])
		})
	case len(dirs) == 0:
		err = withClient(params, printer, func(c *ferry.Client) error {
			return c.SendMultipleFiles(ctx, files)
		})
	default:
		err = sendQueued(ctx, params, printer, args, dirs)
	}

	printer.Close()
	if err != nil {
		if errors.Is(err, ferry.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, "Transfer interrupted. Run \"ferry pending\" to list it and \"ferry resume\" to continue.")
		}
		return err
	}

	fmt.Println(color.GreenString("Transfer complete."))
	return nil
}

func withClient(params ferry.TransferParameters, printer *progressPrinter, send func(*ferry.Client) error) error {
	client, err := ferry.NewClient(params)
	if err != nil {
		return err
	}
	client.OnProgress(printer.Update)
	return send(client)
}

// sendQueued runs each path as its own job so directories and files can be
// mixed on one command line.
func sendQueued(ctx context.Context, params ferry.TransferParameters, printer *progressPrinter, paths, dirs []string) error {
	isDir := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		isDir[d] = true
	}

	q := queue.NewQueueWithRunner(func(p ferry.TransferParameters) (queue.Runner, error) {
		client, err := ferry.NewClient(p)
		if err != nil {
			return nil, err
		}
		client.OnProgress(printer.Update)
		return client, nil
	})

	for _, path := range paths {
		if isDir[path] {
			q.Enqueue(queue.NewDirectoryJob(path, params))
		} else {
			q.Enqueue(queue.NewSingleFileJob(path, params))
		}
	}

	var (
		mu       sync.Mutex
		failures int
	)
	q.OnTransferCompleted(func(job queue.Job, err error) {
		printer.Close()
		if err != nil {
			mu.Lock()
			failures++
			mu.Unlock()
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("failed"), job.Describe(), err)
			return
		}
		fmt.Printf("%s %s\n", color.GreenString("sent"), job.Describe())
	})

	done := make(chan struct{})
	q.OnAllCompleted(func() { close(done) })
	q.Start(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		q.Stop()
		return ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if failures > 0 {
		return fmt.Errorf("%d of %d transfers failed", failures, len(paths))
	}
	return nil
}
