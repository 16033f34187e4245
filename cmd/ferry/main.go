// Command ferry sends and receives files over TCP.
//
// The serve subcommand runs a receiving server, send streams files or
// directories to one, pending lists transfers that were interrupted partway,
// and resume picks one of those back up. Flags can also be supplied through
// FERRY_* environment variables or a .env file in the working directory.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from a .env file when one exists.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
