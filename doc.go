// Package ferry implements point-to-point file transfer over TCP.
//
// Ferry moves single files, whole directories, and ad-hoc file sets between
// two machines over a plain TCP connection. Payloads can be compressed
// (gzip or brotli), encrypted with a shared password, and resumed after an
// interruption. This package provides the client and server endpoints plus
// the supporting subsystems: the wire codec, the compress/encrypt pipeline,
// content hashing, and durable resume state.
//
// # Receiving Files
//
// Start a server pointed at a downloads directory:
//
//	srv, err := ferry.StartServer(ctx, "/srv/downloads", 2121, "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
//
//	srv.OnFileReceived(func(path, sender string) {
//	    fmt.Printf("received %s from %s\n", path, sender)
//	})
//
// # Sending Files
//
// Create a client with transfer parameters and send:
//
//	client, err := ferry.NewClient(ferry.TransferParameters{
//	    Host:           "10.0.0.5",
//	    Port:           2121,
//	    UseCompression: true,
//	    Algorithm:      compress.Gzip,
//	    UseEncryption:  true,
//	    Password:       "secret",
//	    EnableResume:   true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.SendFile(ctx, "/data/report.pdf"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Resuming Interrupted Transfers
//
// When resume is enabled, an interrupted send leaves a durable record that
// a later client can pick up:
//
//	pending, err := client.ListResumableTransfers()
//	for i, p := range pending {
//	    fmt.Printf("%d: %s (%.0f%%)\n", i, p.DisplayName(), p.Percent())
//	}
//	err = client.ResumeTransfer(ctx, 0, "secret")
//
// # Queued Transfers
//
// The queue subpackage runs transfer jobs one at a time in arrival order;
// see package github.com/opd-ai/ferry/queue.
//
// # Core Types
//
// The package defines several core types:
//
//   - [Client]: Sending endpoint; one transfer job per connection
//   - [Server]: Receiving endpoint; accepts concurrent connections
//   - [TransferParameters]: Per-client transfer options
//   - [ResumableTransfer]: A pending transfer reconstructed from disk
package ferry
