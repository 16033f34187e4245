package ferry

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/ferry/checksum"
	"github.com/opd-ai/ferry/compress"
	"github.com/opd-ai/ferry/resume"
	"github.com/opd-ai/ferry/wire"
)

func startTestServer(t *testing.T, password string) (*Server, string) {
	t.Helper()
	downloads := t.TempDir()
	srv, err := NewServer(Config{
		DownloadsDir: downloads,
		Host:         "127.0.0.1",
		Port:         0,
		Password:     password,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv, downloads
}

func serverPort(t *testing.T, srv *Server) int {
	t.Helper()
	addr, ok := srv.Addr().(*net.TCPAddr)
	require.True(t, ok, "server address is not TCP")
	return addr.Port
}

// watchReceived must be called before any client connects.
func watchReceived(srv *Server) <-chan string {
	ch := make(chan string, 16)
	srv.OnFileReceived(func(path, _ string) { ch <- path })
	return ch
}

func awaitFiles(t *testing.T, ch <-chan string, n int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		select {
		case p := <-ch:
			paths = append(paths, p)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d expected files", i, n)
		}
	}
	return paths
}

func newLoopbackClient(t *testing.T, srv *Server, mutate func(*TransferParameters)) *Client {
	t.Helper()
	params := TransferParameters{Host: "127.0.0.1", Port: serverPort(t, srv)}
	if mutate != nil {
		mutate(&params)
	}
	return newStoreClient(t, params)
}

func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// randomContent is deterministic across runs and incompressible, so
// compressed or encrypted payloads cannot collapse below buffer sizes.
func randomContent(n int) []byte {
	buf := make([]byte, n)
	rng := rand.New(rand.NewSource(42))
	rng.Read(buf)
	return buf
}

func TestSendFileCompressedLoopback(t *testing.T) {
	srv, downloads := startTestServer(t, "")
	received := watchReceived(srv)

	content := bytes.Repeat([]byte{'X'}, 1<<20)
	src := writeTestFile(t, t.TempDir(), "big.log", content)

	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.UseCompression = true
		p.Algorithm = compress.Gzip
	})

	require.NoError(t, client.SendFile(context.Background(), src))

	paths := awaitFiles(t, received, 1)
	assert.Equal(t, filepath.Join(downloads, "big.log"), paths[0])

	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "received bytes differ from source")
}

func TestSendFileEncryptedLoopback(t *testing.T) {
	srv, downloads := startTestServer(t, "secret")
	received := watchReceived(srv)

	content := randomContent(100*1024 + 7)
	src := writeTestFile(t, t.TempDir(), "vault.bin", content)

	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.UseCompression = true
		p.Algorithm = compress.Brotli
		p.UseEncryption = true
		p.Password = "secret"
	})

	require.NoError(t, client.SendFile(context.Background(), src))

	awaitFiles(t, received, 1)
	got, err := os.ReadFile(filepath.Join(downloads, "vault.bin"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestSendDirectoryEncrypted(t *testing.T) {
	srv, downloads := startTestServer(t, "secret")
	received := watchReceived(srv)

	srcDir := filepath.Join(t.TempDir(), "docs")
	contents := map[string][]byte{
		"a.txt":        randomContent(4096),
		"c.txt":        randomContent(100),
		"nested/b.txt": randomContent(64 * 1024),
	}
	for name, data := range contents {
		writeTestFile(t, srcDir, name, data)
	}

	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.UseEncryption = true
		p.Password = "secret"
		p.EnableResume = true
	})

	require.NoError(t, client.SendDirectory(context.Background(), srcDir))
	awaitFiles(t, received, len(contents))

	for name, data := range contents {
		got, err := os.ReadFile(filepath.Join(downloads, "docs", filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.True(t, bytes.Equal(data, got), "content mismatch for %s", name)
	}

	// A clean run leaves nothing to resume.
	transfers, err := client.ListResumableTransfers()
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestSendMultipleFilesLoopback(t *testing.T) {
	srv, downloads := startTestServer(t, "")
	received := watchReceived(srv)

	dir := t.TempDir()
	first := writeTestFile(t, dir, "first.bin", randomContent(9000))
	second := writeTestFile(t, dir, "second.bin", randomContent(123))

	client := newLoopbackClient(t, srv, nil)
	require.NoError(t, client.SendMultipleFiles(context.Background(), []string{first, second}))

	paths := awaitFiles(t, received, 2)
	assert.Equal(t, filepath.Join(downloads, "first.bin"), paths[0])
	assert.Equal(t, filepath.Join(downloads, "second.bin"), paths[1])

	for _, src := range []string{first, second} {
		want, err := os.ReadFile(src)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(downloads, filepath.Base(src)))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(want, got))
	}
}

func TestServerWithoutPasswordRejectsEncrypted(t *testing.T) {
	srv, downloads := startTestServer(t, "")

	src := writeTestFile(t, t.TempDir(), "secret.bin", randomContent(1<<20))
	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.UseEncryption = true
		p.Password = "secret"
	})

	err := client.SendFile(context.Background(), src)
	require.Error(t, err, "server must tear down the connection")

	entries, err := os.ReadDir(downloads)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may land from a rejected transfer")
}

func TestWrongPasswordKeepsFile(t *testing.T) {
	srv, downloads := startTestServer(t, "right")
	received := watchReceived(srv)

	content := randomContent(4096)
	src := writeTestFile(t, t.TempDir(), "garbled.bin", content)

	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.UseEncryption = true
		p.Password = "wrong"
	})

	// The sender cannot tell the passwords disagree; the send succeeds.
	require.NoError(t, client.SendFile(context.Background(), src))
	awaitFiles(t, received, 1)

	got, err := os.ReadFile(filepath.Join(downloads, "garbled.bin"))
	require.NoError(t, err)
	assert.False(t, bytes.Equal(content, got),
		"decrypting with the wrong password must not reproduce the plaintext")
}

func TestResumeCompletesPassthrough(t *testing.T) {
	srv, downloads := startTestServer(t, "")
	received := watchReceived(srv)

	content := randomContent(262144)
	src := writeTestFile(t, t.TempDir(), "archive.bin", content)

	params := TransferParameters{
		Host: "127.0.0.1", Port: serverPort(t, srv),
		EnableResume: true,
	}
	store, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	client, err := NewClientWithStore(params, store)
	require.NoError(t, err)

	// Reconstruct the state a halfway-interrupted attempt leaves behind:
	// the client's record and the server's partial payload.
	require.NoError(t, store.Save(&resume.Record{
		FilePath:         src,
		FileName:         "archive.bin",
		TotalSize:        262144,
		BytesTransferred: 131072,
		ContentHash:      checksum.Sum(content),
		Params:           params.snapshot(),
	}))
	partPath := filepath.Join(downloads, "archive.bin.part")
	require.NoError(t, os.WriteFile(partPath, content[:131072], 0o644))

	transfers, err := client.ListResumableTransfers()
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "archive.bin", transfers[0].DisplayName())
	assert.InDelta(t, 50.0, transfers[0].Percent(), 0.01)

	require.NoError(t, client.ResumeTransfer(context.Background(), 0, ""))

	paths := awaitFiles(t, received, 1)
	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "resumed file must reassemble exactly")

	_, err = store.Load(src)
	assert.ErrorIs(t, err, resume.ErrNoRecord, "completed transfer must drop its record")
	assert.NoFileExists(t, partPath, "spent partial must be removed")
}

func TestInterruptedSendLeavesResumeRecord(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Consume part of the stream, then drop the connection.
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		io.CopyN(io.Discard, conn, 128<<10)
		conn.Close()
	}()

	content := randomContent(1 << 20)
	src := writeTestFile(t, t.TempDir(), "interrupted.bin", content)

	params := TransferParameters{
		Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port,
		EnableResume: true,
	}
	store, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	client, err := NewClientWithStore(params, store)
	require.NoError(t, err)

	err = client.SendFile(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)

	rec, err := store.Load(src)
	require.NoError(t, err, "interruption must persist a record")
	assert.Equal(t, int64(1<<20), rec.TotalSize)
	assert.Greater(t, rec.BytesTransferred, int64(0))
	assert.LessOrEqual(t, rec.BytesTransferred, rec.TotalSize)
	assert.Equal(t, checksum.Sum(content), rec.ContentHash)

	<-serverDone
}

func TestResumeEncryptedLifecycle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		io.CopyN(io.Discard, conn, 128<<10)
		conn.Close()
	}()

	content := randomContent(1 << 20)
	src := writeTestFile(t, t.TempDir(), "sealed.bin", content)

	params := TransferParameters{
		Host: "127.0.0.1", Port: port,
		UseEncryption: true, Password: "secret",
		EnableResume: true,
	}
	store, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	client, err := NewClientWithStore(params, store)
	require.NoError(t, err)

	err = client.SendFile(context.Background(), src)
	require.ErrorIs(t, err, ErrInterrupted)
	<-serverDone
	require.NoError(t, ln.Close())

	// A real server takes over the recorded endpoint.
	downloads := t.TempDir()
	srv, err := NewServer(Config{
		DownloadsDir: downloads,
		Host:         "127.0.0.1",
		Port:         port,
		Password:     "secret",
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	received := watchReceived(srv)

	transfers, err := client.ListResumableTransfers()
	require.NoError(t, err)
	require.Len(t, transfers, 1)

	// The record never stored the password, so resuming demands it.
	err = client.ResumeTransfer(context.Background(), 0, "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	require.NoError(t, client.ResumeTransfer(context.Background(), 0, "secret"))
	awaitFiles(t, received, 1)

	_, err = store.Load(src)
	assert.ErrorIs(t, err, resume.ErrNoRecord)

	// Splicing a freshly-encrypted stream onto a lost partial cannot
	// reassemble cleanly; the server still keeps what arrived.
	assert.FileExists(t, filepath.Join(downloads, "sealed.bin"))
}

func TestProgressIsMonotonic(t *testing.T) {
	srv, _ := startTestServer(t, "")
	received := watchReceived(srv)

	content := randomContent(256 * 1024)
	src := writeTestFile(t, t.TempDir(), "tracked.bin", content)

	client := newLoopbackClient(t, srv, nil)

	var updates []ProgressUpdate
	client.OnProgress(func(u ProgressUpdate) { updates = append(updates, u) })

	require.NoError(t, client.SendFile(context.Background(), src))
	awaitFiles(t, received, 1)

	require.NotEmpty(t, updates)
	var prev int64
	for _, u := range updates {
		assert.Equal(t, "tracked.bin", u.FileName)
		assert.GreaterOrEqual(t, u.Transferred, prev, "progress went backward")
		assert.Equal(t, int64(256*1024), u.Total)
		prev = u.Transferred
	}
	last := updates[len(updates)-1]
	assert.Equal(t, int64(256*1024), last.Transferred)
	assert.InDelta(t, 100.0, last.Percent, 0.01)
}

func TestRateLimitedSend(t *testing.T) {
	srv, downloads := startTestServer(t, "")
	received := watchReceived(srv)

	content := randomContent(64 * 1024)
	src := writeTestFile(t, t.TempDir(), "paced.bin", content)

	client := newLoopbackClient(t, srv, func(p *TransferParameters) {
		p.RateLimit = 256 * 1024
	})

	start := time.Now()
	require.NoError(t, client.SendFile(context.Background(), src))
	elapsed := time.Since(start)

	// 64 KiB at 256 KiB/s paces out to 250ms.
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)

	awaitFiles(t, received, 1)
	got, err := os.ReadFile(filepath.Join(downloads, "paced.bin"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestCancellationInterruptsSend(t *testing.T) {
	srv, _ := startTestServer(t, "")

	content := randomContent(1 << 20)
	src := writeTestFile(t, t.TempDir(), "cancelled.bin", content)

	store, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	client, err := NewClientWithStore(TransferParameters{
		Host: "127.0.0.1", Port: serverPort(t, srv),
		EnableResume: true,
		RateLimit:    128 * 1024, // slow enough to cancel mid-stream
	}, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	err = client.SendFile(ctx, src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)

	rec, err := store.Load(src)
	require.NoError(t, err)
	assert.Greater(t, rec.BytesTransferred, int64(0))
}

func TestServerRejectsTraversalFileName(t *testing.T) {
	srv, downloads := startTestServer(t, "")

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	w := wire.NewWriter(conn)
	require.NoError(t, w.WriteString("../evil.txt"))
	require.NoError(t, w.WriteFlags(wire.Flags{}))
	require.NoError(t, w.Flush())

	// The server drops the connection on a hostile name.
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)

	assert.NoFileExists(t, filepath.Join(filepath.Dir(downloads), "evil.txt"))
	entries, err := os.ReadDir(downloads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServerRejectsTraversalRelativePath(t *testing.T) {
	srv, downloads := startTestServer(t, "")

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	w := wire.NewWriter(conn)
	require.NoError(t, w.WriteString(wire.DirMarker))
	require.NoError(t, w.WriteFlags(wire.Flags{}))
	require.NoError(t, w.WriteString("docs"))
	require.NoError(t, w.WriteInt32(1))
	require.NoError(t, w.WriteString("../../escape.txt"))
	require.NoError(t, w.Flush())

	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)

	assert.NoFileExists(t, filepath.Join(filepath.Dir(downloads), "escape.txt"))
	assert.NoFileExists(t, filepath.Join(downloads, "escape.txt"))
}

func TestServerLifecycle(t *testing.T) {
	t.Run("requires downloads directory", func(t *testing.T) {
		_, err := NewServer(Config{})
		assert.Error(t, err)
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		_, err := NewServer(Config{DownloadsDir: t.TempDir(), Port: -1})
		assert.ErrorIs(t, err, ErrInvalidPort)
	})

	t.Run("no address before start", func(t *testing.T) {
		srv, err := NewServer(Config{DownloadsDir: t.TempDir()})
		require.NoError(t, err)
		assert.Nil(t, srv.Addr())
		srv.Stop() // a stop before start is harmless
	})

	t.Run("second start fails while running", func(t *testing.T) {
		srv, _ := startTestServer(t, "")
		err := srv.Start(context.Background())
		assert.ErrorIs(t, err, ErrServerRunning)
	})

	t.Run("stop closes the listener", func(t *testing.T) {
		srv, _ := startTestServer(t, "")
		addr := srv.Addr().String()
		srv.Stop()
		srv.Stop() // idempotent

		require.Eventually(t, func() bool {
			conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
			if err == nil {
				conn.Close()
				return false
			}
			return true
		}, 2*time.Second, 50*time.Millisecond)
	})
}

func TestStartServerConvenience(t *testing.T) {
	downloads := t.TempDir()
	srv, err := StartServer(context.Background(), downloads, 0, "")
	require.NoError(t, err)
	t.Cleanup(srv.Stop)
	received := watchReceived(srv)

	content := []byte("hello ferry")
	src := writeTestFile(t, t.TempDir(), "hello.txt", content)

	client := newLoopbackClient(t, srv, nil)
	require.NoError(t, client.SendFile(context.Background(), src))

	paths := awaitFiles(t, received, 1)
	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestClientValidation(t *testing.T) {
	params := TransferParameters{Host: "127.0.0.1", Port: 9}

	t.Run("constructor rejects bad parameters", func(t *testing.T) {
		store, err := resume.NewStore(t.TempDir())
		require.NoError(t, err)
		_, err = NewClientWithStore(TransferParameters{}, store)
		assert.ErrorIs(t, err, ErrInvalidHost)
	})

	t.Run("missing file fails before dialing", func(t *testing.T) {
		c := newStoreClient(t, params)
		err := c.SendFile(context.Background(), filepath.Join(t.TempDir(), "absent.bin"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("directory is not a file", func(t *testing.T) {
		c := newStoreClient(t, params)
		err := c.SendFile(context.Background(), t.TempDir())
		assert.ErrorIs(t, err, ErrNotRegularFile)
	})

	t.Run("file is not a directory", func(t *testing.T) {
		c := newStoreClient(t, params)
		src := writeTestFile(t, t.TempDir(), "plain.txt", []byte("x"))
		err := c.SendDirectory(context.Background(), src)
		assert.ErrorIs(t, err, ErrNotDirectory)
	})

	t.Run("empty directory has nothing to send", func(t *testing.T) {
		c := newStoreClient(t, params)
		err := c.SendDirectory(context.Background(), t.TempDir())
		assert.ErrorIs(t, err, ErrNoFiles)
	})

	t.Run("empty file list", func(t *testing.T) {
		c := newStoreClient(t, params)
		err := c.SendMultipleFiles(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoFiles)
	})

	t.Run("transfer errors name the operation", func(t *testing.T) {
		c := newStoreClient(t, params)
		err := c.SendFile(context.Background(), filepath.Join(t.TempDir(), "absent.bin"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ferry send")
	})
}
