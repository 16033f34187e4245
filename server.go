package ferry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/pipeline"
	"github.com/opd-ai/ferry/wire"
)

// Config configures a Server.
type Config struct {
	// DownloadsDir is where received files land. Created if missing.
	DownloadsDir string

	// Host is the bind address. Empty binds all interfaces.
	Host string

	// Port is the TCP port to listen on. Zero picks an ephemeral port,
	// readable from Addr after Start.
	Port int

	// Password decrypts encrypted transfers. A server without a
	// password refuses encrypted transfers outright.
	Password string
}

// Server receives ferry transfers. One goroutine accepts connections;
// each connection gets its own handler, and the files within one
// connection are processed strictly in order.
type Server struct {
	cfg Config

	mu             sync.Mutex
	listener       net.Listener
	ctx            context.Context
	cancel         context.CancelFunc
	running        bool
	fileReceivedFn func(path string, senderAddr string)
}

// NewServer creates a server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DownloadsDir == "" {
		return nil, fmt.Errorf("downloads directory cannot be empty")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}
	return &Server{cfg: cfg}, nil
}

// StartServer creates and starts a server in one call. The server runs
// until ctx is cancelled or Stop is called.
func StartServer(ctx context.Context, downloadsDir string, port int, password string) (*Server, error) {
	srv, err := NewServer(Config{
		DownloadsDir: downloadsDir,
		Port:         port,
		Password:     password,
	})
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}

// OnFileReceived registers a callback invoked after each file lands,
// whether or not its hash verified.
func (s *Server) OnFileReceived(callback func(path string, senderAddr string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileReceivedFn = callback
}

// Start binds the listener and begins accepting connections. It returns
// once the server is listening; ctx cancellation or Stop shuts it down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerRunning
	}
	if err := os.MkdirAll(s.cfg.DownloadsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return newTransferError("listen", addr, err)
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	// Closing the listener is what actually unblocks Accept.
	context.AfterFunc(s.ctx, func() { listener.Close() })

	go s.acceptLoop(listener)

	logrus.WithFields(logrus.Fields{
		"function":  "Start",
		"addr":      listener.Addr().String(),
		"downloads": s.cfg.DownloadsDir,
	}).Info("Server listening")

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down: the listener closes immediately, and
// in-flight receptions observe cancellation at their next file boundary.
// Stop does not wait for in-flight connections to drain.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Server stopped")
}

// acceptLoop hands each accepted connection to its own handler.
func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logrus.WithFields(logrus.Fields{
				"function": "acceptLoop",
				"error":    err.Error(),
			}).Warn("Failed to accept connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection reads one transfer job from the connection: the
// discriminator selects the reception routine, and the shared flags
// apply to every file on the connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	sender := conn.RemoteAddr().String()

	logrus.WithFields(logrus.Fields{
		"function": "handleConnection",
		"sender":   sender,
	}).Debug("Connection accepted")

	r := wire.NewReader(conn)

	discriminator, err := r.ReadString()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
			"sender":   sender,
			"error":    err.Error(),
		}).Debug("Connection closed before a transfer started")
		return
	}

	flags, err := r.ReadFlags()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
			"sender":   sender,
			"error":    err.Error(),
		}).Warn("Failed to read transfer flags")
		return
	}

	if flags.Encryption && s.cfg.Password == "" {
		// Frame sizes are unknown until the handshake completes, so the
		// only safe abort is tearing down the whole connection.
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
			"sender":   sender,
		}).Error("Rejecting encrypted transfer: no password configured; restart the server with --password to receive encrypted files")
		return
	}

	opts := pipeline.Options{
		Compress:  flags.Compression,
		Algorithm: flags.Algorithm,
		Encrypt:   flags.Encryption,
		Password:  s.cfg.Password,
	}

	switch discriminator {
	case wire.DirMarker:
		err = s.receiveDirectory(r, flags, opts, sender)
	case wire.MultiMarker:
		err = s.receiveMulti(r, flags, opts, sender)
	default:
		err = s.receiveSingle(discriminator, r, flags, opts, sender)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
			"sender":   sender,
			"error":    err.Error(),
		}).Warn("Reception ended early")
	}
}
