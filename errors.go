package ferry

import (
	"errors"
	"fmt"
)

// Common errors for ferry transfers
var (
	// ErrInterrupted indicates a transfer stopped mid-stream with resume
	// state persisted; retrying with the same parameters continues it
	ErrInterrupted = errors.New("transfer interrupted, resumable")

	// ErrPasswordRequired indicates encryption was requested without a password
	ErrPasswordRequired = errors.New("password required for encrypted transfer")

	// ErrInvalidHost indicates an empty or unusable host
	ErrInvalidHost = errors.New("invalid host")

	// ErrInvalidPort indicates a port outside 1-65535
	ErrInvalidPort = errors.New("invalid port")

	// ErrNoFiles indicates a directory or multi-file job with nothing to send
	ErrNoFiles = errors.New("no files to send")

	// ErrNotRegularFile indicates a source path that is not a regular file
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrNotDirectory indicates a source path that is not a directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrTransferNotFound indicates a resumable-transfer index out of range
	ErrTransferNotFound = errors.New("resumable transfer not found")

	// ErrServerRunning indicates Start was called on a running server
	ErrServerRunning = errors.New("server already running")
)

// TransferError represents a transfer failure with additional context
type TransferError struct {
	Op   string // operation that caused the error
	Path string // file path or address if relevant
	Err  error  // underlying error
}

func (e *TransferError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ferry %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("ferry %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// newTransferError creates a new TransferError
func newTransferError(op, path string, err error) *TransferError {
	return &TransferError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
