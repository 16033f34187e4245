package queue

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/opd-ai/ferry"
)

// Job is one queued unit of transfer work. The three variants below are
// the only implementations; the worker dispatches on the concrete type.
// A job is created by its constructor, enqueued once, and never reused.
type Job interface {
	// ID returns the job's unique identifier, assigned at construction.
	ID() string
	// Describe returns a short operator-facing label for the job.
	Describe() string

	isJob()
}

// SingleFileJob sends one file.
type SingleFileJob struct {
	id     string
	Path   string
	Params ferry.TransferParameters
}

// NewSingleFileJob creates a job that sends the file at path.
func NewSingleFileJob(path string, params ferry.TransferParameters) *SingleFileJob {
	return &SingleFileJob{id: uuid.NewString(), Path: path, Params: params}
}

// ID returns the job's unique identifier.
func (j *SingleFileJob) ID() string { return j.id }

// Describe returns the file's base name.
func (j *SingleFileJob) Describe() string { return filepath.Base(j.Path) }

func (j *SingleFileJob) isJob() {}

// DirectoryJob sends every regular file under a directory.
type DirectoryJob struct {
	id     string
	Path   string
	Params ferry.TransferParameters
}

// NewDirectoryJob creates a job that sends the directory at path.
func NewDirectoryJob(path string, params ferry.TransferParameters) *DirectoryJob {
	return &DirectoryJob{id: uuid.NewString(), Path: path, Params: params}
}

// ID returns the job's unique identifier.
func (j *DirectoryJob) ID() string { return j.id }

// Describe returns the directory's base name with a trailing slash.
func (j *DirectoryJob) Describe() string { return filepath.Base(j.Path) + "/" }

func (j *DirectoryJob) isJob() {}

// MultiFileJob sends an explicit list of files as one transfer.
type MultiFileJob struct {
	id     string
	Paths  []string
	Params ferry.TransferParameters
}

// NewMultiFileJob creates a job that sends the given files together.
func NewMultiFileJob(paths []string, params ferry.TransferParameters) *MultiFileJob {
	return &MultiFileJob{id: uuid.NewString(), Paths: paths, Params: params}
}

// ID returns the job's unique identifier.
func (j *MultiFileJob) ID() string { return j.id }

// Describe returns a count-based label.
func (j *MultiFileJob) Describe() string { return fmt.Sprintf("%d files", len(j.Paths)) }

func (j *MultiFileJob) isJob() {}
