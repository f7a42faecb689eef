package core

import (
	"errors"
	"fmt"
)

// Error kinds, one per operation. Test with errors.Is.
var (
	ErrFileRead        = errors.New("FileReadError")
	ErrFileWrite       = errors.New("FileWriteError")
	ErrFileAppend      = errors.New("FileAppendError")
	ErrFileDelete      = errors.New("FileDeleteError")
	ErrFileRename      = errors.New("FileRenameError")
	ErrDirectoryCreate = errors.New("DirectoryCreateError")
	ErrDirectoryRead   = errors.New("DirectoryReadError")
	ErrStat            = errors.New("StatError")
	ErrFileCopy        = errors.New("FileCopyError")

	// ErrUnsupportedEncoding is the cause of read/write failures in strict
	// encoding mode.
	ErrUnsupportedEncoding = errors.New("UnsupportedEncodingError")
)

// PathError is returned by every failing FS operation.
type PathError struct {
	Kind    error
	Path    string
	NewPath string // destination of rename and copy
	Err     error
}

func (e *PathError) Error() string {
	var msg string
	switch e.Kind {
	case ErrFileRead:
		msg = "Failed to read file at " + e.Path
	case ErrFileWrite:
		msg = "Failed to write file at " + e.Path
	case ErrFileAppend:
		msg = "Failed to append to file at " + e.Path
	case ErrFileDelete:
		msg = "Failed to delete file at " + e.Path
	case ErrFileRename:
		msg = fmt.Sprintf("Failed to rename file from %s to %s", e.Path, e.NewPath)
	case ErrDirectoryCreate:
		msg = "Failed to create directory at " + e.Path
	case ErrDirectoryRead:
		msg = "Failed to read directory at " + e.Path
	case ErrStat:
		msg = "Failed to get stats for " + e.Path
	case ErrFileCopy:
		msg = fmt.Sprintf("Failed to copy file from %s to %s", e.Path, e.NewPath)
	default:
		msg = "Failed to access " + e.Path
	}
	return msg + ": " + errMessage(e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func (e *PathError) Is(target error) bool { return target == e.Kind }

func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func wrap(kind error, path string, err error) error {
	return &PathError{Kind: kind, Path: path, Err: err}
}

func wrap2(kind error, from, to string, err error) error {
	return &PathError{Kind: kind, Path: from, NewPath: to, Err: err}
}
