package utils

import "errors"

var (
	ErrNoFiles         = errors.New("no files submitted")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrTooManyFiles    = errors.New("too many files in request")
	ErrDeriveFailed    = errors.New("variant derivation failed")
	ErrBadFilename     = errors.New("invalid filename")
	ErrFileNotFound    = errors.New("file not found")
)
