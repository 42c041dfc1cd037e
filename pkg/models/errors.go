package models

import "errors"

var (
	// ErrInvalidArgument is returned for malformed constructor or setter input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProfileNotFound is returned when a named archive profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrAlreadyExists is returned when an ADD targets a file already in the archive.
	ErrAlreadyExists = errors.New("file already exists in archive")
	// ErrChecksumMismatch is returned when a downloaded file does not match its stored checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
