package archive

import "errors"

var (
	// ErrInvalidArgument reports an accession or version that is not > 0.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports a study version or remote directory that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvariant reports a listing that breaks the archive's naming
	// convention, such as two directories for one study version.
	ErrInvariant = errors.New("invariant violation")
	// ErrNoVersions reports a study directory with no version directories.
	ErrNoVersions = errors.New("no study versions")
	// ErrClosed reports use of a client after Close.
	ErrClosed = errors.New("archive client is closed")
)

const (
	errStudyValue        = "study accession must be an integer > 0"
	errStudyVersionValue = "study version must be an integer > 0"
)
