package media

import (
	"context"
	"errors"
	"fmt"
)

// Sink is the external system that durably stores and catalogs accepted
// media files. The watcher never writes to the content store directly;
// every accepted file goes through CreateMedia exactly once.
type Sink interface {
	// CreateMedia hands a file to the CMS together with its metadata and
	// returns the identifier of the stored item. Failures are reported as
	// *ValidationError or *StorageError.
	CreateMedia(ctx context.Context, req CreateRequest) (ID, error)
}

// ValidationError means the sink rejected the file or its metadata.
// Retrying the same file without operator intervention will not help.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sink rejected media: %s", e.Reason)
}

// StorageError means the sink accepted the request but could not durably
// store the file.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("sink storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsSinkError reports whether err originated from a Sink implementation.
func IsSinkError(err error) bool {
	var ve *ValidationError
	var se *StorageError
	return errors.As(err, &ve) || errors.As(err, &se)
}
