package importing

import "context"

// Fingerprinter computes the content hash used as the dedup key. The hash
// must be collision resistant; an accidental collision would silently
// discard distinct content.
type Fingerprinter interface {
	// Fingerprint streams the file at path and returns its hash. A file
	// that vanishes or changes size mid-read is an error, never a wrong hash.
	Fingerprint(ctx context.Context, path string) (string, error)
}

// Relocator applies the post-import file policy: moving a processed source
// file to the imported or duplicates area, or deleting it.
type Relocator interface {
	// MoveProcessed moves path into processedDir/imported or
	// processedDir/duplicates and returns the final destination.
	MoveProcessed(ctx context.Context, path, processedDir string, duplicate bool) (string, error)
	// Delete removes the source file.
	Delete(ctx context.Context, path string) error
}

// Notifier reports terminal import outcomes to an external channel.
// Implementations must tolerate being called from multiple goroutines.
type Notifier interface {
	NotifyOutcome(ctx context.Context, record *ImportRecord)
}
