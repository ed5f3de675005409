package watcher

import (
	"time"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/watching"
)

// NewSource builds the change source matching the requested mode. It is the
// watching.SourceFactory used in production wiring.
func NewSource(spec *config.WatchSpec, mode watching.Mode, once bool, interval time.Duration) (watching.ChangeSource, error) {
	if mode == watching.ModeScan {
		return NewPollSource(spec, interval, once), nil
	}
	return NewFsnotifySource(spec)
}
