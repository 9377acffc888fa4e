package metadata

import (
	"os"
	"time"
)

// creationTime returns the best available filesystem creation instant
// for info. Go's os.FileInfo exposes no portable birth-time field, so
// this falls back to modification time -- the same approximation the
// spec's "filesystem times" contract permits when a platform exposes no
// better signal.
func creationTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
