//go:build !darwin && !windows

package scan

import (
	"os"
	"time"
)

// createdTime falls back to the modification time on platforms whose
// portable stat carries no birth time (notably Linux). Both catalog and
// live values go through the same fallback, so a catalog built here
// stays self-consistent; the modified comparison still catches every
// change the created comparison would have.
func createdTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
