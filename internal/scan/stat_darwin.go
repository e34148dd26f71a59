//go:build darwin

package scan

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the file's birth time as reported by the
// filesystem.
func createdTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	}
	return fi.ModTime()
}
