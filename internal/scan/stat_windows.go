//go:build windows

package scan

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the file's creation time as reported by the
// filesystem.
func createdTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, st.CreationTime.Nanoseconds())
	}
	return fi.ModTime()
}
