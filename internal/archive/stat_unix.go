//go:build linux

package archive

import (
	"io/fs"
	"syscall"
	"time"
)

// fileOwner extracts the numeric owner of a file from its stat result.
func fileOwner(info fs.FileInfo) (uid, gid int, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return int(st.Uid), int(st.Gid), true
}

// fileAccessTime returns the last access time of a file, falling back to the
// modification time when the platform stat data is unavailable.
func fileAccessTime(info fs.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}
