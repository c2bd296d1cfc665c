//go:build linux

package scan

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// createdTime 优先取 statx 的 birth time；文件系统不支持时退化为 ctime，再退化为 mtime。
func createdTime(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME|unix.STATX_CTIME, &stx)
	if err != nil {
		return info.ModTime()
	}
	if stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec > 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	if stx.Mask&unix.STATX_CTIME != 0 {
		return time.Unix(stx.Ctime.Sec, int64(stx.Ctime.Nsec))
	}
	return info.ModTime()
}
