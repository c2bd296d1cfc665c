//go:build !linux

package scan

import (
	"io/fs"
	"time"
)

// createdTime 在非 Linux 平台上没有可移植的 birth time，退化为 mtime。
func createdTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
