//go:build !linux

package scanner

import (
	"os"
	"time"
)

// statCtime falls back to mtime on platforms without a syscall.Stat_t ctime
// field. ctime is best-effort metadata here, not load-bearing.
func statCtime(info os.FileInfo) time.Time {
	return info.ModTime()
}
