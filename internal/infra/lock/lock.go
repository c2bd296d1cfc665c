package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileName 是目标根目录下的锁文件名。
const FileName = ".mediasort.lock"

// ErrLocked 表示目标目录正被另一个进程整理。
var ErrLocked = errors.New("目标目录已被另一个进程锁定")

// Lock 是目标目录上的进程间互斥锁。
type Lock struct {
	fl *flock.Flock
}

// Acquire 在 dir 下创建并锁定 FileName。
//
// wait<=0 时只尝试一次；否则每 100ms 重试一次，直到超时或 ctx 结束。
// 拿不到锁时返回的 error 满足 errors.Is(err, ErrLocked)。
func Acquire(ctx context.Context, dir string, wait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建目标目录失败：%w", err)
	}
	path := filepath.Join(dir, FileName)
	fl := flock.New(path)

	var (
		ok  bool
		err error
	)
	if wait <= 0 {
		ok, err = fl.TryLock()
	} else {
		wctx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		ok, err = fl.TryLockContext(wctx, 100*time.Millisecond)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("获取锁失败：%s：%w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w：%s", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Path 返回锁文件路径。
func (l *Lock) Path() string { return l.fl.Path() }

// Release 释放锁。锁文件本身保留在原处。
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
