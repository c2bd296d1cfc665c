package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// 退出码：0 全部成功；1 存在复制/报表失败或运行中止；2 用法错误。
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// exitError 让子命令在已经完成输出之后只携带退出码返回（不再打印错误）。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ex *exitError
	if errors.As(err, &ex) {
		return ex.code
	}
	// 其余错误都来自 cobra 的参数/flag 解析（用法已由 cobra 打印）。
	fmt.Fprintf(cmd.ErrOrStderr(), "参数错误：%v\n", err)
	return exitUsage
}
