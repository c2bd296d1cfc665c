package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/report"
)

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if isTerminal(stdout) {
		fmt.Fprintln(stdout, renderSummary(rr))
		fmt.Fprintln(stdout, summaryLine(rr))
		emitFailures(stderr, rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	mode := "apply"
	if rr.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("完成（%s）：total=%d copied=%d renamed=%d ignored=%d copy_failed=%d scan_errors=%d",
		mode, s.Total, s.Copied, s.Renamed, s.Ignored, s.CopyFailed, s.ScanErrors,
	)
}

// emitFailures 逐行列出失败项：复制失败的文件，以及不属于任何文件的错误（扫描/报表/中止）。
func emitFailures(w io.Writer, rr domain.RunReport) {
	for _, f := range rr.Files {
		if f.Error == "" {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", f.Src, f.Error)
	}
	for _, e := range rr.Errors {
		key := e.Path
		if key == "" {
			key = "<run>"
		}
		fmt.Fprintf(w, "%s %s: %s\n", key, e.Code, truncate(e.Msg, 200))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTerminal(stderr) {
		return stderr, true
	}
	// 仅重定向了 stderr 时 stdout 仍是 TTY：退化输出到 stdout。
	if isTerminal(stdout) {
		return stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Destination, report.StateDir, report.RunJSONFile))
		fmt.Fprintf(w, "master: %s\n", filepath.Join(eff.Destination, report.MasterXLSXFile))
	}
	fmt.Fprintf(w, "dest: %s\n", eff.Destination)
}
