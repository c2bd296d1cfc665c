package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/mediasort/internal/app/run"
	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：复制阶段长时间没有文件完成时，定期输出一行进度
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	apply   bool
	workers int
	total   int
	done    int
	ok      int
	fail    int
	skip    int
	bytes   uint64

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.apply = eff.Apply
	p.workers = eff.Concurrency

	mode := "dry-run"
	modeHint := " (不复制/不写报表)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] mediasort run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  source: %s\n", eff.Source)
	fmt.Fprintf(p.w, "  destination: %s\n", eff.Destination)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  thumbnails: %s (%dpx)\n", onOff(eff.Report.Thumbnails), eff.Report.ThumbnailSize)
	fmt.Fprintf(p.w, "  exclude_dirs: %s\n", formatStringListJSON(eff.ExcludeDirs))
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", truncate(eff.ConfigFile, 120))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseScan:
		fmt.Fprintf(p.w, "扫描: files=%d errors=%d (%s)\n",
			intField(fields, "files"), intField(fields, "errors"), formatShortDuration(dur),
		)
	case run.PhaseClassify:
		fmt.Fprintf(p.w, "分类: image=%d video=%d audio=%d other=%d (%s)\n",
			intField(fields, domain.CategoryImage.String()),
			intField(fields, domain.CategoryVideo.String()),
			intField(fields, domain.CategoryAudio.String()),
			intField(fields, domain.CategoryOther.String()),
			formatShortDuration(dur),
		)
	case run.PhaseEnrich:
		fmt.Fprintf(p.w, "标签: audio=%d fallback=%d (%s)\n",
			intField(fields, "audio"), intField(fields, "fallback"), formatShortDuration(dur),
		)
	case run.PhaseDecide:
		copied, renamed, ignored := intField(fields, "copied"), intField(fields, "renamed"), intField(fields, "ignored")
		p.total = copied + renamed + ignored
		fmt.Fprintf(p.w, "决策: copied=%d renamed=%d ignored=%d (%s)\n",
			copied, renamed, ignored, formatShortDuration(dur),
		)
		if p.apply {
			fmt.Fprintf(p.w, "复制: workers=%d total=%d\n\n", p.workers, p.total)
			if p.total > 0 && !p.tickerStarted {
				p.startTickerLocked()
			}
		} else {
			fmt.Fprintln(p.w)
		}
	case run.PhaseCopy:
		fmt.Fprintf(p.w, "\n复制完成: failed=%d bytes=%s (%s)\n",
			intField(fields, "failed"), humanize.IBytes(p.bytes), formatShortDuration(dur),
		)
	case run.PhaseReport:
		fmt.Fprintf(p.w, "报表: failed=%d (%s)\n",
			intField(fields, "failed"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFileDone(done, total int, res domain.FileResult, size int64, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total

	status := fileStatus(res)
	switch status {
	case "FAIL":
		p.fail++
	case "SKIP":
		p.skip++
	default:
		p.ok++
		if p.apply && size > 0 {
			p.bytes += uint64(size)
		}
	}

	switch status {
	case "FAIL":
		fmt.Fprintf(p.w, "[%d/%d] %s %s: %s (%s)\n",
			done, total, status, res.Src, truncate(res.Error, 160), formatShortDuration(dur),
		)
	case "SKIP":
		fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n",
			done, total, status, res.Src, res.Reason,
		)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s -> %s %s\n",
			done, total, status, res.Src, res.Dst, humanize.IBytes(uint64(max(size, 0))),
		)
	}

	p.lastPrinted = time.Now()

	// 最后一个文件完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		p.stopTickerLocked()
	}
}

// Close 停止 keepalive（运行中止时可能收不到最后一个文件事件）。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		p.stopTickerLocked()
	}
}

func fileStatus(res domain.FileResult) string {
	switch {
	case res.Error != "":
		return "FAIL"
	case res.Result == domain.ResultIgnored:
		return "SKIP"
	case res.Result == domain.ResultRenamed:
		return "RENAME"
	default:
		return "COPY"
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d bytes=%s elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, humanize.IBytes(p.bytes), formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	close(p.stopCh)
	p.tickerStarted = false
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// intField 读取 OnPhaseDone 的整数字段；缺失或类型不符时为 0。
func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	}
	return 0
}
